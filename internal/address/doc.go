// Package address splits Vietnamese free-text addresses into street line,
// ward/district, province and country.
package address
