// Package config defines the lookup tool's options and the layers that
// populate them: built-in defaults, the .taxlookup YAML file, TAXLOOKUP_*
// environment variables and finally CLI flags.
package config
