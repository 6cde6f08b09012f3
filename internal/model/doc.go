// Package model defines the data shared across the lookup pipeline.
//
// The main types are:
//   - Query: a trimmed lookup input classified as tax code or name
//   - Page: one fetched registry page
//   - CompanyRecord: the lookup result with its diagnostic trail
//   - Failure: the typed error that ends an attempt
//
// Keeping these in one package lets crawler, extract, pipeline and report
// share them without import cycles.
package model
