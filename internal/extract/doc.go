// Package extract turns the company table of a registry page into
// labelled values and maps them onto a CompanyRecord.
//
// The first table of the page is read in two passes. The structured pass
// uses schema.org itemprop markup and stores values under the label the
// row would have. The generic pass reads every row with at least two
// cells as a label/value pair. Canonical fields are then resolved from
// the labels through ordered fallback lists (see Key.Labels).
package extract
