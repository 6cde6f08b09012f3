// Package pipeline runs one lookup attempt as an ordered list of steps.
//
// An attempt moves through Initialize, Fetch Homepage, Fetch Company
// Page, Resolve Detail Link, Fetch Detail Page, Validate Page, Extract
// Data and Complete. Each Step reads and extends the shared Attempt; the
// first failing step ends the attempt with a *model.Failure whose kind
// tells the caller what went wrong. Steps record their progress in the
// attempt's trail as they go, so a failed attempt still explains itself.
//
// BatchProcessor runs whole lookups for several queries with errgroup,
// bounded concurrency and paced starts.
package pipeline
