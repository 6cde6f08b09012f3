// Package lookup resolves a query into a CompanyRecord.
//
// Engine.Lookup runs up to MaxAttempts attempts. Every attempt draws a
// fresh proxy from the pool and a fresh browser fingerprint, then runs
// the attempt pipeline (see package pipeline). Failed attempts are
// retried after a randomized backoff; the logs of every attempt are kept
// in order on the final record. Lookup never returns an error: failures
// are reported through the record's Error and FailureKind.
//
// An optional circuit breaker rejects lookups for a while after several
// consecutive lookups exhausted their attempts.
package lookup
