// Package ratelimit implements a per-client sliding-window rate limiter.
//
// Each client IP owns a Window: the Unix timestamps of its requests within
// the last window length. Check prunes the window lazily, denies the
// request when the window is full and records it otherwise. Whitelisted
// IPs and CIDR ranges bypass the limit.
//
// Windows are persisted by a Store under a keyed BLAKE2b hash of the IP,
// so raw client addresses never appear in file names or keys:
//
//   - FileStore keeps one JSON file per client and serializes updates
//     across processes with an exclusive lock file.
//   - SQLiteStore keeps all windows in one SQLite database (WAL mode,
//     IMMEDIATE transactions with a busy timeout).
package ratelimit
