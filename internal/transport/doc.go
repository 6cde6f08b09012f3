// Package transport builds the per-attempt HTTP client: bound to one HTTP
// or SOCKS5 proxy, with a fresh cookie jar, connect and total timeouts,
// a redirect cap and decoding of compressed bodies.
package transport
