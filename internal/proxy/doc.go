// Package proxy loads proxy endpoints and rotates through them.
//
// Within one lookup a Pool never repeats an endpoint until all of them have
// been used, so consecutive attempts leave from different addresses. Pools
// may be empty, in which case callers connect directly.
package proxy
