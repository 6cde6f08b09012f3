package ratelimit

import (
	"fmt"
	"net/netip"
	"strings"
)

// ParseWhitelistEntry parses an IP or CIDR entry. A bare IPv4 address
// ending in ".0" stands for its /24 network; any other bare address
// matches itself only.
func ParseWhitelistEntry(entry string) (netip.Prefix, error) {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("%w %q: %w", ErrInvalidWhitelistEntry, entry, err)
		}
		return prefix.Masked(), nil
	}

	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w %q: %w", ErrInvalidWhitelistEntry, entry, err)
	}
	addr = addr.Unmap()
	if addr.Is4() && strings.HasSuffix(entry, ".0") {
		return netip.PrefixFrom(addr, 24).Masked(), nil
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Whitelist is a set of networks exempt from rate limiting.
type Whitelist struct {
	prefixes []netip.Prefix
}

// NewWhitelist parses entries with ParseWhitelistEntry.
func NewWhitelist(entries []string) (*Whitelist, error) {
	w := &Whitelist{}
	for _, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		prefix, err := ParseWhitelistEntry(entry)
		if err != nil {
			return nil, err
		}
		w.prefixes = append(w.prefixes, prefix)
	}
	return w, nil
}

// Contains reports whether ip is whitelisted. Unparsable IPs never are.
func (w *Whitelist) Contains(ip string) bool {
	if w == nil || len(w.prefixes) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range w.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (w *Whitelist) Len() int {
	if w == nil {
		return 0
	}
	return len(w.prefixes)
}
