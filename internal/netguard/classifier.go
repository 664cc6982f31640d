// Package netguard decides whether an outbound fetch target is safe,
// guarding the metadata fetcher against server-side request forgery.
package netguard

import (
	"strconv"
	"strings"
)

// ipv4Range is an inclusive span of 32-bit big-endian IPv4 values.
type ipv4Range struct {
	start uint32
	end   uint32
}

func cidr(a, b, c, d byte, bits uint) ipv4Range {
	base := uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
	mask := ^uint32(0) << (32 - bits)
	return ipv4Range{start: base & mask, end: base | ^mask}
}

// blockedRanges enumerates the non-routable and otherwise dangerous
// IPv4 spaces a preview fetch must never reach. Link-local covers the
// cloud metadata endpoints (169.254.169.254 and friends).
var blockedRanges = []ipv4Range{
	cidr(0, 0, 0, 0, 8),      // "this" network
	cidr(10, 0, 0, 0, 8),     // private
	cidr(100, 64, 0, 0, 10),  // shared address space (CGNAT)
	cidr(127, 0, 0, 0, 8),    // loopback
	cidr(169, 254, 0, 0, 16), // link-local
	cidr(172, 16, 0, 0, 12),  // private
	cidr(192, 0, 0, 0, 24),   // IETF protocol assignments
	cidr(192, 168, 0, 0, 16), // private
	cidr(198, 18, 0, 0, 15),  // benchmarking
	cidr(224, 0, 0, 0, 4),    // multicast
	cidr(240, 0, 0, 0, 4),    // reserved
}

// ParseIPv4 converts a dotted-quad string into its 32-bit big-endian
// value. It accepts exactly four decimal octets in [0,255].
func ParseIPv4(s string) (uint32, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var v uint32
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return 0, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return 0, false
		}
		v = v<<8 | uint32(n)
	}
	return v, true
}

// BlockedIPv4 reports whether the given dotted-quad address falls in a
// blocked range. Addresses that fail to parse are blocked (fail closed).
func BlockedIPv4(addr string) bool {
	v, ok := ParseIPv4(addr)
	if !ok {
		return true
	}
	return blockedValue(v)
}

func blockedValue(v uint32) bool {
	for _, r := range blockedRanges {
		if v >= r.start && v <= r.end {
			return true
		}
	}
	return false
}
