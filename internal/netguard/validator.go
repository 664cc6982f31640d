package netguard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors distinguishing a deliberate block from a lookup failure.
// Both verdicts fail closed; callers map them to the same user-visible
// refusal but may log them differently.
var (
	ErrBlockedTarget    = errors.New("target address is blocked")
	ErrResolutionFailed = errors.New("hostname resolution failed")
)

// Resolver is the subset of net.Resolver the validator needs.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Validator applies the hostname rules and the IPv4 range classifier
// before any outbound connection is opened.
type Validator struct {
	resolver Resolver
}

// NewValidator builds a Validator. A nil resolver uses net.DefaultResolver.
func NewValidator(resolver Resolver) *Validator {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Validator{resolver: resolver}
}

// ValidateHost returns nil when a fetch to host may proceed. The check
// order matters: literal addresses never hit DNS, and the well-known
// internal suffixes are refused before any resolution either.
func (v *Validator) ValidateHost(ctx context.Context, host string) error {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ErrBlockedTarget
	}

	// IPv6 literals are blocked outright; no private-range table is
	// maintained for them.
	if strings.Contains(host, ":") {
		return ErrBlockedTarget
	}

	if _, ok := ParseIPv4(host); ok {
		if BlockedIPv4(host) {
			return ErrBlockedTarget
		}
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return ErrBlockedTarget
	}

	addrs, err := v.resolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrResolutionFailed, host)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: %s", ErrResolutionFailed, host)
	}
	for _, addr := range addrs {
		ip4 := addr.To4()
		if ip4 == nil {
			return ErrBlockedTarget
		}
		if BlockedIPv4(ip4.String()) {
			return ErrBlockedTarget
		}
	}
	return nil
}
