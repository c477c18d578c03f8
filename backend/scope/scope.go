package scope

import (
	"net/netip"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"go4.org/netipx"
)

// Wildcard in a scope list permits every target.
const Wildcard = "*"

// Scope is a compiled allow-list. Entries are substring patterns matched against
// task descriptors; entries that parse as an IP address or CIDR additionally
// admit IP targets falling inside them.
type Scope struct {
	wildcard bool
	patterns []string
	ips      *netipx.IPSet
}

func New(entries []string) (*Scope, error) {
	s := &Scope{}
	var builder netipx.IPSetBuilder
	hasIPs := false
	for _, raw := range entries {
		entry := strings.ToLower(strings.TrimSpace(raw))
		if entry == "" {
			continue
		}
		if entry == Wildcard {
			s.wildcard = true
			continue
		}
		s.patterns = append(s.patterns, entry)
		if strings.Contains(entry, "/") {
			if prefix, err := netip.ParsePrefix(entry); err == nil {
				builder.AddPrefix(prefix.Masked())
				hasIPs = true
			}
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			builder.Add(addr)
			hasIPs = true
		}
	}
	if hasIPs {
		set, err := builder.IPSet()
		if err != nil {
			return nil, pkgerrors.Wrap(err, "build scope ip set")
		}
		s.ips = set
	}
	return s, nil
}

// Wildcard reports whether the scope contains the "*" marker.
func (s *Scope) Wildcard() bool {
	return s != nil && s.wildcard
}

// Allows reports whether a task descriptor aimed at target is inside the scope.
func (s *Scope) Allows(descriptor, target string) bool {
	if s == nil {
		return false
	}
	if s.wildcard {
		return true
	}
	lower := strings.ToLower(descriptor)
	for _, p := range s.patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	if s.ips == nil {
		return false
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(target))
	if err != nil {
		return false
	}
	return s.ips.Contains(addr.Unmap())
}

// Patterns returns the non-wildcard entries in their normalized form.
func (s *Scope) Patterns() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.patterns...)
}
