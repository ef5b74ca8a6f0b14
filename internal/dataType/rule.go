package dataType

import (
	"net/netip"
	"strconv"
)

type RuleKind uint8

const (
	RuleAddress RuleKind = iota // exact match
	RuleRange                   // CIDR containment
)

// IPRule is a validated allow entry. Build it with utils.ValidateIP, never by hand.
type IPRule struct {
	Kind RuleKind
	Addr netip.Addr
	Bits int
}

// String returns the canonical text form, "addr" or "addr/bits".
func (r IPRule) String() string {
	if r.Kind == RuleRange {
		return r.Addr.String() + "/" + strconv.Itoa(r.Bits)
	}
	return r.Addr.String()
}

// Prefix returns the rule as a prefix, exact addresses are full-length prefixes.
func (r IPRule) Prefix() netip.Prefix {
	if r.Kind == RuleRange {
		return netip.PrefixFrom(r.Addr, r.Bits)
	}
	return netip.PrefixFrom(r.Addr, r.Addr.BitLen())
}

// Match reports whether ip is covered by the rule. A rule never matches an
// address of the other family.
func (r IPRule) Match(ip netip.Addr) bool {
	if !ip.IsValid() {
		return false
	}
	if r.Kind == RuleRange {
		return r.Prefix().Contains(ip)
	}
	return r.Addr == ip
}
