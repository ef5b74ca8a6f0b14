package check

import (
	"admin_gate/internal/action"
	"admin_gate/internal/dataType"
	"net/netip"
)

// Matcher answers whether an address is covered by a set of allow rules.
type Matcher interface {
	Search(ip netip.Addr) bool
}

// RuleList matches by scanning its rules in order.
type RuleList []dataType.IPRule

func (l RuleList) Search(ip netip.Addr) bool {
	for _, rule := range l {
		if rule.Match(ip) {
			return true
		}
	}
	return false
}

// IsAllowed reports whether ip matches any rule in any of the lists.
// The zero netip.Addr stands for an unknown requester and never matches.
func IsAllowed(ip netip.Addr, lists ...[]dataType.IPRule) bool {
	if !ip.IsValid() {
		return false
	}
	for _, list := range lists {
		if RuleList(list).Search(ip) {
			return true
		}
	}
	return false
}

// IPAllowList settles an undecided decision by matching ip against the lists.
func IPAllowList(ip netip.Addr, decision *action.Decision, lists ...Matcher) {
	if decision.Decided() {
		return
	}
	if !ip.IsValid() {
		decision.Set(action.Deny, ReasonUnknownRequester)
		return
	}
	for _, m := range lists {
		if m != nil && m.Search(ip) {
			decision.Set(action.Allow, ReasonAllowListed)
			return
		}
	}
	decision.Set(action.Deny, ReasonNotListed)
}
