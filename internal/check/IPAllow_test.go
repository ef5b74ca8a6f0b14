package check

import (
	"admin_gate/internal/action"
	"admin_gate/internal/dataType"
	"admin_gate/internal/utils"
	"net/netip"
	"testing"
)

func mustRules(t *testing.T, lines ...string) []dataType.IPRule {
	t.Helper()
	rules, dropped := utils.ParseRuleList(lines)
	if len(dropped) != 0 {
		t.Fatalf("unexpected invalid rules: %v", dropped)
	}
	return rules
}

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name  string
		rules []string
		ip    string
		want  bool
	}{
		{"range contains", []string{"203.0.113.0/24"}, "203.0.113.42", true},
		{"range excludes", []string{"203.0.113.0/24"}, "203.0.114.1", false},
		{"exact match", []string{"198.51.100.7"}, "198.51.100.7", true},
		{"exact mismatch", []string{"198.51.100.7"}, "198.51.100.8", false},
		{"zero prefix", []string{"8.8.8.8/0"}, "1.1.1.1", true},
		{"zero prefix other family", []string{"8.8.8.8/0"}, "2606:4700::1", false},
		{"ipv6 range", []string{"2001:db8::/32"}, "2001:db8:1::1", true},
		{"ipv6 exact", []string{"2001:db8::7"}, "2001:db8:0::7", true},
		{"duplicates", []string{"198.51.100.7", "198.51.100.0/24", "198.51.100.7"}, "198.51.100.7", true},
		{"empty", nil, "198.51.100.7", false},
	}
	for _, tt := range tests {
		rules := mustRules(t, tt.rules...)
		if got := IsAllowed(netip.MustParseAddr(tt.ip), rules); got != tt.want {
			t.Errorf("%s: IsAllowed(%s, %v) = %v, want %v", tt.name, tt.ip, tt.rules, got, tt.want)
		}
	}
}

func TestIsAllowedInvalidRequester(t *testing.T) {
	rules := mustRules(t, "8.8.8.8/0", "2001:db8::/0")
	if IsAllowed(netip.Addr{}, rules) {
		t.Errorf("IsAllowed with unknown requester = true, want false")
	}
	ip, ok := utils.ParseRequesterIP("127.0.0.1")
	if ok || IsAllowed(ip, rules) {
		t.Errorf("loopback requester must be treated as unknown")
	}
}

func TestIsAllowedUnion(t *testing.T) {
	operator := mustRules(t, "203.0.113.0/24")
	required := mustRules(t, "192.0.2.10")
	ip := netip.MustParseAddr("192.0.2.10")

	if !IsAllowed(ip, operator, required) {
		t.Errorf("requester in required list only should be allowed")
	}
	if IsAllowed(ip, operator) {
		t.Errorf("requester should not match operator list alone")
	}
	if !IsAllowed(ip, nil, required) {
		t.Errorf("empty operator list must not remove required entries")
	}
}

func TestTrieAgreesWithScan(t *testing.T) {
	rules := mustRules(t,
		"203.0.113.0/24", "198.51.100.7", "8.8.0.0/16", "1.1.1.1/32",
		"2001:db8::/32", "2606:4700::1111", "2a00:1450::/29",
	)
	trie := dataType.NewIPTrie(rules)
	probes := []string{
		"203.0.113.0", "203.0.113.255", "203.0.112.255", "198.51.100.7", "198.51.100.6",
		"8.8.4.4", "8.9.0.1", "1.1.1.1", "1.1.1.2",
		"2001:db8::", "2001:db8:ffff:ffff::1", "2001:db9::", "2606:4700::1111", "2606:4700::1112",
		"2a00:1450:4001::1", "2a00:1458::1",
	}
	for _, p := range probes {
		ip := netip.MustParseAddr(p)
		if trie.Search(ip) != RuleList(rules).Search(ip) {
			t.Errorf("trie and scan disagree for %s: trie=%v scan=%v", p, trie.Search(ip), RuleList(rules).Search(ip))
		}
	}
}

func TestIPAllowListKeepsEarlierVerdict(t *testing.T) {
	decision := action.NewDecision()
	decision.Set(action.Allow, ReasonBypass)
	IPAllowList(netip.Addr{}, decision, RuleList(nil))
	if decision.Get() != action.Allow || decision.Reason() != ReasonBypass {
		t.Errorf("IPAllowList overwrote a decided verdict: %v %q", decision.Get(), decision.Reason())
	}
}

func TestIPAllowListReasons(t *testing.T) {
	rules := RuleList(mustRules(t, "198.51.100.7"))
	tests := []struct {
		ip     netip.Addr
		want   action.Action
		reason string
	}{
		{netip.MustParseAddr("198.51.100.7"), action.Allow, ReasonAllowListed},
		{netip.MustParseAddr("8.8.8.8"), action.Deny, ReasonNotListed},
		{netip.Addr{}, action.Deny, ReasonUnknownRequester},
	}
	for _, tt := range tests {
		decision := action.NewDecision()
		IPAllowList(tt.ip, decision, nil, rules)
		if decision.Get() != tt.want || decision.Reason() != tt.reason {
			t.Errorf("IPAllowList(%v) = %v %q, want %v %q", tt.ip, decision.Get(), decision.Reason(), tt.want, tt.reason)
		}
	}
}
