package utils

import (
	"admin_gate/internal/dataType"
	"net/netip"
	"strconv"
	"strings"

	"go4.org/netipx"
)

var (
	privateRanges = []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"fc00::/7",
	}
	reservedRanges = []string{
		"0.0.0.0/8",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"240.0.0.0/4",
		"::/128",
		"::1/128",
		"::ffff:0:0/96",
		"fe80::/10",
	}
	excludedSet = buildExcludedSet()
)

func buildExcludedSet() *netipx.IPSet {
	var b netipx.IPSetBuilder
	for _, s := range append(append([]string{}, privateRanges...), reservedRanges...) {
		b.AddPrefix(netip.MustParsePrefix(s))
	}
	set, err := b.IPSet()
	if err != nil {
		panic(err)
	}
	return set
}

// IsExcludedIP reports whether ip is private-use or reserved and so can never be
// an allow entry or a trusted requester.
func IsExcludedIP(ip netip.Addr) bool {
	return excludedSet.Contains(ip)
}

// ValidateIP turns one configuration token into an allow rule.
// Accepted forms are "addr" and "addr/bits", surrounded by optional whitespace and commas.
func ValidateIP(token string) (dataType.IPRule, bool) {
	token = strings.TrimSpace(strings.Trim(strings.TrimSpace(token), ","))
	if token == "" {
		return dataType.IPRule{}, false
	}

	addrPart, bitsPart, isRange := strings.Cut(token, "/")
	ip, ok := parsePublicIP(addrPart)
	if !ok {
		return dataType.IPRule{}, false
	}
	if !isRange {
		return dataType.IPRule{Kind: dataType.RuleAddress, Addr: ip}, true
	}

	bits, ok := parsePrefixLen(bitsPart, ip.BitLen())
	if !ok {
		return dataType.IPRule{}, false
	}
	return dataType.IPRule{Kind: dataType.RuleRange, Addr: ip, Bits: bits}, true
}

// ParseRequesterIP validates the address a request came from. Ranges are not
// requesters, and private or reserved sources are treated as unknown.
func ParseRequesterIP(text string) (netip.Addr, bool) {
	rule, ok := ValidateIP(text)
	if !ok || rule.Kind != dataType.RuleAddress {
		return netip.Addr{}, false
	}
	return rule.Addr, true
}

// ParseRuleList validates every line independently. Blank lines are skipped,
// invalid ones are returned in dropped for the caller to log.
func ParseRuleList(lines []string) (rules []dataType.IPRule, dropped []string) {
	rules = make([]dataType.IPRule, 0, len(lines))
	for _, line := range lines {
		rule, ok := ValidateIP(line)
		if ok {
			rules = append(rules, rule)
			continue
		}
		if strings.TrimSpace(strings.Trim(strings.TrimSpace(line), ",")) != "" {
			dropped = append(dropped, line)
		}
	}
	return rules, dropped
}

// SplitRuleText splits stored rule text on newlines and commas.
func SplitRuleText(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
}

// FormatRules renders rules one per line in canonical form.
func FormatRules(rules []dataType.IPRule) string {
	var sb strings.Builder
	for _, r := range rules {
		sb.WriteString(r.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

func parsePublicIP(s string) (netip.Addr, bool) {
	ip, err := netip.ParseAddr(s)
	if err != nil || ip.Zone() != "" {
		return netip.Addr{}, false
	}
	if IsExcludedIP(ip) {
		return netip.Addr{}, false
	}
	return ip, true
}

func parsePrefixLen(s string, maxBits int) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	// Leading zeros do not count toward the length limit.
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return 0, true
	}
	if len(s) > 3 {
		return 0, false
	}
	bits, err := strconv.Atoi(s)
	if err != nil || bits > maxBits {
		return 0, false
	}
	return bits, true
}
