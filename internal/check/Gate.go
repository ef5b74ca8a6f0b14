package check

import (
	"admin_gate/internal/action"
	"admin_gate/internal/config"
	"admin_gate/internal/dataType"
	"admin_gate/internal/utils"
	"crypto/hmac"
	"fmt"
	"net/netip"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	ReasonDisabled         = "gate disabled"
	ReasonBypass           = "trusted bypass"
	ReasonAllowListed      = "allow listed"
	ReasonNotListed        = "not allow listed"
	ReasonUnknownRequester = "unknown requester address"
)

// RequiredRulesSupplier returns raw entries that must always be allowed.
// It is consulted on every decision.
type RequiredRulesSupplier func() []string

// EnabledOverride receives the stored enabled flag and returns the effective one.
type EnabledOverride func(stored bool) bool

// BypassFunc grants access without consulting the rule lists when it returns true.
type BypassFunc func(dataType.UserRequest) bool

// Gate decides whether a request may reach the protected interface.
// A Gate holds no per-request state and is safe for concurrent use.
type Gate struct {
	Required        RequiredRulesSupplier
	EnabledOverride EnabledOverride
	Bypass          []BypassFunc
}

// RequiredRules re-derives the required list from the supplier.
func (g *Gate) RequiredRules() []dataType.IPRule {
	if g == nil || g.Required == nil {
		return nil
	}
	rules, dropped := utils.ParseRuleList(g.Required())
	for _, line := range dropped {
		utils.LogSystem(zapcore.DebugLevel, "dropped invalid required entry", fmt.Sprintf("%q", strings.TrimSpace(line)))
	}
	return rules
}

// Enabled applies the override to the stored flag.
func (g *Gate) Enabled(stored bool) bool {
	if g == nil || g.EnabledOverride == nil {
		return stored
	}
	return g.EnabledOverride(stored)
}

// CheckAccess evaluates one request against the rule set snapshot.
func (g *Gate) CheckAccess(reqData dataType.UserRequest, ruleSet *config.RuleSet) *action.Decision {
	if ruleSet == nil {
		ruleSet = &config.RuleSet{}
	}
	required := g.RequiredRules()

	bypass := make([]func() bool, 0)
	if g != nil {
		for _, fn := range g.Bypass {
			fn := fn
			bypass = append(bypass, func() bool { return fn(reqData) })
		}
	}

	ip, _ := utils.ParseRequesterIP(reqData.RemoteIP)
	var operator Matcher = RuleList(ruleSet.AllowList)
	if ruleSet.AllowTrie != nil {
		operator = ruleSet.AllowTrie
	}
	return Decide(ip, g.Enabled(ruleSet.Enabled), bypass, operator, RuleList(required))
}

// Decide is the pure form of the gate: disabled allows, a true bypass allows,
// otherwise the requester must match one of the lists.
func Decide(ip netip.Addr, enabled bool, bypass []func() bool, lists ...Matcher) *action.Decision {
	decision := action.NewDecision()
	if !enabled {
		decision.Set(action.Allow, ReasonDisabled)
		return decision
	}
	for _, fn := range bypass {
		if fn != nil && fn() {
			decision.Set(action.Allow, ReasonBypass)
			return decision
		}
	}
	IPAllowList(ip, decision, lists...)
	return decision
}

// InternalTokenBypass trusts requests presenting the shared internal token.
// An empty token disables the bypass.
func InternalTokenBypass(token string) BypassFunc {
	return func(reqData dataType.UserRequest) bool {
		if token == "" || reqData.InternalToken == "" {
			return false
		}
		return hmac.Equal([]byte(reqData.InternalToken), []byte(token))
	}
}
