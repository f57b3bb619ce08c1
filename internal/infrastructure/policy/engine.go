package policy

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// Rule identifiers reported for risk-based verdicts.
const (
	RuleRiskCritical = "risk:CRITICAL"
	RuleRiskHigh     = "risk:HIGH"
	RuleRiskDefault  = "risk:default"
	RuleAllowlisted  = "allowlist"
)

// Evaluate returns exactly one verdict for a classification.
//
// Order: denylist, compliance profile (GENERAL is layered under any other
// profile), allowlist, CRITICAL risk, HIGH risk, default allow. A denylist
// match is never overridden.
func (rs *Ruleset) Evaluate(cls domain.Classification, profile string) domain.PolicyVerdict {
	profile = strings.ToUpper(strings.TrimSpace(profile))

	var denied []Rule
	for _, rule := range rs.denylist {
		if rule.matchCommand(cls) {
			denied = append(denied, rule)
		}
	}
	if len(denied) > 0 {
		return verdictFrom(domain.VerdictDeny, denied, profile)
	}

	if profile != "" {
		var deny, confirm []Rule
		for _, rule := range rs.profileRules(profile) {
			if !rule.matchCommand(cls) {
				continue
			}
			if rule.Severity == domain.SeverityDeny {
				deny = append(deny, rule)
			} else {
				confirm = append(confirm, rule)
			}
		}
		if len(deny) > 0 {
			return verdictFrom(domain.VerdictDeny, deny, profile)
		}
		if len(confirm) > 0 {
			return verdictFrom(domain.VerdictRequireExplicitConfirm, confirm, profile)
		}
	}

	if ids, ok := rs.allowlisted(cls); ok {
		return domain.PolicyVerdict{
			Verdict:    domain.VerdictAllow,
			RuleIDs:    ids,
			Reasons:    []string{"every segment matches the allowlist"},
			Compliance: profile,
		}
	}

	switch {
	case cls.Risk >= domain.RiskCritical:
		return domain.PolicyVerdict{
			Verdict:    domain.VerdictRequireExplicitConfirm,
			RuleIDs:    []string{RuleRiskCritical},
			Reasons:    []string{fmt.Sprintf("risk %s: %s", cls.Risk, cls.Rationale)},
			Compliance: profile,
		}
	case cls.Risk == domain.RiskHigh:
		return domain.PolicyVerdict{
			Verdict:    domain.VerdictAllowWithWarning,
			RuleIDs:    []string{RuleRiskHigh},
			Reasons:    []string{fmt.Sprintf("risk %s: %s", cls.Risk, cls.Rationale)},
			Compliance: profile,
		}
	}
	return domain.PolicyVerdict{
		Verdict:    domain.VerdictAllow,
		RuleIDs:    []string{RuleRiskDefault},
		Compliance: profile,
	}
}

func (rs *Ruleset) profileRules(profile string) []Rule {
	rules := rs.compliance[profile]
	if profile == domain.ProfileGeneral {
		return rules
	}
	return append(append([]Rule(nil), rules...), rs.compliance[domain.ProfileGeneral]...)
}

// allowlisted requires every segment to match some allow rule.
func (rs *Ruleset) allowlisted(cls domain.Classification) ([]string, bool) {
	if len(rs.allowlist) == 0 || len(cls.Segments) == 0 || cls.ParseError != "" {
		return nil, false
	}
	var ids []string
	seen := make(map[string]bool)
	for _, seg := range cls.Segments {
		matched := false
		for _, rule := range rs.allowlist {
			if rule.re != nil && !rule.matchText(seg.Text) {
				continue
			}
			if !rule.matchCategories(seg.Categories) {
				continue
			}
			matched = true
			if !seen[rule.ID] {
				seen[rule.ID] = true
				ids = append(ids, rule.ID)
			}
			break
		}
		if !matched {
			return nil, false
		}
	}
	return append([]string{RuleAllowlisted}, ids...), true
}

func verdictFrom(v domain.Verdict, rules []Rule, profile string) domain.PolicyVerdict {
	out := domain.PolicyVerdict{Verdict: v, Compliance: profile}
	for _, r := range rules {
		out.RuleIDs = append(out.RuleIDs, r.ID)
		out.Reasons = append(out.Reasons, r.Reason)
	}
	return out
}

// Engine publishes the current Ruleset. Readers take a snapshot and keep it for a
// whole run cycle; Replace swaps in a new value without touching the old one.
type Engine struct {
	current atomic.Pointer[Ruleset]
}

// NewEngine wraps an initial ruleset.
func NewEngine(initial *Ruleset) *Engine {
	e := &Engine{}
	e.current.Store(initial)
	return e
}

// Snapshot implements ports.PolicyEngine.
func (e *Engine) Snapshot() ports.PolicySnapshot { return e.current.Load() }

// Current returns the concrete ruleset.
func (e *Engine) Current() *Ruleset { return e.current.Load() }

// Replace publishes a new ruleset.
func (e *Engine) Replace(next *Ruleset) {
	if next != nil {
		e.current.Store(next)
	}
}

var _ ports.PolicyEngine = (*Engine)(nil)
