package policy

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// Rule is a compiled RuleSpec.
type Rule struct {
	ID         string
	Pattern    string
	Categories []domain.Category
	Severity   domain.RuleSeverity
	Reason     string
	re         *regexp.Regexp
}

// Ruleset is an immutable, validated policy. Updates build a new Ruleset.
type Ruleset struct {
	source     string
	loadedAt   time.Time
	denylist   []Rule
	allowlist  []Rule
	compliance map[string][]Rule
	severities map[domain.Category]domain.RiskLevel
}

// Compile validates a document. Any problem yields a *domain.PolicyConfigError.
func Compile(doc Document, source string) (*Ruleset, error) {
	var errs []error
	seen := make(map[string]string)
	compileList := func(list string, specs []RuleSpec, requireSeverity bool) []Rule {
		out := make([]Rule, 0, len(specs))
		for i, spec := range specs {
			rule, err := compileRule(spec, requireSeverity)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s[%d]: %w", list, i, err))
				continue
			}
			if prev, dup := seen[rule.ID]; dup {
				errs = append(errs, fmt.Errorf("%s[%d]: duplicate rule id %q (also in %s)", list, i, rule.ID, prev))
				continue
			}
			seen[rule.ID] = list
			out = append(out, rule)
		}
		return out
	}

	rs := &Ruleset{
		source:     source,
		loadedAt:   time.Now(),
		compliance: make(map[string][]Rule),
		severities: make(map[domain.Category]domain.RiskLevel),
	}
	rs.denylist = compileList("denylist", doc.Denylist, false)
	rs.allowlist = compileList("allowlist", doc.Allowlist, false)

	for profile, specs := range doc.Compliance {
		name := strings.ToUpper(strings.TrimSpace(profile))
		if name == "" {
			errs = append(errs, errors.New("compliance profile with empty name"))
			continue
		}
		rs.compliance[name] = compileList("compliance."+name, specs, true)
	}

	for key, value := range doc.Severities {
		cat := domain.Category(strings.ToLower(strings.TrimSpace(key)))
		if !domain.KnownCategory(cat) {
			errs = append(errs, fmt.Errorf("severities: unknown category %q", key))
			continue
		}
		level, err := domain.ParseRiskLevel(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("severities.%s: %w", key, err))
			continue
		}
		rs.severities[cat] = level
	}

	if len(errs) > 0 {
		return nil, &domain.PolicyConfigError{Source: source, Err: errors.Join(errs...)}
	}
	return rs, nil
}

func compileRule(spec RuleSpec, requireSeverity bool) (Rule, error) {
	rule := Rule{
		ID:      strings.TrimSpace(spec.ID),
		Pattern: spec.Pattern,
		Reason:  spec.Reason,
	}
	if rule.ID == "" {
		return Rule{}, errors.New("rule id is required")
	}
	if spec.Pattern == "" && len(spec.Categories) == 0 {
		return Rule{}, fmt.Errorf("rule %q needs a pattern or categories", rule.ID)
	}
	if spec.Pattern != "" {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: invalid pattern: %w", rule.ID, err)
		}
		rule.re = re
	}
	for _, raw := range spec.Categories {
		cat := domain.Category(strings.ToLower(strings.TrimSpace(raw)))
		if !domain.KnownCategory(cat) {
			return Rule{}, fmt.Errorf("rule %q: unknown category %q", rule.ID, raw)
		}
		rule.Categories = append(rule.Categories, cat)
	}
	switch domain.RuleSeverity(strings.ToLower(spec.Severity)) {
	case domain.SeverityDeny:
		rule.Severity = domain.SeverityDeny
	case domain.SeverityConfirm:
		rule.Severity = domain.SeverityConfirm
	case "":
		if requireSeverity {
			return Rule{}, fmt.Errorf("rule %q: severity is required", rule.ID)
		}
	default:
		return Rule{}, fmt.Errorf("rule %q: unknown severity %q", rule.ID, spec.Severity)
	}
	if rule.Reason == "" {
		rule.Reason = rule.ID
	}
	return rule, nil
}

// matchText reports whether the rule's pattern matches the text. Rules without a
// pattern match any text.
func (r Rule) matchText(text string) bool {
	return r.re == nil || r.re.MatchString(text)
}

func (r Rule) matchCategories(cats []domain.Category) bool {
	if len(r.Categories) == 0 {
		return true
	}
	for _, want := range r.Categories {
		for _, got := range cats {
			if want == got {
				return true
			}
		}
	}
	return false
}

// matchCommand checks the whole command line and each segment.
func (r Rule) matchCommand(cls domain.Classification) bool {
	if !r.matchCategories(cls.Categories) {
		return false
	}
	if r.re == nil {
		return true
	}
	if r.matchText(cls.Command) {
		return true
	}
	for _, seg := range cls.Segments {
		if r.matchText(seg.Text) {
			return true
		}
	}
	return false
}

// Source is the file the ruleset was loaded from.
func (rs *Ruleset) Source() string { return rs.source }

// LoadedAt is when the ruleset was compiled.
func (rs *Ruleset) LoadedAt() time.Time { return rs.loadedAt }

// Severities returns a copy of the category severity overrides.
func (rs *Ruleset) Severities() map[domain.Category]domain.RiskLevel {
	out := make(map[domain.Category]domain.RiskLevel, len(rs.severities))
	for k, v := range rs.severities {
		out[k] = v
	}
	return out
}

// Denylist returns a copy of the deny rules.
func (rs *Ruleset) Denylist() []Rule { return append([]Rule(nil), rs.denylist...) }

// Allowlist returns a copy of the allow rules.
func (rs *Ruleset) Allowlist() []Rule { return append([]Rule(nil), rs.allowlist...) }

// ComplianceRules returns a copy of one profile's rules.
func (rs *Ruleset) ComplianceRules(profile string) []Rule {
	return append([]Rule(nil), rs.compliance[strings.ToUpper(profile)]...)
}

// Profiles lists known compliance profiles, sorted.
func (rs *Ruleset) Profiles() []string {
	out := make([]string, 0, len(rs.compliance))
	for name := range rs.compliance {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HasProfile reports whether a compliance profile exists. The empty profile always exists.
func (rs *Ruleset) HasProfile(profile string) bool {
	if profile == "" {
		return true
	}
	_, ok := rs.compliance[strings.ToUpper(profile)]
	return ok
}

var _ ports.PolicySnapshot = (*Ruleset)(nil)
