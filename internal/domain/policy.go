package domain

import "fmt"

// Verdict is the policy decision for a single command instance.
type Verdict int

const (
	VerdictAllow Verdict = iota + 1
	VerdictAllowWithWarning
	VerdictRequireExplicitConfirm
	VerdictDeny
)

var verdictNames = map[Verdict]string{
	VerdictAllow:                  "ALLOW",
	VerdictAllowWithWarning:       "ALLOW_WITH_WARNING",
	VerdictRequireExplicitConfirm: "REQUIRE_EXPLICIT_CONFIRM",
	VerdictDeny:                   "DENY",
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

func (v Verdict) MarshalText() ([]byte, error) {
	if v == 0 {
		return []byte{}, nil
	}
	if _, ok := verdictNames[v]; !ok {
		return nil, fmt.Errorf("invalid verdict %d", int(v))
	}
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*v = 0
		return nil
	}
	for verdict, name := range verdictNames {
		if name == string(text) {
			*v = verdict
			return nil
		}
	}
	return fmt.Errorf("unknown verdict %q", string(text))
}

// PolicyVerdict is the outcome of one policy evaluation.
type PolicyVerdict struct {
	Verdict    Verdict  `json:"verdict"`
	RuleIDs    []string `json:"rule_ids,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
	Compliance string   `json:"compliance,omitempty"`
}

// Denied reports whether the verdict forbids execution.
func (p PolicyVerdict) Denied() bool { return p.Verdict == VerdictDeny }

// NeedsExplicitConfirm reports whether auto-approval must never apply.
func (p PolicyVerdict) NeedsExplicitConfirm() bool {
	return p.Verdict == VerdictRequireExplicitConfirm
}

// RuleSeverity is how a compliance rule reacts when it matches.
type RuleSeverity string

const (
	SeverityDeny    RuleSeverity = "deny"
	SeverityConfirm RuleSeverity = "confirm"
)

// Compliance profile names.
const (
	ProfileGeneral = "GENERAL"
	ProfileSOX     = "SOX"
	ProfileHIPAA   = "HIPAA"
)
