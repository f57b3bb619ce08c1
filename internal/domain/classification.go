package domain

import (
	"fmt"
	"strings"
)

// RiskLevel is the ordered risk score assigned by the classifier.
type RiskLevel int

const (
	RiskLow RiskLevel = iota + 1
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskNames = map[RiskLevel]string{
	RiskLow:      "LOW",
	RiskMedium:   "MEDIUM",
	RiskHigh:     "HIGH",
	RiskCritical: "CRITICAL",
}

func (r RiskLevel) String() string {
	if name, ok := riskNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RiskLevel(%d)", int(r))
}

// Valid reports whether r is one of the defined levels.
func (r RiskLevel) Valid() bool {
	_, ok := riskNames[r]
	return ok
}

// ParseRiskLevel accepts the level names case-insensitively.
func ParseRiskLevel(value string) (RiskLevel, error) {
	needle := strings.ToUpper(strings.TrimSpace(value))
	for level, name := range riskNames {
		if name == needle {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown risk level %q", value)
}

// MarshalText encodes the zero value as an empty string.
func (r RiskLevel) MarshalText() ([]byte, error) {
	if r == 0 {
		return []byte{}, nil
	}
	if !r.Valid() {
		return nil, fmt.Errorf("invalid risk level %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *RiskLevel) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = 0
		return nil
	}
	level, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// MaxRisk reduces levels to the most severe one. An empty input yields RiskMedium.
func MaxRisk(levels ...RiskLevel) RiskLevel {
	if len(levels) == 0 {
		return RiskMedium
	}
	worst := levels[0]
	for _, l := range levels[1:] {
		if l > worst {
			worst = l
		}
	}
	return worst
}

// Category is an operation category detected in a command.
type Category string

const (
	CategoryReadOnly            Category = "read-only"
	CategoryFilesystemWrite     Category = "filesystem-write"
	CategoryFilesystemDelete    Category = "filesystem-delete"
	CategoryPermissionChange    Category = "permission-change"
	CategoryNetwork             Category = "network"
	CategoryNetworkExfiltration Category = "network-exfiltration"
	CategoryRemoteCodeExecution Category = "remote-code-execution"
	CategoryProcessControl      Category = "process-control"
	CategoryPackageManagement   Category = "package-management"
	CategoryPrivilegeEscalation Category = "privilege-escalation"
	CategoryDeviceWrite         Category = "device-write"
	CategoryResourceExhaustion  Category = "resource-exhaustion"
	CategorySystemDestruction   Category = "system-destruction"
	CategorySystemControl       Category = "system-control"
	CategoryCredentialAccess    Category = "credential-access"
	CategoryUnknown             Category = "unknown"
)

// AllCategories lists every category in a stable order.
func AllCategories() []Category {
	return []Category{
		CategoryReadOnly,
		CategoryFilesystemWrite,
		CategoryFilesystemDelete,
		CategoryPermissionChange,
		CategoryNetwork,
		CategoryNetworkExfiltration,
		CategoryRemoteCodeExecution,
		CategoryProcessControl,
		CategoryPackageManagement,
		CategoryPrivilegeEscalation,
		CategoryDeviceWrite,
		CategoryResourceExhaustion,
		CategorySystemDestruction,
		CategorySystemControl,
		CategoryCredentialAccess,
		CategoryUnknown,
	}
}

// KnownCategory reports whether c is a defined category.
func KnownCategory(c Category) bool {
	for _, known := range AllCategories() {
		if known == c {
			return true
		}
	}
	return false
}

// Destructive reports whether the category changes or removes filesystem state.
func (c Category) Destructive() bool {
	switch c {
	case CategoryFilesystemDelete, CategoryFilesystemWrite, CategoryPermissionChange:
		return true
	}
	return false
}

// SegmentClassification is the assessment of one compound-command segment.
type SegmentClassification struct {
	Text       string     `json:"text"`
	Verb       string     `json:"verb"`
	Args       []string   `json:"args,omitempty"`
	Targets    []string   `json:"targets,omitempty"`
	Categories []Category `json:"categories"`
	Risk       RiskLevel  `json:"risk"`
	Signals    []string   `json:"signals,omitempty"`
}

// Classification is the structured assessment of a whole candidate command.
type Classification struct {
	Command    string                  `json:"command"`
	Segments   []SegmentClassification `json:"segments"`
	Categories []Category              `json:"categories"`
	Risk       RiskLevel               `json:"risk"`
	Signals    []string                `json:"signals,omitempty"`
	Rationale  string                  `json:"rationale"`
	ParseError string                  `json:"parse_error,omitempty"`
}

// Has reports whether the classification includes the category.
func (c Classification) Has(cat Category) bool {
	for _, existing := range c.Categories {
		if existing == cat {
			return true
		}
	}
	return false
}

// Destructive reports whether any category touches the filesystem destructively.
func (c Classification) Destructive() bool {
	for _, cat := range c.Categories {
		if cat.Destructive() {
			return true
		}
	}
	return false
}

// Targets lists filesystem targets across all segments, in order, without duplicates.
func (c Classification) Targets() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, seg := range c.Segments {
		for _, t := range seg.Targets {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
