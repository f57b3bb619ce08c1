package policy

// Document is the YAML schema of a policy file.
type Document struct {
	Version    int                   `yaml:"version"`
	Denylist   []RuleSpec            `yaml:"denylist"`
	Allowlist  []RuleSpec            `yaml:"allowlist"`
	Severities map[string]string     `yaml:"severities"`
	Compliance map[string][]RuleSpec `yaml:"compliance"`
}

// RuleSpec is one pattern rule as written in the policy file.
// A rule with both a pattern and categories matches only when both do.
type RuleSpec struct {
	ID         string   `yaml:"id"`
	Pattern    string   `yaml:"pattern,omitempty"`
	Categories []string `yaml:"categories,omitempty"`
	Severity   string   `yaml:"severity,omitempty"`
	Reason     string   `yaml:"reason,omitempty"`
}
