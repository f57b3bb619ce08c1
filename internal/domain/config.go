package domain

// Config mirrors ~/.aishell/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	Preferences         Preferences       `yaml:"preferences"`
	Models              []ModelDefinition `yaml:"models"`
	Policy              PolicySettings    `yaml:"policy"`
	Resources           ResourceSettings  `yaml:"resources"`
	Rollback            RollbackSettings  `yaml:"rollback"`
	Execution           ExecutionSettings `yaml:"execution"`
	Logging             LoggingSettings   `yaml:"logging"`
	Context             ContextSettings   `yaml:"context"`
	Cache               CacheSettings     `yaml:"cache"`
}

// Preferences captures user level toggles.
type Preferences struct {
	DefaultModel   string   `yaml:"default_model"`
	FallbackModels []string `yaml:"fallback_models"`
	Advanced       bool     `yaml:"advanced"`
	SplitMulti     bool     `yaml:"split_multi"`
}

// ModelDefinition describes one command generator backend.
type ModelDefinition struct {
	Name       string `yaml:"name"`
	Provider   string `yaml:"provider"`
	ModelID    string `yaml:"model_id"`
	Endpoint   string `yaml:"endpoint"`
	AuthEnvVar string `yaml:"auth_env_var"`
	MaxTokens  int    `yaml:"max_tokens"`
}

// Generator provider kinds.
const (
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
	ProviderHeuristic = "heuristic"
)

// PolicySettings locates the rule set and the compliance profile.
type PolicySettings struct {
	RulesFile         string `yaml:"rules_file"`
	ComplianceProfile string `yaml:"compliance_profile"`
	Watch             bool   `yaml:"watch"`
}

// ResourceSettings configures the resource gate.
type ResourceSettings struct {
	ResourceThresholds `yaml:",inline"`
	DiskPath           string `yaml:"disk_path"`
	CPUSampleInterval  string `yaml:"cpu_sample_interval"`
	SampleTimeout      string `yaml:"sample_timeout"`
}

// RollbackSettings configures snapshot capture and retention.
type RollbackSettings struct {
	Enabled        bool   `yaml:"enabled"`
	BackupDir      string `yaml:"backup_dir"`
	Retention      string `yaml:"retention"`
	AuditRetention string `yaml:"audit_retention"`
	MaxFiles       int    `yaml:"max_files"`
	MaxBytes       string `yaml:"max_bytes"`
}

// ExecutionSettings controls how commands run.
type ExecutionSettings struct {
	Shell          string `yaml:"shell"`
	Timeout        string `yaml:"timeout"`
	MaxOutputBytes string `yaml:"max_output_bytes"`
	WorkingDir     string `yaml:"working_dir"`
}

// LoggingSettings selects the outcome sink and the diagnostic log.
type LoggingSettings struct {
	Sink  string `yaml:"sink"`
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ContextSettings selects what the generator prompt may describe.
type ContextSettings struct {
	IncludeGit   bool     `yaml:"include_git"`
	IncludeTools bool     `yaml:"include_tools"`
	Tools        []string `yaml:"tools,omitempty"`
}

// CacheSettings configures the generator reply cache.
type CacheSettings struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	TTL        string `yaml:"ttl"`
	MaxEntries int    `yaml:"max_entries"`
}

// Outcome sink kinds.
const (
	SinkSQLite = "sqlite"
	SinkJSONL  = "jsonl"
)
