// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the supervised execution core and
// external adapters (infrastructure). The core never depends on a concrete generator,
// telemetry source, prompt, or storage backend; it only sees the interfaces below.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., Classifier, RollbackManager)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"io"
	"time"

	"github.com/doeshing/aishell-go/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.aishell/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// Generator turns natural language into candidate command text.
// Its output is untrusted and always classified before anything else happens.
type Generator interface {
	Name() string
	Generate(context.Context, GenerateRequest) (GenerateResponse, error)
}

// GenerateRequest carries the prompt and generation options.
type GenerateRequest struct {
	Prompt      string
	Advanced    bool
	Model       domain.ModelDefinition
	Environment domain.EnvironmentSnapshot
}

// GenerateResponse holds the raw generated text.
type GenerateResponse struct {
	Text  string
	Model string
}

// EnvironmentCollector describes the working environment for the generator prompt.
type EnvironmentCollector interface {
	Collect(context.Context) domain.EnvironmentSnapshot
}

// ReplyCache stores generator replies keyed by request.
type ReplyCache interface {
	Get(key string) (domain.CacheEntry, bool, error)
	Set(entry domain.CacheEntry) error
	Entries() ([]domain.CacheEntry, error)
	Clear() error
}

// Classifier derives a Classification from command text. It must be deterministic.
type Classifier interface {
	Classify(command string) domain.Classification
}

// PolicyEngine hands out immutable rule snapshots.
// A run cycle takes one snapshot and evaluates every classification against it.
type PolicyEngine interface {
	Snapshot() PolicySnapshot
}

// PolicySnapshot evaluates classifications against one immutable rule set.
type PolicySnapshot interface {
	Evaluate(cls domain.Classification, profile string) domain.PolicyVerdict
	Profiles() []string
}

// ResourceSampler reads live system telemetry.
type ResourceSampler interface {
	Sample(context.Context) (domain.ResourceSample, error)
}

// ResourceGate turns a sample into a PROCEED/WARN/BLOCK decision.
// A non-nil error means the gate itself crashed; telemetry failures are reported as WARN.
type ResourceGate interface {
	Check(context.Context) (domain.ResourceSnapshot, error)
}

// RollbackManager snapshots filesystem targets before destructive commands run.
type RollbackManager interface {
	Plan(ctx context.Context, command string, cls domain.Classification) (domain.RollbackPlan, error)
	Capture(ctx context.Context, plan domain.RollbackPlan) (domain.PrepareResult, error)
	Prepare(ctx context.Context, command string, cls domain.Classification) (domain.PrepareResult, error)
	Restore(ctx context.Context, id string) (domain.RollbackRecord, error)
	Get(ctx context.Context, id string) (domain.RollbackRecord, error)
	List(ctx context.Context) ([]domain.RollbackRecord, error)
	Prune(ctx context.Context, now time.Time) (int, error)
}

// CommandExecutor runs shell commands in the configured shell environment.
// A returned error means the process never started; exit codes live in the result.
type CommandExecutor interface {
	Execute(ctx context.Context, command string, timeout time.Duration) (domain.ExecutionResult, error)
}

// ConfirmationPrompter is the interactive surface consulted at AWAITING_CONFIRMATION.
type ConfirmationPrompter interface {
	Present(ctx context.Context, req domain.ConfirmationRequest) (domain.Decision, error)
	OfferRollback(ctx context.Context, record domain.RollbackRecord, outcome domain.ExecutionOutcome) (bool, error)
	Enabled() bool
}

// OutcomeSink receives exactly one record per run cycle.
type OutcomeSink interface {
	Record(context.Context, domain.OutcomeRecord) error
}

// HistoryFilter narrows history queries.
type HistoryFilter struct {
	Limit  int
	Search string
	State  domain.RunState
}

// HistoryStats summarises stored outcomes. TopCommands counts completed runs
// by command text, most frequent first.
type HistoryStats struct {
	Total       int
	ByState     map[domain.RunState]int
	ByRisk      map[domain.RiskLevel]int
	Failures    int
	TopVerbs    []VerbCount
	TopCommands []CommandCount
	FirstSeen   time.Time
	LastSeen    time.Time
}

// VerbCount pairs a command verb with its frequency.
type VerbCount struct {
	Verb  string
	Count int
}

// CommandCount pairs a completed command with its frequency. Safe is true
// when every recorded run of the command was classified LOW.
type CommandCount struct {
	Command string
	Count   int
	Safe    bool
}

// HistoryRepository is an OutcomeSink that can also be queried.
type HistoryRepository interface {
	OutcomeSink
	Records(ctx context.Context, filter HistoryFilter) ([]domain.OutcomeRecord, error)
	Stats(ctx context.Context) (HistoryStats, error)
	Clear(ctx context.Context) error
	Export(ctx context.Context, w io.Writer) error
	Close() error
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
