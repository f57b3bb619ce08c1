package domain

import "time"

// RollbackStrategy tags how a record can be reversed.
type RollbackStrategy string

const (
	StrategyFileCopy    RollbackStrategy = "file-copy"
	StrategyUnavailable RollbackStrategy = "unavailable"
)

// RollbackTarget is a filesystem path resolved for snapshotting.
type RollbackTarget struct {
	Path    string `json:"path"`
	Existed bool   `json:"existed"`
	IsDir   bool   `json:"is_dir"`
	Size    int64  `json:"size"`
}

// RollbackPlan is the read-only result of planning a snapshot.
type RollbackPlan struct {
	Command     string           `json:"command"`
	Strategy    RollbackStrategy `json:"strategy"`
	Targets     []RollbackTarget `json:"targets,omitempty"`
	TotalBytes  int64            `json:"total_bytes"`
	TotalFiles  int              `json:"total_files"`
	Unavailable string           `json:"unavailable,omitempty"`
}

// Available reports whether the plan can produce a record.
func (p RollbackPlan) Available() bool {
	return p.Strategy == StrategyFileCopy && p.Unavailable == ""
}

// RollbackEntry links one original path to its backup artifact.
type RollbackEntry struct {
	Path     string `json:"path"`
	Artifact string `json:"artifact,omitempty"`
	Existed  bool   `json:"existed"`
	IsDir    bool   `json:"is_dir"`
	Mode     uint32 `json:"mode"`
}

// RollbackRecord references a captured backup.
type RollbackRecord struct {
	ID         string           `json:"id"`
	Command    string           `json:"command"`
	Strategy   RollbackStrategy `json:"strategy"`
	CreatedAt  time.Time        `json:"created_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
	Consumed   bool             `json:"consumed"`
	ConsumedAt *time.Time       `json:"consumed_at,omitempty"`
	Entries    []RollbackEntry  `json:"entries"`
}

// PrepareResult is either a record or an explicit unavailable reason. Never both.
type PrepareResult struct {
	Record      *RollbackRecord
	Unavailable string
}

// Available reports whether a record was captured.
func (r PrepareResult) Available() bool { return r.Record != nil }

// RollbackUnavailable builds the "no rollback available" result.
func RollbackUnavailable(reason string) PrepareResult {
	return PrepareResult{Unavailable: reason}
}
