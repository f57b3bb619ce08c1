// Package history stores one outcome record per supervised run.
package history

import (
	"path/filepath"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/pkg/filesystem"
	"github.com/doeshing/aishell-go/internal/ports"
)

// DefaultSQLitePath is ~/.aishell/history/outcomes.db.
func DefaultSQLitePath() string {
	return filepath.Join(filesystem.AppDir(), "history", "outcomes.db")
}

// DefaultJSONLPath is ~/.aishell/history/outcomes.jsonl.
func DefaultJSONLPath() string {
	return filepath.Join(filesystem.AppDir(), "history", "outcomes.jsonl")
}

// Open returns the sink selected by logging.sink. When the SQLite database
// cannot be opened the JSONL store next to it is used instead.
func Open(cfg domain.Config, logger ports.Logger) ports.HistoryRepository {
	path := cfg.Logging.Path
	if path != "" {
		path = filesystem.ExpandPath(path, "")
	}
	if cfg.GetSinkKind() == domain.SinkJSONL {
		return NewFileStore(path)
	}
	store, err := NewSQLiteStore(path)
	if err == nil {
		return store
	}
	fallback := DefaultJSONLPath()
	if path != "" {
		fallback = path + ".jsonl"
	}
	logger.Warn("sqlite history unavailable, using jsonl", map[string]interface{}{
		"error":    err.Error(),
		"fallback": fallback,
	})
	return NewFileStore(fallback)
}
