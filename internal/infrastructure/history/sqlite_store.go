package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// SQLiteStore persists outcome records in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStore creates (or opens) the database at path
// (default ~/.aishell/history/outcomes.db).
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.SecureDirectoryPermissions); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps writes ordered
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history database %s: %w", path, err)
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		command TEXT NOT NULL,
		prompt TEXT,
		verb TEXT,
		state TEXT NOT NULL,
		risk_level TEXT,
		verdict TEXT,
		exit_code INTEGER,
		status TEXT,
		duration_ms INTEGER,
		rollback_id TEXT,
		record TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS outcomes_timestamp ON outcomes(timestamp);`)
	return err
}

// Record implements ports.OutcomeSink.
func (s *SQLiteStore) Record(ctx context.Context, record domain.OutcomeRecord) error {
	blob, err := json.Marshal(record)
	if err != nil {
		return err
	}
	var exitCode sql.NullInt64
	var status sql.NullString
	var duration sql.NullInt64
	if record.Outcome != nil {
		exitCode = sql.NullInt64{Int64: int64(record.Outcome.ExitCode), Valid: true}
		status = sql.NullString{String: string(record.Outcome.Status), Valid: true}
		duration = sql.NullInt64{Int64: record.Outcome.DurationMS, Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `INSERT INTO outcomes
		(run_id, timestamp, command, prompt, verb, state, risk_level, verdict, exit_code, status, duration_ms, rollback_id, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.Command,
		record.Source.Prompt,
		verbOf(record),
		string(record.State),
		textOf(record.Classification.Risk),
		textOf(record.Verdict.Verdict),
		exitCode,
		status,
		duration,
		record.RollbackID,
		string(blob),
	)
	return err
}

func textOf(v interface{ MarshalText() ([]byte, error) }) string {
	b, err := v.MarshalText()
	if err != nil {
		return ""
	}
	return string(b)
}

// Records returns history entries, newest first.
func (s *SQLiteStore) Records(ctx context.Context, filter ports.HistoryFilter) ([]domain.OutcomeRecord, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT record FROM outcomes")
	var where []string
	var args []interface{}
	if filter.Search != "" {
		where = append(where, "(lower(prompt) LIKE ? OR lower(command) LIKE ?)")
		needle := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, needle, needle)
	}
	if filter.State != "" {
		where = append(where, "state = ?")
		args = append(args, string(filter.State))
	}
	if len(where) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(where, " AND "))
	}
	builder.WriteString(" ORDER BY timestamp DESC, id DESC")
	if filter.Limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}
	return s.query(ctx, builder.String(), args...)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...interface{}) ([]domain.OutcomeRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []domain.OutcomeRecord
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var rec domain.OutcomeRecord
		if err := json.Unmarshal([]byte(blob), &rec); err != nil {
			return nil, fmt.Errorf("decode outcome record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats aggregates counts in SQL and verbs from the verb column.
func (s *SQLiteStore) Stats(ctx context.Context) (ports.HistoryStats, error) {
	stats := ports.HistoryStats{
		ByState: make(map[domain.RunState]int),
		ByRisk:  make(map[domain.RiskLevel]int),
	}

	var first, last sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), MIN(timestamp), MAX(timestamp),
		COALESCE(SUM(CASE WHEN status IS NOT NULL AND status != ? THEN 1 ELSE 0 END), 0)
		FROM outcomes`, string(domain.ExecSucceeded)).Scan(&stats.Total, &first, &last, &stats.Failures)
	if err != nil {
		return stats, err
	}
	if first.Valid {
		stats.FirstSeen, _ = time.Parse(time.RFC3339Nano, first.String)
	}
	if last.Valid {
		stats.LastSeen, _ = time.Parse(time.RFC3339Nano, last.String)
	}

	if err := s.groupCount(ctx, "state", func(key string, n int) {
		stats.ByState[domain.RunState(key)] = n
	}); err != nil {
		return stats, err
	}
	if err := s.groupCount(ctx, "risk_level", func(key string, n int) {
		if level, err := domain.ParseRiskLevel(key); err == nil {
			stats.ByRisk[level] = n
		}
	}); err != nil {
		return stats, err
	}

	verbs := make(map[string]int)
	if err := s.groupCount(ctx, "verb", func(key string, n int) {
		if key != "" {
			verbs[key] = n
		}
	}); err != nil {
		return stats, err
	}
	stats.TopVerbs = topVerbs(verbs)

	commands, err := s.completedCommands(ctx)
	if err != nil {
		return stats, err
	}
	stats.TopCommands = topCommands(commands)
	return stats, nil
}

func (s *SQLiteStore) completedCommands(ctx context.Context) ([]ports.CommandCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT command, COUNT(*),
		SUM(CASE WHEN risk_level = ? THEN 0 ELSE 1 END)
		FROM outcomes WHERE state = ? GROUP BY command`,
		domain.RiskLow.String(), string(domain.StateCompleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ports.CommandCount
	for rows.Next() {
		var c ports.CommandCount
		var risky int
		if err := rows.Scan(&c.Command, &c.Count, &risky); err != nil {
			return nil, err
		}
		c.Safe = risky == 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// groupCount runs a GROUP BY over one of a fixed set of columns.
func (s *SQLiteStore) groupCount(ctx context.Context, column string, fn func(string, int)) error {
	switch column {
	case "state", "risk_level", "verb":
	default:
		return fmt.Errorf("unsupported group column %q", column)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT COALESCE("+column+", ''), COUNT(*) FROM outcomes GROUP BY 1")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		fn(key, n)
	}
	return rows.Err()
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM outcomes")
	return err
}

// Export writes the outcomes table as jsonl, oldest first.
func (s *SQLiteStore) Export(ctx context.Context, w io.Writer) error {
	records, err := s.query(ctx, "SELECT record FROM outcomes ORDER BY timestamp ASC, id ASC")
	if err != nil {
		return err
	}
	return writeJSONL(w, records)
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
