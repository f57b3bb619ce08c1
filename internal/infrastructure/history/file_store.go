package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// FileStore appends outcome records to a jsonl file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store at path (default ~/.aishell/history/outcomes.jsonl).
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultJSONLPath()
	}
	return &FileStore{path: path}
}

// Record implements ports.OutcomeSink.
func (f *FileStore) Record(_ context.Context, record domain.OutcomeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), domain.SecureDirectoryPermissions); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.SecureFilePermissions)
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = file.Write(data)
	return err
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Clear removes the history file.
func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Records returns matching records, newest first.
func (f *FileStore) Records(_ context.Context, filter ports.HistoryFilter) ([]domain.OutcomeRecord, error) {
	all, err := f.load()
	if err != nil {
		return nil, err
	}
	var out []domain.OutcomeRecord
	for i := len(all) - 1; i >= 0; i-- {
		if !matches(all[i], filter) {
			continue
		}
		out = append(out, all[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Stats summarises every stored record.
func (f *FileStore) Stats(context.Context) (ports.HistoryStats, error) {
	all, err := f.load()
	if err != nil {
		return ports.HistoryStats{}, err
	}
	return computeStats(all), nil
}

// Export copies every record as jsonl, oldest first.
func (f *FileStore) Export(_ context.Context, w io.Writer) error {
	all, err := f.load()
	if err != nil {
		return err
	}
	return writeJSONL(w, all)
}

// Close is a no-op; the file is opened per write.
func (f *FileStore) Close() error { return nil }

// load reads all records (best-effort: malformed lines are skipped).
func (f *FileStore) load() ([]domain.OutcomeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var records []domain.OutcomeRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec domain.OutcomeRecord
		if err := json.Unmarshal(line, &rec); err == nil {
			records = append(records, rec)
		}
	}
	return records, scanner.Err()
}

func writeJSONL(w io.Writer, records []domain.OutcomeRecord) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

var _ ports.HistoryRepository = (*FileStore)(nil)
