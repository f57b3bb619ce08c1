package rollback

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/doeshing/aishell-go/internal/domain"
)

const (
	manifestName = "manifest.json"
	dataDirName  = "data"
	lockName     = ".lock"
)

// manifestStore keeps one directory per record: <dir>/<id>/manifest.json plus
// the copied artifacts under <dir>/<id>/data. Callers hold the manager lock.
type manifestStore struct {
	dir string
}

func (s *manifestStore) recordDir(id string) string {
	return filepath.Join(s.dir, id)
}

func (s *manifestStore) artifactPath(id, artifact string) string {
	return filepath.Join(s.recordDir(id), artifact)
}

// save writes the manifest through a temp file and rename.
func (s *manifestStore) save(rec domain.RollbackRecord) error {
	dir := s.recordDir(rec.ID)
	if err := os.MkdirAll(dir, domain.SecureDirectoryPermissions); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, manifestName+".tmp")
	if err := os.WriteFile(tmp, data, domain.SecureFilePermissions); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, manifestName))
}

func (s *manifestStore) load(id string) (domain.RollbackRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.RollbackRecord{}, fmt.Errorf("%w: %q", domain.ErrRollbackNotFound, id)
	}
	data, err := os.ReadFile(filepath.Join(s.recordDir(id), manifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.RollbackRecord{}, fmt.Errorf("%w: %s", domain.ErrRollbackNotFound, id)
	}
	if err != nil {
		return domain.RollbackRecord{}, err
	}
	var rec domain.RollbackRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.RollbackRecord{}, fmt.Errorf("decode manifest %s: %w", id, err)
	}
	return rec, nil
}

// list returns every readable record, newest first. Unreadable manifests are
// reported through skipped and left on disk.
func (s *manifestStore) list() (records []domain.RollbackRecord, skipped []error, err error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, perr := uuid.Parse(e.Name()); perr != nil {
			continue
		}
		rec, lerr := s.load(e.Name())
		if lerr != nil {
			skipped = append(skipped, lerr)
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, skipped, nil
}

func (s *manifestStore) remove(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrRollbackNotFound, id)
	}
	return os.RemoveAll(s.recordDir(id))
}
