// Package rollback snapshots filesystem targets before destructive commands
// and restores them on request.
package rollback

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/pkg/filesystem"
	"github.com/doeshing/aishell-go/internal/ports"
)

// Options configures a Manager.
type Options struct {
	Dir            string
	Enabled        bool
	Retention      time.Duration
	AuditRetention time.Duration
	MaxFiles       int
	MaxBytes       int64
	// WorkDir resolves relative targets. Empty means the process working directory.
	WorkDir string
}

// OptionsFromConfig maps the rollback and execution config sections.
func OptionsFromConfig(cfg domain.Config) Options {
	return Options{
		Dir:            filesystem.ExpandPath(cfg.Rollback.BackupDir, "backups"),
		Enabled:        cfg.Rollback.Enabled,
		Retention:      cfg.GetRollbackRetention(),
		AuditRetention: cfg.GetAuditRetention(),
		MaxFiles:       cfg.GetRollbackMaxFiles(),
		MaxBytes:       cfg.GetRollbackMaxBytes(),
		WorkDir:        cfg.Execution.WorkingDir,
	}
}

// Manager implements ports.RollbackManager with file copies.
//
// Record creation and consumption run one at a time: an in-process mutex plus
// an flock on the backup directory.
type Manager struct {
	opts   Options
	store  *manifestStore
	logger ports.Logger
	mu     sync.Mutex
	now    func() time.Time
}

// NewManager builds a manager rooted at opts.Dir.
func NewManager(opts Options, logger ports.Logger) *Manager {
	if opts.Retention <= 0 {
		opts.Retention = domain.DefaultRollbackRetention
	}
	if opts.AuditRetention <= 0 {
		opts.AuditRetention = domain.DefaultAuditRetention
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = domain.DefaultRollbackMaxFiles
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = domain.DefaultRollbackMaxBytes
	}
	return &Manager{
		opts:   opts,
		store:  &manifestStore{dir: opts.Dir},
		logger: logger,
		now:    time.Now,
	}
}

// Dir is the backup root.
func (m *Manager) Dir() string { return m.opts.Dir }

// categories with side effects a file copy cannot reverse
var unsnapshottable = []domain.Category{
	domain.CategorySystemDestruction,
	domain.CategoryDeviceWrite,
	domain.CategoryRemoteCodeExecution,
	domain.CategoryPackageManagement,
	domain.CategorySystemControl,
}

// Plan resolves the targets a snapshot would copy. It only reads the filesystem.
func (m *Manager) Plan(ctx context.Context, command string, cls domain.Classification) (domain.RollbackPlan, error) {
	unavailable := func(format string, args ...interface{}) (domain.RollbackPlan, error) {
		return domain.RollbackPlan{
			Command:     command,
			Strategy:    domain.StrategyUnavailable,
			Unavailable: fmt.Sprintf(format, args...),
		}, nil
	}

	if !m.opts.Enabled {
		return unavailable("rollback is disabled")
	}
	if !cls.Destructive() {
		return unavailable("command does not modify the filesystem")
	}
	for _, cat := range unsnapshottable {
		if cls.Has(cat) {
			return unavailable("%s effects cannot be snapshotted", cat)
		}
	}

	targets := cls.Targets()
	if dir := directoryChange(cls); dir != "" && anyRelative(targets) {
		return unavailable("working directory changes inside the command (%s)", dir)
	}
	paths, reason := m.resolveTargets(targets)
	if reason != "" {
		return unavailable("%s", reason)
	}
	if len(paths) == 0 {
		return unavailable("no explicit filesystem targets")
	}

	plan := domain.RollbackPlan{Command: command, Strategy: domain.StrategyFileCopy}
	stop := ctx.Err
	for _, p := range paths {
		info, err := os.Lstat(p)
		if errors.Is(err, fs.ErrNotExist) {
			plan.Targets = append(plan.Targets, domain.RollbackTarget{Path: p})
			continue
		}
		if err != nil {
			return unavailable("cannot inspect %s: %v", p, err)
		}
		files, size, err := measure(p, stop)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.RollbackPlan{}, ctxErr
			}
			return unavailable("cannot inspect %s: %v", p, err)
		}
		plan.Targets = append(plan.Targets, domain.RollbackTarget{
			Path:    p,
			Existed: true,
			IsDir:   info.IsDir(),
			Size:    size,
		})
		plan.TotalFiles += files
		plan.TotalBytes += size
		if plan.TotalFiles > m.opts.MaxFiles {
			return unavailable("snapshot exceeds %d files", m.opts.MaxFiles)
		}
		if plan.TotalBytes > m.opts.MaxBytes {
			return unavailable("snapshot exceeds %s", humanize.IBytes(uint64(m.opts.MaxBytes)))
		}
	}
	return plan, nil
}

// directoryChange returns the construct that makes later relative paths
// resolve somewhere other than the working directory, or "".
func directoryChange(cls domain.Classification) string {
	for _, seg := range cls.Segments {
		switch strings.TrimLeft(seg.Verb, "({") {
		case "cd", "pushd", "popd", "chdir":
			return seg.Verb
		}
		if len(seg.Targets) == 0 {
			continue
		}
		for _, word := range strings.Fields(seg.Text) {
			switch {
			case word == "-C", word == "--directory", word == "--chdir",
				strings.HasPrefix(word, "--directory="), strings.HasPrefix(word, "--chdir="):
				return word
			case strings.HasPrefix(word, "-C") && !strings.HasPrefix(word, "--"):
				return "-C"
			}
		}
	}
	return ""
}

func anyRelative(targets []string) bool {
	for _, t := range targets {
		if !filepath.IsAbs(t) && t != "~" && !strings.HasPrefix(t, "~/") {
			return true
		}
	}
	return false
}

// resolveTargets turns classifier targets into absolute, de-nested paths.
func (m *Manager) resolveTargets(raw []string) ([]string, string) {
	base := m.opts.WorkDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Sprintf("cannot resolve working directory: %v", err)
		}
		base = wd
	}

	var out []string
	for _, t := range raw {
		if strings.ContainsAny(t, "$`") {
			return nil, fmt.Sprintf("target %q depends on shell expansion", t)
		}
		p := t
		if p == "~" || strings.HasPrefix(p, "~/") {
			p = filepath.Join(filesystem.UserHomeDir(), strings.TrimPrefix(p, "~"))
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		p = filepath.Clean(p)
		if p == string(filepath.Separator) {
			return nil, "target is the filesystem root"
		}
		if strings.ContainsAny(p, "*?[") {
			matches, err := filepath.Glob(p)
			if err != nil {
				return nil, fmt.Sprintf("bad pattern %q: %v", t, err)
			}
			out = append(out, matches...)
			continue
		}
		out = append(out, p)
	}

	sort.Strings(out)
	var kept []string
	for _, p := range out {
		if n := len(kept); n > 0 {
			last := kept[n-1]
			if p == last || strings.HasPrefix(p, last+string(filepath.Separator)) {
				continue
			}
		}
		kept = append(kept, p)
	}
	return kept, ""
}

// Capture copies the planned targets into a new record.
func (m *Manager) Capture(ctx context.Context, plan domain.RollbackPlan) (domain.PrepareResult, error) {
	if !plan.Available() {
		reason := plan.Unavailable
		if reason == "" {
			reason = "no rollback plan"
		}
		return domain.RollbackUnavailable(reason), nil
	}

	unlock, err := m.lock()
	if err != nil {
		return domain.PrepareResult{}, err
	}
	defer unlock()

	now := m.now()
	rec := domain.RollbackRecord{
		ID:        uuid.NewString(),
		Command:   plan.Command,
		Strategy:  domain.StrategyFileCopy,
		CreatedAt: now,
		ExpiresAt: now.Add(m.opts.Retention),
	}
	recDir := m.store.recordDir(rec.ID)
	if err := os.MkdirAll(filepath.Join(recDir, dataDirName), domain.SecureDirectoryPermissions); err != nil {
		return domain.PrepareResult{}, err
	}

	fail := func(err error) (domain.PrepareResult, error) {
		_ = os.RemoveAll(recDir)
		return domain.PrepareResult{}, fmt.Errorf("capture snapshot: %w", err)
	}
	for i, t := range plan.Targets {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		entry := domain.RollbackEntry{Path: t.Path, Existed: t.Existed, IsDir: t.IsDir}
		if t.Existed {
			info, err := os.Lstat(t.Path)
			if err != nil {
				return fail(err)
			}
			entry.Mode = uint32(info.Mode())
			entry.IsDir = info.IsDir()
			entry.Artifact = filepath.Join(dataDirName, strconv.Itoa(i))
			dst := m.store.artifactPath(rec.ID, entry.Artifact)
			if err := copyTree(t.Path, dst); err != nil {
				return fail(err)
			}
		}
		rec.Entries = append(rec.Entries, entry)
	}
	if err := m.store.save(rec); err != nil {
		return fail(err)
	}

	m.logger.Info("rollback snapshot captured", map[string]interface{}{
		"id":      rec.ID,
		"entries": len(rec.Entries),
		"bytes":   plan.TotalBytes,
	})
	return domain.PrepareResult{Record: &rec}, nil
}

// Prepare plans and captures in one step.
func (m *Manager) Prepare(ctx context.Context, command string, cls domain.Classification) (domain.PrepareResult, error) {
	plan, err := m.Plan(ctx, command, cls)
	if err != nil {
		return domain.PrepareResult{}, err
	}
	return m.Capture(ctx, plan)
}

// Restore puts every entry back the way it was and marks the record consumed.
// Paths that did not exist before the command are removed.
func (m *Manager) Restore(ctx context.Context, id string) (domain.RollbackRecord, error) {
	unlock, err := m.lock()
	if err != nil {
		return domain.RollbackRecord{}, err
	}
	defer unlock()

	rec, err := m.store.load(id)
	if err != nil {
		return domain.RollbackRecord{}, &domain.RollbackRestoreError{ID: id, Err: err}
	}
	if rec.Consumed {
		return rec, &domain.RollbackRestoreError{ID: id, Err: domain.ErrRollbackConsumed}
	}
	if rec.Strategy != domain.StrategyFileCopy {
		return rec, &domain.RollbackRestoreError{ID: id, Err: fmt.Errorf("strategy %q is not restorable", rec.Strategy)}
	}
	for _, e := range rec.Entries {
		if !e.Existed {
			continue
		}
		if _, err := os.Lstat(m.store.artifactPath(id, e.Artifact)); err != nil {
			return rec, &domain.RollbackRestoreError{ID: id, Err: fmt.Errorf("%w: %s", domain.ErrBackupMissing, e.Path)}
		}
	}

	for _, e := range rec.Entries {
		if err := ctx.Err(); err != nil {
			return rec, &domain.RollbackRestoreError{ID: id, Err: err}
		}
		if err := m.restoreEntry(id, e); err != nil {
			return rec, &domain.RollbackRestoreError{ID: id, Err: fmt.Errorf("%s: %w", e.Path, err)}
		}
	}

	now := m.now()
	rec.Consumed = true
	rec.ConsumedAt = &now
	rec.ExpiresAt = now.Add(m.opts.AuditRetention)
	if err := m.store.save(rec); err != nil {
		return rec, &domain.RollbackRestoreError{ID: id, Err: fmt.Errorf("mark consumed: %w", err)}
	}
	m.logger.Info("rollback restored", map[string]interface{}{"id": id, "entries": len(rec.Entries)})
	return rec, nil
}

func (m *Manager) restoreEntry(id string, e domain.RollbackEntry) error {
	if err := os.RemoveAll(e.Path); err != nil {
		return err
	}
	if !e.Existed {
		return nil
	}
	src := m.store.artifactPath(id, e.Artifact)
	if err := copyTree(src, e.Path); err != nil {
		return err
	}
	if !e.IsDir {
		return nil
	}
	if err := applyDirModes(src, e.Path); err != nil {
		return err
	}
	return os.Chmod(e.Path, fs.FileMode(e.Mode).Perm())
}

// Get loads one record.
func (m *Manager) Get(_ context.Context, id string) (domain.RollbackRecord, error) {
	return m.store.load(id)
}

// List returns all records, newest first.
func (m *Manager) List(_ context.Context) ([]domain.RollbackRecord, error) {
	records, skipped, err := m.store.list()
	for _, s := range skipped {
		m.logger.Warn("skipping unreadable rollback manifest", map[string]interface{}{"error": s.Error()})
	}
	return records, err
}

// Prune deletes records whose retention window has passed. Unconsumed records
// expire after Retention, consumed ones after AuditRetention from consumption.
func (m *Manager) Prune(ctx context.Context, now time.Time) (int, error) {
	unlock, err := m.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()

	records, skipped, err := m.store.list()
	if err != nil {
		return 0, err
	}
	for _, s := range skipped {
		m.logger.Warn("skipping unreadable rollback manifest", map[string]interface{}{"error": s.Error()})
	}

	removed := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !now.After(rec.ExpiresAt) {
			continue
		}
		if err := m.store.remove(rec.ID); err != nil {
			return removed, err
		}
		removed++
		m.logger.Info("rollback record pruned", map[string]interface{}{
			"id":       rec.ID,
			"consumed": rec.Consumed,
			"created":  rec.CreatedAt.Format(domain.TimestampFormat),
		})
	}
	return removed, nil
}

func (m *Manager) lock() (func(), error) {
	m.mu.Lock()
	fl, err := acquireFileLock(m.opts.Dir)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("lock rollback store: %w", err)
	}
	return func() {
		if err := fl.release(); err != nil {
			m.logger.Warn("rollback lock release failed", map[string]interface{}{"error": err.Error()})
		}
		m.mu.Unlock()
	}, nil
}

var _ ports.RollbackManager = (*Manager)(nil)
