package rollback

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/infrastructure/classifier"
	"github.com/doeshing/aishell-go/internal/pkg/logger"
)

func newTestManager(t *testing.T, mutate func(*Options)) (*Manager, string) {
	t.Helper()
	work := t.TempDir()
	opts := Options{
		Dir:     filepath.Join(t.TempDir(), "backups"),
		Enabled: true,
		WorkDir: work,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewManager(opts, logger.NewNop()), work
}

func writeFile(t *testing.T, path, body string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), mode))
	require.NoError(t, os.Chmod(path, mode))
}

func prepare(t *testing.T, m *Manager, command string) domain.PrepareResult {
	t.Helper()
	cls := classifier.New(nil).Classify(command)
	res, err := m.Prepare(context.Background(), command, cls)
	require.NoError(t, err)
	return res
}

func TestPrepareAndRestore_RoundTrip(t *testing.T) {
	m, work := newTestManager(t, nil)
	data := filepath.Join(work, "data")
	writeFile(t, filepath.Join(data, "a.txt"), "alpha\n", 0o644)
	writeFile(t, filepath.Join(data, "sub", "b.bin"), string([]byte{0, 1, 2, 255}), 0o600)
	require.NoError(t, os.Symlink("a.txt", filepath.Join(data, "link")))

	res := prepare(t, m, "rm -rf ./data")
	require.True(t, res.Available(), res.Unavailable)
	rec := res.Record
	require.Len(t, rec.Entries, 1)
	assert.Equal(t, data, rec.Entries[0].Path)
	assert.True(t, rec.Entries[0].IsDir)
	assert.False(t, rec.Consumed)

	require.NoError(t, os.RemoveAll(data))

	restored, err := m.Restore(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, restored.Consumed)
	require.NotNil(t, restored.ConsumedAt)

	got, err := os.ReadFile(filepath.Join(data, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha\n", string(got))
	got, err = os.ReadFile(filepath.Join(data, "sub", "b.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 255}, got)
	info, err := os.Stat(filepath.Join(data, "sub", "b.bin"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	link, err := os.Readlink(filepath.Join(data, "link"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", link)
}

func TestRestore_RemovesPathsCreatedByCommand(t *testing.T) {
	m, work := newTestManager(t, nil)
	res := prepare(t, m, "echo hi > new.txt")
	require.True(t, res.Available(), res.Unavailable)
	require.Len(t, res.Record.Entries, 1)
	assert.False(t, res.Record.Entries[0].Existed)

	target := filepath.Join(work, "new.txt")
	writeFile(t, target, "hi\n", 0o644)

	_, err := m.Restore(context.Background(), res.Record.ID)
	require.NoError(t, err)
	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestRestore_OverwrittenFile(t *testing.T) {
	m, work := newTestManager(t, nil)
	target := filepath.Join(work, "notes.md")
	writeFile(t, target, "original", 0o640)

	res := prepare(t, m, "echo replaced > notes.md")
	require.True(t, res.Available(), res.Unavailable)
	writeFile(t, target, "replaced\n", 0o644)

	_, err := m.Restore(context.Background(), res.Record.ID)
	require.NoError(t, err)
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
}

func TestRestore_Twice(t *testing.T) {
	m, work := newTestManager(t, nil)
	writeFile(t, filepath.Join(work, "a.log"), "x", 0o644)
	res := prepare(t, m, "rm a.log")
	require.True(t, res.Available())

	_, err := m.Restore(context.Background(), res.Record.ID)
	require.NoError(t, err)

	_, err = m.Restore(context.Background(), res.Record.ID)
	var restoreErr *domain.RollbackRestoreError
	require.ErrorAs(t, err, &restoreErr)
	assert.ErrorIs(t, err, domain.ErrRollbackConsumed)
	assert.NotErrorIs(t, err, domain.ErrBackupMissing)
}

func TestRestore_ConcurrentCallersConsumeOnce(t *testing.T) {
	m, work := newTestManager(t, nil)
	writeFile(t, filepath.Join(work, "a.log"), "x", 0o644)
	res := prepare(t, m, "rm a.log")
	require.True(t, res.Available())

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Restore(context.Background(), res.Record.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrRollbackConsumed)
	}
	assert.Equal(t, 1, succeeded)
}

func TestRestore_MissingArtifact(t *testing.T) {
	m, work := newTestManager(t, nil)
	writeFile(t, filepath.Join(work, "a.log"), "x", 0o644)
	res := prepare(t, m, "rm a.log")
	require.True(t, res.Available())

	require.NoError(t, os.RemoveAll(filepath.Join(m.Dir(), res.Record.ID, dataDirName)))

	_, err := m.Restore(context.Background(), res.Record.ID)
	assert.ErrorIs(t, err, domain.ErrBackupMissing)

	rec, err := m.Get(context.Background(), res.Record.ID)
	require.NoError(t, err)
	assert.False(t, rec.Consumed)
}

func TestRestore_UnknownID(t *testing.T) {
	m, _ := newTestManager(t, nil)
	for _, id := range []string{"00000000-0000-0000-0000-000000000000", "../etc"} {
		_, err := m.Restore(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrRollbackNotFound)
	}
}

func TestPrepare_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		command string
		mutate  func(*Options)
	}{
		{name: "read only", command: "ls -la"},
		{name: "network only", command: "ping -c 1 example.com"},
		{name: "system destruction", command: "rm -rf /"},
		{name: "shell expansion", command: "rm -rf $BUILD_DIR/out"},
		{name: "package manager", command: "npm install left-pad > install.log"},
		{name: "disabled", command: "rm a.log", mutate: func(o *Options) { o.Enabled = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t, tt.mutate)
			res := prepare(t, m, tt.command)
			assert.False(t, res.Available())
			assert.Nil(t, res.Record)
			assert.NotEmpty(t, res.Unavailable)

			records, err := m.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestPrepare_DirectoryChangeInsideCommand(t *testing.T) {
	for _, command := range []string{
		"cd sub && rm data.txt",
		"pushd sub; rm -f data.txt; popd",
		"git -C sub clean -fd",
		"env -C sub rm data.txt",
	} {
		t.Run(command, func(t *testing.T) {
			m, work := newTestManager(t, nil)
			writeFile(t, filepath.Join(work, "sub", "data.txt"), "keep me\n", 0o644)

			res := prepare(t, m, command)
			assert.False(t, res.Available())
			assert.Nil(t, res.Record)
			assert.Contains(t, res.Unavailable, "working directory changes")
		})
	}
}

func TestPrepare_DirectoryChangeWithAbsoluteTarget(t *testing.T) {
	m, work := newTestManager(t, nil)
	target := filepath.Join(work, "sub", "data.txt")
	writeFile(t, target, "keep me\n", 0o644)

	res := prepare(t, m, "cd sub && rm "+target)
	require.True(t, res.Available(), res.Unavailable)
	require.Len(t, res.Record.Entries, 1)
	assert.Equal(t, target, res.Record.Entries[0].Path)
	assert.True(t, res.Record.Entries[0].Existed)

	require.NoError(t, os.Remove(target))
	_, err := m.Restore(context.Background(), res.Record.ID)
	require.NoError(t, err)
	body, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "keep me\n", string(body))
}

func TestPlan_Limits(t *testing.T) {
	m, work := newTestManager(t, func(o *Options) { o.MaxFiles = 1 })
	writeFile(t, filepath.Join(work, "dir", "one"), "1", 0o644)
	writeFile(t, filepath.Join(work, "dir", "two"), "2", 0o644)

	cls := classifier.New(nil).Classify("rm -r dir")
	plan, err := m.Plan(context.Background(), "rm -r dir", cls)
	require.NoError(t, err)
	assert.False(t, plan.Available())
	assert.Contains(t, plan.Unavailable, "exceeds")
}

func TestPlan_DropsNestedTargets(t *testing.T) {
	m, work := newTestManager(t, nil)
	writeFile(t, filepath.Join(work, "dir", "one"), "1", 0o644)

	cls := classifier.New(nil).Classify("rm -r dir dir/one")
	plan, err := m.Plan(context.Background(), "rm -r dir dir/one", cls)
	require.NoError(t, err)
	require.True(t, plan.Available(), plan.Unavailable)
	require.Len(t, plan.Targets, 1)
	assert.Equal(t, filepath.Join(work, "dir"), plan.Targets[0].Path)
	assert.Equal(t, 1, plan.TotalFiles)
}

func TestPrune(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m, work := newTestManager(t, func(o *Options) {
		o.Retention = time.Hour
		o.AuditRetention = 24 * time.Hour
	})
	m.now = func() time.Time { return base }

	writeFile(t, filepath.Join(work, "a.log"), "a", 0o644)
	writeFile(t, filepath.Join(work, "b.log"), "b", 0o644)
	kept := prepare(t, m, "rm a.log").Record
	consumed := prepare(t, m, "rm b.log").Record
	_, err := m.Restore(context.Background(), consumed.ID)
	require.NoError(t, err)

	ctx := context.Background()
	n, err := m.Prune(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = m.Prune(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "unconsumed record expires after retention")
	_, err = m.Get(ctx, kept.ID)
	assert.ErrorIs(t, err, domain.ErrRollbackNotFound)
	_, err = m.Get(ctx, consumed.ID)
	require.NoError(t, err, "consumed record stays for audit")

	n, err = m.Prune(ctx, base.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	records, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestList_NewestFirst(t *testing.T) {
	m, work := newTestManager(t, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(work, "a.log"), "a", 0o644)

	m.now = func() time.Time { return base }
	first := prepare(t, m, "rm a.log").Record
	m.now = func() time.Time { return base.Add(time.Minute) }
	second := prepare(t, m, "rm a.log").Record

	records, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)
	assert.Equal(t, first.ID, records[1].ID)
}
