//go:build unix

package rollback

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/doeshing/aishell-go/internal/domain"
)

// fileLock serialises record creation and consumption across processes.
type fileLock struct {
	f *os.File
}

func acquireFileLock(dir string) (*fileLock, error) {
	if err := os.MkdirAll(dir, domain.SecureDirectoryPermissions); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, lockName), os.O_CREATE|os.O_RDWR, domain.SecureFilePermissions)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	return err
}
