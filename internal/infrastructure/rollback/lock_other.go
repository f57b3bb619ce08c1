//go:build !unix

package rollback

import (
	"os"

	"github.com/doeshing/aishell-go/internal/domain"
)

// fileLock is process-local on platforms without flock; the manager mutex still applies.
type fileLock struct{}

func acquireFileLock(dir string) (*fileLock, error) {
	if err := os.MkdirAll(dir, domain.SecureDirectoryPermissions); err != nil {
		return nil, err
	}
	return &fileLock{}, nil
}

func (l *fileLock) release() error { return nil }
