package filesystem

import (
	"os"
	"path/filepath"
	"strings"
)

// AppDirName is the per-user configuration directory under $HOME.
const AppDirName = ".aishell"

// UserHomeDir returns the current user's home directory.
// If the home directory cannot be determined, it returns "." as a fallback.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// AppDir returns ~/.aishell.
func AppDir() string {
	return filepath.Join(UserHomeDir(), AppDirName)
}

// ExpandPath resolves ~/, $HOME and relative paths against the user's home.
// An empty path resolves to ~/.aishell/<fallback>.
func ExpandPath(path, fallback string) string {
	switch {
	case path == "":
		return filepath.Join(AppDir(), fallback)
	case path == "~":
		return UserHomeDir()
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(UserHomeDir(), path[2:])
	case strings.HasPrefix(path, "$HOME/"):
		return filepath.Join(UserHomeDir(), path[len("$HOME/"):])
	case filepath.IsAbs(path):
		return filepath.Clean(path)
	}
	return filepath.Join(UserHomeDir(), path)
}
