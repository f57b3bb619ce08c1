// Package contextcollector describes the working environment for the
// command generator prompt.
package contextcollector

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// DefaultTools are probed on PATH when the config names none.
var DefaultTools = []string{"docker", "kubectl", "git", "npm", "yarn", "pnpm", "python3", "go", "node", "cargo", "make", "systemctl"}

// projectMarkers maps a file in the working directory to a project kind.
var projectMarkers = map[string]string{
	".git":               "git",
	"package.json":       "node",
	"go.mod":             "go",
	"Cargo.toml":         "rust",
	"requirements.txt":   "python",
	"pyproject.toml":     "python",
	"setup.py":           "python",
	"Dockerfile":         "docker",
	"docker-compose.yml": "docker",
	"compose.yaml":       "docker",
	"Makefile":           "make",
}

const gitTimeout = 2 * time.Second

// BasicCollector implements EnvironmentCollector with filesystem and tool detection.
type BasicCollector struct {
	dir          string
	includeGit   bool
	includeTools bool
	toolsToCheck []string
	lookPath     func(string) (string, error)
}

// NewBasicCollector builds a collector from the context settings. An empty dir
// means the process working directory at collection time.
func NewBasicCollector(settings domain.ContextSettings, dir string) *BasicCollector {
	tools := settings.Tools
	if len(tools) == 0 {
		tools = DefaultTools
	}
	return &BasicCollector{
		dir:          dir,
		includeGit:   settings.IncludeGit,
		includeTools: settings.IncludeTools,
		toolsToCheck: tools,
		lookPath:     exec.LookPath,
	}
}

// Collect gathers context data. Every probe is best-effort.
func (c *BasicCollector) Collect(ctx context.Context) domain.EnvironmentSnapshot {
	wd := c.dir
	if wd == "" {
		wd, _ = os.Getwd()
	}

	snap := domain.EnvironmentSnapshot{
		WorkingDir: wd,
		Shell:      detectShell(),
		OS:         runtime.GOOS,
		User:       os.Getenv("USER"),
		Project:    detectProject(wd),
	}
	if c.includeTools {
		snap.Tools = c.detectTools()
	}
	if c.includeGit {
		snap.Git = collectGitInfo(ctx, wd)
	}
	return snap
}

func (c *BasicCollector) detectTools() []string {
	var available []string
	for _, tool := range c.toolsToCheck {
		if _, err := c.lookPath(tool); err == nil {
			available = append(available, tool)
		}
	}
	sort.Strings(available)
	return available
}

func detectProject(dir string) []string {
	seen := make(map[string]bool)
	var kinds []string
	for marker, kind := range projectMarkers {
		if seen[kind] {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			seen[kind] = true
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}

func detectShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return filepath.Base(shell)
	}
	return "sh"
}

func collectGitInfo(ctx context.Context, dir string) *domain.GitStatus {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return nil
	}
	branch, err := runCmd(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil
	}
	status := &domain.GitStatus{Branch: strings.TrimSpace(branch)}
	short, err := runCmd(ctx, dir, "git", "status", "--short")
	if err != nil {
		return status
	}
	for _, line := range strings.Split(short, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "??"):
			status.UntrackedCount++
		default:
			status.ModifiedCount++
		}
	}
	return status
}

func runCmd(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()
	cmd := exec.CommandContext(cctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	return string(out), err
}

var _ ports.EnvironmentCollector = (*BasicCollector)(nil)
