package contextcollector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/doeshing/aishell-go/internal/domain"
)

func TestBasicCollectorDetectsProjectKinds(t *testing.T) {
	tmp := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmp, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"package.json", "docker-compose.yml", "Dockerfile"} {
		if err := os.WriteFile(filepath.Join(tmp, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	collector := NewBasicCollector(domain.ContextSettings{}, tmp)
	snapshot := collector.Collect(context.Background())

	if snapshot.WorkingDir != tmp {
		t.Fatalf("working dir = %q", snapshot.WorkingDir)
	}
	want := []string{"docker", "git", "node"}
	if !reflect.DeepEqual(snapshot.Project, want) {
		t.Fatalf("project = %v, want %v", snapshot.Project, want)
	}
	if snapshot.Git != nil || snapshot.Tools != nil {
		t.Fatalf("git and tools should be skipped when disabled: %+v", snapshot)
	}
}

func TestBasicCollectorEmptyDirectory(t *testing.T) {
	snapshot := NewBasicCollector(domain.ContextSettings{IncludeGit: true}, t.TempDir()).Collect(context.Background())
	if len(snapshot.Project) != 0 {
		t.Fatalf("expected no project markers, got %v", snapshot.Project)
	}
	if snapshot.Git != nil {
		t.Fatal("expected no git status outside a repository")
	}
}

func TestBasicCollectorTools(t *testing.T) {
	collector := NewBasicCollector(domain.ContextSettings{IncludeTools: true, Tools: []string{"make", "docker", "kubectl"}}, t.TempDir())
	collector.lookPath = func(name string) (string, error) {
		if name == "kubectl" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}

	snapshot := collector.Collect(context.Background())
	if want := []string{"docker", "make"}; !reflect.DeepEqual(snapshot.Tools, want) {
		t.Fatalf("tools = %v, want %v", snapshot.Tools, want)
	}
}

func TestDetectShell(t *testing.T) {
	t.Setenv("SHELL", "/usr/bin/zsh")
	if got := detectShell(); got != "zsh" {
		t.Fatalf("shell = %q", got)
	}
	t.Setenv("SHELL", "")
	if got := detectShell(); got != "sh" {
		t.Fatalf("shell = %q", got)
	}
}
