package domain

import "time"

// EnvironmentSnapshot describes where a command will run. It only feeds
// command generation; safety decisions never read it.
type EnvironmentSnapshot struct {
	WorkingDir string     `json:"working_dir"`
	Shell      string     `json:"shell"`
	OS         string     `json:"os"`
	User       string     `json:"user,omitempty"`
	Project    []string   `json:"project,omitempty"`
	Tools      []string   `json:"tools,omitempty"`
	Git        *GitStatus `json:"git,omitempty"`
}

// GitStatus summarises the repository in the working directory.
type GitStatus struct {
	Branch         string `json:"branch"`
	ModifiedCount  int    `json:"modified"`
	UntrackedCount int    `json:"untracked"`
}

// CacheEntry is one cached generator reply.
type CacheEntry struct {
	Key       string    `json:"key"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Reply     string    `json:"reply"`
	CreatedAt time.Time `json:"created_at"`
}
