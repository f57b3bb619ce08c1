package ai

import (
	"bytes"
	"os"
	"runtime"
	"strings"
	"text/template"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

type templateData struct {
	Prompt     string
	WorkingDir string
	Shell      string
	OS         string
	User       string
	Project    string
	Tools      string
	Git        *domain.GitStatus
	Advanced   bool
}

const systemTemplate = `You are a Linux command generator. Convert natural language requests into precise shell commands.

RULES:
1. Output ONLY the command, no explanations or markdown
2. Use standard commands available on most distributions
3. Prefer safe, commonly used commands
{{- if .Advanced}}
4. If several steps are needed, output one command per line in execution order
{{- else}}
4. If multiple commands are needed, join them with && or ;
{{- end}}
5. Use proper quoting and escaping
6. Avoid destructive commands unless explicitly requested
7. Use relative paths unless absolute paths are specified

ENVIRONMENT:
- OS: {{.OS}}
- Shell: {{.Shell}}
- Directory: {{.WorkingDir}}
{{- if .User}}
- User: {{.User}}
{{- end}}
{{- if .Project}}
- Project: {{.Project}}
{{- end}}
{{- if .Tools}}
- Available tools: {{.Tools}}
{{- end}}
{{- with .Git}}
- Git branch: {{.Branch}} ({{.ModifiedCount}} modified, {{.UntrackedCount}} untracked)
{{- end}}

EXAMPLES:
Request: "Show files larger than 1GB"
Command: find . -type f -size +1G -exec ls -lh {} \;

Request: "Show disk usage by folder"
Command: du -sh */`

const userTemplate = `Convert this request to a shell command:

Request: "{{.Prompt}}"

Command:`

// renderPrompt returns the system and user messages for a request. Missing
// environment fields are filled from the current process.
func renderPrompt(req ports.GenerateRequest) (string, string, error) {
	env := req.Environment
	if env.WorkingDir == "" {
		env.WorkingDir, _ = os.Getwd()
	}
	if env.Shell == "" {
		env.Shell = os.Getenv("SHELL")
		if i := strings.LastIndex(env.Shell, "/"); i >= 0 {
			env.Shell = env.Shell[i+1:]
		}
	}
	if env.OS == "" {
		env.OS = runtime.GOOS
	}
	data := templateData{
		Prompt:     strings.TrimSpace(req.Prompt),
		WorkingDir: env.WorkingDir,
		Shell:      valueOrDefault(env.Shell, "sh"),
		OS:         env.OS,
		User:       env.User,
		Project:    strings.Join(env.Project, ", "),
		Tools:      strings.Join(env.Tools, ", "),
		Git:        env.Git,
		Advanced:   req.Advanced,
	}
	system, err := executeTemplate(systemTemplate, data)
	if err != nil {
		return "", "", err
	}
	user, err := executeTemplate(userTemplate, data)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func executeTemplate(raw string, data templateData) (string, error) {
	tmpl, err := template.New("prompt").Parse(raw)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
