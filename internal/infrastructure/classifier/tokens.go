package classifier

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/shlex"
)

// redirect is an output or input redirection found in a segment.
type redirect struct {
	op     string
	target string
}

// command is a tokenised simple command with wrappers and redirections removed.
type command struct {
	verb      string
	args      []string
	redirects []redirect
	wrappers  []string
	parseErr  error
}

var (
	redirectToken = regexp.MustCompile(`^(\d*|&)(>>|>\||>|<<<|<<|<)(.*)$`)
	assignment    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)
)

// wrappers run another command; they are stripped so the wrapped verb is classified.
var wrappers = map[string]struct{}{
	"sudo": {}, "doas": {}, "env": {}, "nohup": {}, "time": {}, "timeout": {},
	"nice": {}, "ionice": {}, "xargs": {}, "command": {}, "exec": {}, "stdbuf": {},
	"builtin": {}, "caffeinate": {}, "unbuffer": {}, "watch": {},
}

// wrapper flags that consume the following token.
var wrapperValueFlags = map[string]map[string]bool{
	"sudo":    {"-u": true, "-g": true, "-C": true, "-D": true, "-h": true, "-p": true, "-U": true},
	"nice":    {"-n": true},
	"ionice":  {"-c": true, "-n": true, "-p": true},
	"xargs":   {"-I": true, "-n": true, "-P": true, "-L": true, "-d": true, "-E": true, "-s": true},
	"timeout": {"-s": true, "-k": true, "--signal": true, "--kill-after": true},
	"env":     {"-u": true, "-C": true, "-S": true},
	"stdbuf":  {"-i": true, "-o": true, "-e": true},
	"watch":   {"-n": true, "-d": false},
}

// tokenize splits a segment into words. When shlex rejects the text the
// segment falls back to whitespace splitting and the error is kept.
func tokenize(text string) ([]string, error) {
	words, err := shlex.Split(text)
	if err != nil {
		return strings.Fields(text), err
	}
	return words, nil
}

// parseCommand tokenises a segment and strips assignments, wrappers and redirects.
func parseCommand(text string) command {
	words, err := tokenize(text)
	cmd := command{parseErr: err}

	var plain []string
	for i := 0; i < len(words); i++ {
		w := words[i]
		if idx := strings.IndexAny(w, "<>"); idx > 0 && !isFD(w[:idx]) {
			plain = append(plain, w[:idx])
			w = w[idx:]
		}
		m := redirectToken.FindStringSubmatch(w)
		if m == nil {
			plain = append(plain, w)
			continue
		}
		op, target := m[2], m[3]
		if strings.HasPrefix(target, "&") {
			// fd duplication like 2>&1
			continue
		}
		if target == "" && i+1 < len(words) {
			target = words[i+1]
			i++
		}
		if op == "<<" || op == "<<<" {
			// heredoc delimiter or here-string, not a file
			continue
		}
		cmd.redirects = append(cmd.redirects, redirect{op: op, target: target})
	}

	plain = stripWrappers(plain, &cmd.wrappers)
	if len(plain) == 0 {
		return cmd
	}
	cmd.verb = filepath.Base(plain[0])
	cmd.args = plain[1:]
	return cmd
}

func isFD(s string) bool {
	if s == "&" {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func stripWrappers(words []string, seen *[]string) []string {
	for len(words) > 0 {
		for len(words) > 0 && assignment.MatchString(words[0]) {
			words = words[1:]
		}
		if len(words) == 0 {
			return nil
		}
		name := filepath.Base(words[0])
		if _, ok := wrappers[name]; !ok {
			return words
		}
		if name == "command" && len(words) > 1 && (words[1] == "-v" || words[1] == "-V") {
			return words
		}
		*seen = append(*seen, name)
		words = words[1:]
		valueFlags := wrapperValueFlags[name]
		for len(words) > 0 {
			w := words[0]
			switch {
			case w == "--":
				words = words[1:]
			case strings.HasPrefix(w, "-"):
				words = words[1:]
				if valueFlags[w] && len(words) > 0 {
					words = words[1:]
				}
				continue
			case name == "env" && assignment.MatchString(w):
				words = words[1:]
				continue
			}
			break
		}
		if name == "timeout" && len(words) > 0 {
			words = words[1:]
		}
	}
	return words
}

// flagSet collects short and long flags. Combined short flags like -rf expand to r and f.
func flagSet(args []string) map[string]bool {
	flags := make(map[string]bool)
	for _, a := range args {
		if a == "--" {
			break
		}
		switch {
		case strings.HasPrefix(a, "--"):
			name := strings.TrimPrefix(a, "--")
			if i := strings.Index(name, "="); i >= 0 {
				name = name[:i]
			}
			flags["--"+name] = true
		case strings.HasPrefix(a, "-") && len(a) > 1:
			for _, r := range a[1:] {
				flags[string(r)] = true
			}
		}
	}
	return flags
}

// operands returns the non-flag arguments, honouring "--".
func operands(args []string) []string {
	var out []string
	afterDashes := false
	for _, a := range args {
		if !afterDashes && a == "--" {
			afterDashes = true
			continue
		}
		if !afterDashes && strings.HasPrefix(a, "-") && a != "-" {
			continue
		}
		out = append(out, a)
	}
	return out
}
