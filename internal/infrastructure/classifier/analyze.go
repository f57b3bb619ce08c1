package classifier

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/doeshing/aishell-go/internal/domain"
)

// analysis accumulates categories, targets and signals for one segment.
type analysis struct {
	categories map[domain.Category]struct{}
	targets    []string
	signals    []string
	nested     []string
}

func newAnalysis() *analysis {
	return &analysis{categories: make(map[domain.Category]struct{})}
}

func (a *analysis) add(cats ...domain.Category) {
	for _, c := range cats {
		a.categories[c] = struct{}{}
	}
}

func (a *analysis) target(paths ...string) {
	for _, p := range paths {
		if p != "" {
			a.targets = append(a.targets, p)
		}
	}
}

func (a *analysis) signal(format string, args ...interface{}) {
	a.signals = append(a.signals, fmt.Sprintf(format, args...))
}

func (a *analysis) has(c domain.Category) bool {
	_, ok := a.categories[c]
	return ok
}

// analyzeCommand applies the verb rules. upstream holds categories of earlier
// segments in the same pipeline.
func analyzeCommand(cmd command, op string, upstream map[domain.Category]struct{}) *analysis {
	a := newAnalysis()
	for _, w := range cmd.wrappers {
		if w == "sudo" || w == "doas" {
			a.add(domain.CategoryPrivilegeEscalation)
			a.signal("runs with elevated privileges via %s", w)
		}
	}
	analyzeRedirects(a, cmd.redirects)

	verb := cmd.verb
	args := cmd.args
	switch {
	case verb == "":
		if len(cmd.redirects) == 0 {
			a.add(domain.CategoryUnknown)
		}
	case verb == "rm" || verb == "rmdir" || verb == "unlink" || verb == "shred" || verb == "wipe" || verb == "srm":
		analyzeDelete(a, verb, args)
	case verb == "find":
		analyzeFind(a, args)
	case verb == "mv":
		ops := operands(args)
		a.add(domain.CategoryFilesystemWrite, domain.CategoryFilesystemDelete)
		a.target(ops...)
		for _, t := range ops {
			if isRootOrHome(t) {
				a.add(domain.CategorySystemDestruction)
				a.signal("moves %s", t)
			}
		}
	case verb == "dd":
		analyzeDD(a, args)
	case verb == "truncate":
		a.add(domain.CategoryFilesystemWrite)
		a.target(truncateTargets(args)...)
		a.signal("truncates file contents")
	case verb == "sed":
		analyzeSed(a, args)
	case verb == "perl" && inPlace(args):
		a.add(domain.CategoryFilesystemWrite)
		a.target(inPlaceTargets(args)...)
	case in(awkVerbs, verb):
		analyzeAwk(a, verb, args)
	case in(permissionVerbs, verb):
		analyzePermission(a, verb, args)
	case verb == "git":
		analyzeGit(a, args)
	case in(orchestrators, verb):
		analyzeOrchestrator(a, verb, args)
	case in(networkVerbs, verb):
		analyzeNetwork(a, verb, args, op, cmd.redirects)
	case in(processVerbs, verb):
		analyzeKill(a, verb, args)
	case in(packageVerbs, verb):
		if len(args) > 0 && in(packageReadOnly, args[0]) {
			a.add(domain.CategoryReadOnly)
		} else if verb == "go" && len(args) > 0 && args[0] != "install" && args[0] != "get" {
			a.add(domain.CategoryUnknown)
		} else {
			a.add(domain.CategoryPackageManagement)
		}
	case in(privilegeVerbs, verb):
		a.add(domain.CategoryPrivilegeEscalation)
		a.signal("account or privilege management via %s", verb)
	case in(systemControlVerbs, verb):
		analyzeSystemControl(a, verb, args)
	case in(deviceVerbs, verb) || strings.HasPrefix(verb, "mkfs"):
		a.add(domain.CategoryDeviceWrite)
		a.signal("disk or partition tool %s", verb)
	case in(shellInterpreters, verb):
		analyzeInterpreter(a, verb, args, op, upstream)
	case verb == "eval":
		a.add(domain.CategoryUnknown)
		a.nested = append(a.nested, strings.Join(args, " "))
	case in(writeVerbs, verb):
		a.add(domain.CategoryFilesystemWrite)
		a.target(writeTargets(verb, args)...)
	case in(readOnlyVerbs, verb):
		a.add(domain.CategoryReadOnly)
	default:
		a.add(domain.CategoryUnknown)
		a.signal("unrecognized command %q", verb)
	}

	for _, arg := range append(append([]string(nil), args...), redirectTargets(cmd.redirects)...) {
		if credentialPath.MatchString(arg) {
			a.add(domain.CategoryCredentialAccess)
			a.signal("touches credential file %s", arg)
			break
		}
	}
	if len(a.categories) == 0 {
		a.add(domain.CategoryUnknown)
	}
	return a
}

func analyzeRedirects(a *analysis, redirects []redirect) {
	for _, r := range redirects {
		if r.op == "<" {
			continue
		}
		target := r.target
		switch {
		case in(harmlessSinks, target):
		case blockDevice.MatchString(target):
			a.add(domain.CategoryDeviceWrite)
			a.signal("redirects output to device %s", target)
		case in(criticalFiles, target) || strings.HasPrefix(target, "/boot/"):
			a.add(domain.CategorySystemDestruction, domain.CategoryFilesystemWrite)
			a.target(target)
			a.signal("overwrites %s", target)
		default:
			a.add(domain.CategoryFilesystemWrite)
			a.target(target)
			if isSystemPath(target) {
				a.add(domain.CategorySystemControl)
				a.signal("writes into system path %s", target)
			}
		}
	}
}

func redirectTargets(redirects []redirect) []string {
	out := make([]string, 0, len(redirects))
	for _, r := range redirects {
		out = append(out, r.target)
	}
	return out
}

func analyzeDelete(a *analysis, verb string, args []string) {
	flags := flagSet(args)
	recursive := flags["r"] || flags["R"] || flags["--recursive"]
	force := flags["f"] || flags["--force"]
	targets := operands(args)

	a.add(domain.CategoryFilesystemDelete)
	a.target(targets...)
	if verb == "shred" || verb == "wipe" || verb == "srm" {
		a.signal("overwrites data before removal")
	}
	if recursive && force {
		a.signal("forced recursive delete")
	}
	if len(targets) == 0 {
		a.signal("no explicit targets")
	}
	for _, t := range targets {
		switch {
		case recursive && isRootOrHome(t):
			a.add(domain.CategorySystemDestruction)
			a.signal("recursive delete of %s", t)
		case in(criticalFiles, t) || isSystemPath(t):
			a.add(domain.CategorySystemDestruction)
			a.signal("deletes system path %s", t)
		case recursive && (t == "*" || t == "." || t == ".." || t == "./*"):
			a.signal("recursive delete of working directory contents")
		case strings.ContainsAny(t, "*?["):
			a.signal("wildcard delete %s", t)
		}
	}
}

func analyzeFind(a *analysis, args []string) {
	var paths []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") || arg == "(" || arg == "!" {
			break
		}
		paths = append(paths, arg)
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	destructive := false
	for i, arg := range args {
		switch arg {
		case "-delete":
			destructive = true
			a.add(domain.CategoryFilesystemDelete)
			a.signal("find -delete")
		case "-exec", "-execdir", "-ok", "-okdir":
			var inner []string
			for _, w := range args[i+1:] {
				if w == ";" || w == `\;` || w == "+" {
					break
				}
				if w == "{}" {
					continue
				}
				inner = append(inner, w)
			}
			if len(inner) > 0 {
				a.nested = append(a.nested, strings.Join(inner, " "))
				destructive = destructive || in(deleteVerbs, inner[0])
			}
		}
	}
	if destructive {
		a.target(paths...)
		for _, p := range paths {
			if isRootOrHome(p) || isSystemPath(p) {
				a.add(domain.CategorySystemDestruction)
				a.signal("find deletes under %s", p)
			}
		}
		return
	}
	a.add(domain.CategoryReadOnly)
}

func analyzeDD(a *analysis, args []string) {
	a.add(domain.CategoryFilesystemWrite)
	for _, arg := range args {
		if !strings.HasPrefix(arg, "of=") {
			continue
		}
		out := strings.TrimPrefix(arg, "of=")
		switch {
		case blockDevice.MatchString(out):
			a.add(domain.CategoryDeviceWrite)
			a.signal("raw write to %s", out)
		case in(harmlessSinks, out):
		default:
			a.target(out)
		}
	}
}

func analyzePermission(a *analysis, verb string, args []string) {
	flags := flagSet(args)
	recursive := flags["R"] || flags["--recursive"]
	ops := operands(args)
	a.add(domain.CategoryPermissionChange)
	if len(ops) == 0 {
		return
	}
	spec, targets := ops[0], ops[1:]
	if verb == "setfacl" || verb == "chattr" {
		targets = ops
	}
	a.target(targets...)
	if verb == "chmod" {
		if strings.Contains(spec, "s") || (octalMode.MatchString(spec) && len(spec) == 4 && spec[0] != '0') {
			a.add(domain.CategoryPrivilegeEscalation)
			a.signal("sets setuid/setgid bits (%s)", spec)
		}
		if strings.HasSuffix(spec, "777") || spec == "a+rwx" {
			a.signal("world-writable permissions")
		}
	}
	for _, t := range targets {
		if (recursive && isSystemPath(t)) || isRootOrHome(t) {
			a.add(domain.CategorySystemDestruction)
			a.signal("%s on system path %s", verb, t)
		} else if isSystemPath(t) {
			a.add(domain.CategorySystemControl)
		}
	}
}

func analyzeGit(a *analysis, args []string) {
	sub := ""
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "-C" || arg == "-c" || arg == "--git-dir" || arg == "--work-tree" || arg == "--namespace" {
			i++
			continue
		}
		if !strings.HasPrefix(arg, "-") {
			sub = arg
			break
		}
	}
	flags := flagSet(args)
	switch {
	case sub == "" || in(gitReadOnly, sub):
		a.add(domain.CategoryReadOnly)
	case sub == "clean":
		a.add(domain.CategoryFilesystemDelete)
		a.target(".")
		a.signal("git clean removes untracked files")
	case sub == "reset" && flags["--hard"]:
		a.add(domain.CategoryFilesystemDelete)
		a.target(".")
		a.signal("git reset --hard discards changes")
	case sub == "push" && (flags["f"] || flags["--force"] || flags["--force-with-lease"]):
		a.add(domain.CategoryNetwork, domain.CategorySystemControl)
		a.signal("force push rewrites remote history")
	case in(gitNetwork, sub):
		a.add(domain.CategoryNetwork)
		if sub != "push" && sub != "ls-remote" {
			a.add(domain.CategoryFilesystemWrite)
		}
	default:
		a.add(domain.CategoryFilesystemWrite)
	}
}

func analyzeOrchestrator(a *analysis, verb string, args []string) {
	ops := operands(args)
	sub := ""
	if len(ops) > 0 {
		sub = ops[0]
		if (sub == "system" || sub == "container" || sub == "image" || sub == "volume" || sub == "compose") && len(ops) > 1 {
			sub = ops[1]
		}
	}
	switch {
	case sub == "" || in(orchestratorReadOnly, sub):
		a.add(domain.CategoryReadOnly)
	case in(orchestratorDestructive, sub):
		a.add(domain.CategorySystemControl)
		a.signal("%s %s removes managed resources", verb, sub)
	default:
		a.add(domain.CategoryProcessControl)
	}
}

func analyzeNetwork(a *analysis, verb string, args []string, op string, redirects []redirect) {
	a.add(domain.CategoryNetwork)
	switch verb {
	case "curl", "http":
		for i, arg := range args {
			switch {
			case arg == "-d" || arg == "--data" || arg == "--data-binary" || arg == "--data-raw" || arg == "-F" || arg == "--form" || arg == "-T" || arg == "--upload-file":
				if i+1 < len(args) && (strings.Contains(args[i+1], "@") || arg == "-T" || arg == "--upload-file") {
					a.add(domain.CategoryNetworkExfiltration)
					a.signal("uploads local data with %s", arg)
				}
			case arg == "-o" || arg == "--output":
				if i+1 < len(args) {
					a.add(domain.CategoryFilesystemWrite)
					a.target(args[i+1])
				}
			case arg == "-O" || arg == "--remote-name":
				a.add(domain.CategoryFilesystemWrite)
			}
		}
	case "wget":
		a.add(domain.CategoryFilesystemWrite)
		for _, arg := range args {
			if strings.HasPrefix(arg, "--post-file") || strings.HasPrefix(arg, "--body-file") {
				a.add(domain.CategoryNetworkExfiltration)
				a.signal("uploads local file")
			}
		}
	case "scp", "rsync", "sftp":
		ops := operands(args)
		if verb == "rsync" && !anyRemote(ops) {
			delete(a.categories, domain.CategoryNetwork)
		}
		if len(ops) >= 2 {
			dest := ops[len(ops)-1]
			if remoteSpec.MatchString(dest) {
				a.add(domain.CategoryNetworkExfiltration)
				a.signal("copies local files to %s", dest)
			} else {
				a.add(domain.CategoryFilesystemWrite)
				a.target(dest)
			}
		}
	case "nc", "netcat", "ncat", "socat", "telnet", "ssh":
		for _, r := range redirects {
			if r.op == "<" {
				a.add(domain.CategoryNetworkExfiltration)
				a.signal("streams %s to a remote host", r.target)
			}
		}
	case "tcpdump":
		a.add(domain.CategoryPrivilegeEscalation)
	}
	if op == opPipe && verb != "ssh" {
		a.add(domain.CategoryNetworkExfiltration)
		a.signal("pipes local output to %s", verb)
	}
}

func analyzeKill(a *analysis, verb string, args []string) {
	a.add(domain.CategoryProcessControl)
	for _, t := range operands(args) {
		if t == "1" || t == "-1" || t == "init" || t == "systemd" || t == "launchd" {
			a.add(domain.CategorySystemControl)
			a.signal("%s targets %s", verb, t)
		}
	}
	if containsArg(args, "-1") && verb == "kill" {
		a.add(domain.CategorySystemControl)
		a.signal("kill -1 signals every process")
	}
}

func analyzeSystemControl(a *analysis, verb string, args []string) {
	ops := operands(args)
	for _, arg := range args {
		if in(systemControlReadOnly, arg) {
			a.add(domain.CategoryReadOnly)
			return
		}
	}
	if (verb == "systemctl" || verb == "service") && len(ops) > 0 && in(systemControlReadOnly, ops[len(ops)-1]) {
		a.add(domain.CategoryReadOnly)
		return
	}
	a.add(domain.CategorySystemControl)
	if verb == "mount" || verb == "umount" {
		a.add(domain.CategoryPrivilegeEscalation)
	}
	switch verb {
	case "shutdown", "reboot", "halt", "poweroff":
		a.signal("%s stops the machine", verb)
	case "init", "telinit":
		if len(ops) > 0 && (ops[0] == "0" || ops[0] == "6") {
			a.signal("changes runlevel to %s", ops[0])
		}
	}
}

func analyzeInterpreter(a *analysis, verb string, args []string, op string, upstream map[domain.Category]struct{}) {
	if op == opPipe {
		_, net := upstream[domain.CategoryNetwork]
		if net {
			a.add(domain.CategoryRemoteCodeExecution)
			a.signal("downloaded content piped into %s", verb)
			return
		}
		a.add(domain.CategoryUnknown)
		a.signal("input piped into interpreter %s", verb)
		return
	}
	for i, arg := range args {
		if (arg == "-c" || arg == "-e") && i+1 < len(args) {
			a.nested = append(a.nested, args[i+1])
			a.add(domain.CategoryUnknown)
			return
		}
	}
	if len(args) == 0 || args[0] == "--version" || args[0] == "-V" {
		a.add(domain.CategoryReadOnly)
		return
	}
	a.add(domain.CategoryUnknown)
	a.signal("runs script %s", args[0])
}

func analyzeSed(a *analysis, args []string) {
	var scripts, files []string
	fromFile := false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-e" || arg == "--expression":
			if i+1 < len(args) {
				scripts = append(scripts, args[i+1])
				i++
			}
		case strings.HasPrefix(arg, "--expression="):
			scripts = append(scripts, strings.TrimPrefix(arg, "--expression="))
		case arg == "-f" || arg == "--file" || strings.HasPrefix(arg, "--file="):
			fromFile = true
			if !strings.Contains(arg, "=") {
				i++
			}
		case arg == "-l" || arg == "--line-length":
			i++
		case arg == "--":
			files = append(files, args[i+1:]...)
			i = len(args)
		case arg == "" || strings.HasPrefix(arg, "-") && arg != "-":
		default:
			files = append(files, arg)
		}
	}
	if len(scripts) == 0 && !fromFile && len(files) > 0 {
		scripts, files = files[:1], files[1:]
	}

	clean := true
	if inPlace(args) {
		clean = false
		a.add(domain.CategoryFilesystemWrite)
		a.target(files...)
	}
	if fromFile {
		clean = false
		a.add(domain.CategoryUnknown)
		a.signal("sed script read from a file")
	}
	for _, script := range scripts {
		fx := scanSed(script)
		if fx.execs {
			clean = false
			a.add(domain.CategoryUnknown)
			a.signal("sed script executes shell commands")
			a.nested = append(a.nested, fx.commands...)
		}
		if len(fx.writes) > 0 {
			clean = false
			a.add(domain.CategoryFilesystemWrite)
			a.target(fx.writes...)
			a.signal("sed script writes %s", strings.Join(fx.writes, ", "))
		}
	}
	if clean {
		a.add(domain.CategoryReadOnly)
	}
}

// sedEffects lists what a sed script does beyond editing the stream.
type sedEffects struct {
	execs    bool
	commands []string
	writes   []string
}

// scanSed walks a sed script command by command. It understands addresses,
// the s and y delimiters and the commands that take the rest of the line.
func scanSed(script string) sedEffects {
	var fx sedEffects
	rs := []rune(script)
	n := len(rs)
	restOfLine := func(i int) (string, int) {
		j := i
		for j < n && rs[j] != '\n' {
			j++
		}
		return strings.TrimSpace(string(rs[i:j])), j
	}
	skipDelimited := func(i int, delim rune) int {
		for i < n && rs[i] != delim {
			if rs[i] == '\\' {
				i++
			}
			i++
		}
		return i + 1
	}

	i := 0
	for i < n {
		c := rs[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == ';' || c == '{' || c == '}' || c == '!' || c == ',':
			i++
			continue
		case c >= '0' && c <= '9' || c == '$' || c == '~' || c == '+':
			i++
			continue
		case c == '/':
			i = skipDelimited(i+1, '/')
			continue
		case c == '\\' && i+1 < n:
			i = skipDelimited(i+2, rs[i+1])
			continue
		}

		i++
		switch c {
		case 's', 'y':
			if i >= n {
				return fx
			}
			delim := rs[i]
			i = skipDelimited(i+1, delim)
			i = skipDelimited(i, delim)
			if c == 'y' {
				continue
			}
			for i < n && (rs[i] >= 'a' && rs[i] <= 'z' || rs[i] >= 'A' && rs[i] <= 'Z' || rs[i] >= '0' && rs[i] <= '9') {
				flag := rs[i]
				i++
				if flag == 'e' {
					fx.execs = true
				}
				if flag == 'w' {
					var file string
					file, i = restOfLine(i)
					if file != "" {
						fx.writes = append(fx.writes, file)
					}
					break
				}
			}
		case 'e':
			var cmd string
			cmd, i = restOfLine(i)
			fx.execs = true
			if cmd != "" {
				fx.commands = append(fx.commands, cmd)
			}
		case 'w', 'W':
			var file string
			file, i = restOfLine(i)
			if file != "" && !in(harmlessSinks, file) {
				fx.writes = append(fx.writes, file)
			}
		case 'r', 'R', 'a', 'i', 'c':
			_, i = restOfLine(i)
		case ':', 'b', 't', 'T':
			for i < n && rs[i] != ';' && rs[i] != '\n' {
				i++
			}
		}
	}
	return fx
}

func analyzeAwk(a *analysis, verb string, args []string) {
	var program string
	var files []string
	fromFile := false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-f" || arg == "--file":
			fromFile = true
			i++
		case (arg == "-e" || arg == "--source") && i+1 < len(args):
			program += "\n" + args[i+1]
			i++
		case arg == "-F" || arg == "-v" || arg == "-i" || arg == "--include" || arg == "--assign" || arg == "--field-separator":
			i++
		case arg == "--":
			files = append(files, args[i+1:]...)
			i = len(args)
		case strings.HasPrefix(arg, "-") && arg != "-":
		default:
			files = append(files, arg)
		}
	}
	if program == "" && !fromFile && len(files) > 0 {
		program, files = files[0], files[1:]
	}

	clean := true
	if containsArg(args, "inplace") {
		clean = false
		a.add(domain.CategoryFilesystemWrite)
		a.target(files...)
	}
	if fromFile {
		clean = false
		a.add(domain.CategoryUnknown)
		a.signal("%s program read from a file", verb)
	}

	execs := false
	for _, m := range awkSystemCall.FindAllStringSubmatch(program, -1) {
		execs = true
		if m[1] != "" {
			a.nested = append(a.nested, awkString(m[1]))
		}
	}
	for _, m := range awkPipe.FindAllStringSubmatch(program, -1) {
		execs = true
		for _, quoted := range m[1:] {
			if quoted != "" {
				a.nested = append(a.nested, awkString(quoted))
			}
		}
	}
	if execs {
		clean = false
		a.add(domain.CategoryUnknown)
		a.signal("%s program runs shell commands", verb)
	}
	for _, m := range awkRedirect.FindAllStringSubmatch(program, -1) {
		if !strings.HasPrefix(m[2], `"`) {
			clean = false
			a.add(domain.CategoryFilesystemWrite, domain.CategoryUnknown)
			a.signal("%s program writes to a computed file name", verb)
			continue
		}
		file := awkString(m[2])
		if in(harmlessSinks, file) {
			continue
		}
		clean = false
		a.add(domain.CategoryFilesystemWrite)
		a.target(file)
		a.signal("%s program writes %s", verb, file)
	}
	if clean {
		a.add(domain.CategoryReadOnly)
	}
}

// awkString strips the quotes and escapes from an awk string literal.
func awkString(quoted string) string {
	if s, err := strconv.Unquote(quoted); err == nil {
		return s
	}
	return strings.Trim(quoted, `"`)
}

func writeTargets(verb string, args []string) []string {
	ops := operands(args)
	switch verb {
	case "cp", "install", "ln", "rsync":
		if len(ops) >= 2 {
			return ops[len(ops)-1:]
		}
		return nil
	case "tar":
		if len(args) == 0 || !strings.Contains(strings.TrimPrefix(args[0], "-"), "c") {
			return nil
		}
		for i, arg := range args {
			if strings.HasPrefix(arg, "-") || i == 0 {
				if strings.HasSuffix(arg, "f") && i+1 < len(args) {
					return []string{args[i+1]}
				}
			}
		}
		return nil
	case "unzip", "gunzip", "gzip", "bzip2", "xz", "zip", "split", "patch":
		return nil
	}
	return ops
}

func truncateTargets(args []string) []string {
	var out []string
	skip := false
	for _, arg := range args {
		if skip {
			skip = false
			continue
		}
		if arg == "-s" || arg == "--size" || arg == "-r" || arg == "--reference" {
			skip = true
			continue
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		out = append(out, arg)
	}
	return out
}

func inPlace(args []string) bool {
	for _, arg := range args {
		if arg == "-i" || strings.HasPrefix(arg, "-i") && !strings.HasPrefix(arg, "--") || arg == "--in-place" || strings.HasPrefix(arg, "--in-place=") {
			return true
		}
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") && strings.Contains(arg, "i") && len(arg) <= 4 {
			return true
		}
	}
	return false
}

func inPlaceTargets(args []string) []string {
	var out []string
	scriptGiven := false
	skip := false
	for _, arg := range args {
		if skip {
			skip = false
			continue
		}
		if arg == "-e" || arg == "-f" || arg == "--expression" || arg == "--file" {
			scriptGiven = true
			skip = true
			continue
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if !scriptGiven {
			scriptGiven = true
			continue
		}
		out = append(out, arg)
	}
	return out
}

func anyRemote(ops []string) bool {
	for _, op := range ops {
		if remoteSpec.MatchString(op) {
			return true
		}
	}
	return false
}

func containsArg(args []string, needle string) bool {
	for _, a := range args {
		if a == needle {
			return true
		}
	}
	return false
}
