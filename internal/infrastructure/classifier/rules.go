package classifier

import (
	"regexp"
	"strings"

	"github.com/doeshing/aishell-go/internal/domain"
)

// DefaultSeverities maps each category to its risk. Risk scoring is the maximum over this table.
func DefaultSeverities() map[domain.Category]domain.RiskLevel {
	return map[domain.Category]domain.RiskLevel{
		domain.CategoryReadOnly:            domain.RiskLow,
		domain.CategoryFilesystemWrite:     domain.RiskMedium,
		domain.CategoryFilesystemDelete:    domain.RiskHigh,
		domain.CategoryPermissionChange:    domain.RiskMedium,
		domain.CategoryNetwork:             domain.RiskMedium,
		domain.CategoryNetworkExfiltration: domain.RiskHigh,
		domain.CategoryRemoteCodeExecution: domain.RiskCritical,
		domain.CategoryProcessControl:      domain.RiskMedium,
		domain.CategoryPackageManagement:   domain.RiskMedium,
		domain.CategoryPrivilegeEscalation: domain.RiskHigh,
		domain.CategoryDeviceWrite:         domain.RiskCritical,
		domain.CategoryResourceExhaustion:  domain.RiskCritical,
		domain.CategorySystemDestruction:   domain.RiskCritical,
		domain.CategorySystemControl:       domain.RiskHigh,
		domain.CategoryCredentialAccess:    domain.RiskHigh,
		domain.CategoryUnknown:             domain.RiskMedium,
	}
}

var readOnlyVerbs = setOf(
	"ls", "ll", "la", "dir", "pwd", "cd", "echo", "printf", "cat", "bat", "tac", "head", "tail",
	"less", "more", "grep", "egrep", "fgrep", "rg", "ag", "ack", "cut", "tr", "sort", "uniq", "wc",
	"nl", "diff", "cmp", "comm", "file", "stat", "du", "df", "free", "uptime", "whoami", "id",
	"groups", "hostname", "uname", "date", "cal", "printenv", "which", "whereis", "type",
	"command", "man", "help", "history", "ps", "pgrep", "top", "htop", "lsof", "tree", "locate",
	"basename", "dirname", "realpath", "readlink", "md5sum", "sha1sum", "sha256sum", "shasum",
	"base64", "xxd", "hexdump", "od", "strings", "jq", "yq", "column", "true", "false", "test",
	"[", "sleep", "seq", "rev", "fold", "fmt", "zcat", "zgrep", "lsblk", "mount-list", "vmstat",
	"iostat", "netstat", "ss", "env", "locale", "tty", "w", "who", "last",
)

var awkVerbs = setOf("awk", "gawk", "mawk", "nawk")

var writeVerbs = setOf(
	"touch", "mkdir", "cp", "ln", "tee", "install", "tar", "unzip", "gzip", "gunzip", "bzip2",
	"xz", "zip", "patch", "split", "vim", "vi", "nano", "emacs", "code", "rsync", "mkfifo",
)

var deleteVerbs = setOf("rm", "rmdir", "unlink", "shred", "wipe", "srm")

var permissionVerbs = setOf("chmod", "chown", "chgrp", "setfacl", "chattr")

var networkVerbs = setOf(
	"curl", "wget", "nc", "netcat", "ncat", "socat", "ssh", "scp", "sftp", "ftp", "telnet",
	"nmap", "masscan", "tcpdump", "ping", "dig", "nslookup", "host", "traceroute", "mtr",
	"http", "aria2c", "rsync",
)

var processVerbs = setOf("kill", "killall", "pkill", "renice", "xkill", "disown", "bg", "fg")

var packageVerbs = setOf(
	"apt", "apt-get", "yum", "dnf", "pacman", "zypper", "brew", "pip", "pip3", "pipx", "npm",
	"yarn", "pnpm", "gem", "cargo", "snap", "flatpak", "apk", "port", "conda", "go",
)

var packageReadOnly = setOf("list", "search", "show", "info", "outdated", "freeze", "view", "--version", "-v", "version", "doctor", "env", "help")

var privilegeVerbs = setOf(
	"sudo", "su", "doas", "pkexec", "visudo", "passwd", "chpasswd", "useradd", "userdel",
	"usermod", "groupadd", "groupdel", "groupmod", "adduser", "deluser", "setcap",
)

var systemControlVerbs = setOf(
	"shutdown", "reboot", "halt", "poweroff", "init", "telinit", "systemctl", "service",
	"launchctl", "crontab", "at", "batch", "iptables", "ip6tables", "nft", "ufw", "sysctl",
	"mount", "umount", "swapoff", "swapon", "modprobe", "rmmod", "insmod", "chkconfig",
)

var systemControlReadOnly = setOf("status", "list-units", "list-unit-files", "is-active", "is-enabled", "show", "-l", "-L", "--list", "list", "cat")

var deviceVerbs = setOf("fdisk", "sfdisk", "parted", "gparted", "wipefs", "mkswap", "format", "diskutil", "badblocks")

var shellInterpreters = setOf("sh", "bash", "zsh", "dash", "ksh", "fish", "python", "python3", "perl", "ruby", "node", "php", "lua")

var orchestrators = setOf("docker", "podman", "kubectl", "nerdctl", "docker-compose", "helm")

var orchestratorReadOnly = setOf("ps", "images", "logs", "inspect", "get", "describe", "version", "info", "top", "stats", "config", "ls", "list", "history", "status")

var orchestratorDestructive = setOf("rm", "rmi", "prune", "delete", "kill", "down", "drain", "uninstall", "destroy")

var gitReadOnly = setOf("status", "log", "diff", "show", "branch", "remote", "blame", "grep", "ls-files", "describe", "rev-parse", "shortlog", "tag", "reflog", "config", "stash-list")

var gitNetwork = setOf("push", "pull", "fetch", "clone", "ls-remote", "submodule")

// Paths whose deletion or overwrite is treated as system destruction.
var systemPrefixes = []string{
	"/etc", "/usr", "/boot", "/var", "/lib", "/lib32", "/lib64", "/bin", "/sbin", "/opt",
	"/dev", "/proc", "/sys", "/srv", "/System", "/Library", "/Applications", "/private", "/snap",
}

// Home roots are protected themselves, not the files beneath them.
var (
	homeRoots = setOf("/home", "/Users", "/root")
	homeDir   = regexp.MustCompile(`^/(home|Users)/[^/]+$`)
)

var scratchPrefixes = []string{"/tmp", "/var/tmp", "/private/tmp", "/dev/null", "/dev/shm"}

var criticalFiles = setOf("/etc/passwd", "/etc/shadow", "/etc/group", "/etc/gshadow", "/etc/sudoers", "/etc/fstab")

var harmlessSinks = setOf("/dev/null", "/dev/stdout", "/dev/stderr", "/dev/tty", "/dev/zero")

var (
	blockDevice    = regexp.MustCompile(`^/dev/(sd[a-z]|hd[a-z]|vd[a-z]|xvd[a-z]|nvme\d|mmcblk\d|disk\d|rdisk\d|md\d|dm-\d|mapper/)`)
	awkSystemCall  = regexp.MustCompile(`\bsystem\s*\(\s*("(?:[^"\\]|\\.)*")?`)
	awkPipe        = regexp.MustCompile(`("(?:[^"\\]|\\.)*")?\s*\|\s*getline|\b(?:print|printf)\b[^;}|]*\|\s*("(?:[^"\\]|\\.)*")?|\|&`)
	awkRedirect    = regexp.MustCompile(`\b(print|printf)\b[^;}]*>>?\s*("(?:[^"\\]|\\.)*"|\w+)`)
	credentialPath = regexp.MustCompile(`(/etc/shadow|/etc/gshadow|/etc/sudoers|\.ssh/id_|\.ssh/authorized_keys|\.aws/credentials|\.netrc|\.pgpass|\.gnupg/|\.kube/config|\.docker/config\.json|\.git-credentials|id_rsa|id_ed25519|\.vault-token)`)
	remoteSpec     = regexp.MustCompile(`^([A-Za-z0-9._-]+@)?[A-Za-z0-9._-]+:`)
	octalMode      = regexp.MustCompile(`^[0-7]{3,4}$`)
)

// dangerPattern is a whole-text regex rule. Patterns are data and may be extended.
type dangerPattern struct {
	re         *regexp.Regexp
	categories []domain.Category
	signal     string
}

func defaultPatterns() []dangerPattern {
	mk := func(expr, signal string, cats ...domain.Category) dangerPattern {
		return dangerPattern{re: regexp.MustCompile(expr), categories: cats, signal: signal}
	}
	return []dangerPattern{
		mk(`:\s*\(\s*\)\s*\{[^}]*:\s*\|\s*:\s*&[^}]*\}`, "fork bomb", domain.CategoryResourceExhaustion),
		mk(`\b(\w+)\s*\(\s*\)\s*\{[^}]*\|[^}]*&\s*\}\s*;`, "self-replicating function", domain.CategoryResourceExhaustion),
		mk(`while\s+(true|:|\[\s*1\s*\])\s*;\s*do[^;]*&\s*(;\s*)?done`, "unbounded background spawn loop", domain.CategoryResourceExhaustion),
		mk(`(?i)\b(curl|wget)\b[^|]*\|\s*(sudo\s+)?(ba|z|da|k)?sh\b`, "remote script piped to shell", domain.CategoryRemoteCodeExecution),
		mk(`(?i)\b(ba|z)?sh\s+<\(\s*(curl|wget)\b`, "remote script via process substitution", domain.CategoryRemoteCodeExecution),
		mk(`\b(nc|ncat|netcat)\b.*\s-[a-zA-Z]*[ec]\s`, "netcat command execution", domain.CategoryRemoteCodeExecution),
		mk(`(?i)\bsocat\b.*\bEXEC:`, "socat command execution", domain.CategoryRemoteCodeExecution),
		mk(`/dev/(tcp|udp)/`, "raw socket redirection", domain.CategoryNetworkExfiltration),
		mk(`>\s*/dev/(sd[a-z]|hd[a-z]|nvme|mmcblk|xvd[a-z]|disk\d)`, "writing to block device", domain.CategoryDeviceWrite),
		mk(`\bdd\b.*\bof=/dev/(sd|hd|nvme|mmcblk|xvd|disk|rdisk)`, "raw disk write", domain.CategoryDeviceWrite),
		mk(`\bmkfs(\.\w+)?\b`, "formatting filesystem", domain.CategoryDeviceWrite),
		mk(`>\s*/etc/(passwd|shadow|group|sudoers)\b`, "overwriting account database", domain.CategorySystemDestruction),
		mk(`\bkill\s+-9\s+(-1|1)\s*$`, "killing init or every process", domain.CategorySystemControl),
	}
}

func setOf(items ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}

func in(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// isSystemPath reports whether a target lies at or under a protected system location.
func isSystemPath(path string) bool {
	p := strings.TrimRight(path, "/")
	if p == "" || p == "/*" || path == "/" {
		return true
	}
	for _, s := range scratchPrefixes {
		if p == s || strings.HasPrefix(p, s+"/") {
			return false
		}
	}
	for _, s := range systemPrefixes {
		if p == s || strings.HasPrefix(p, s+"/") {
			return true
		}
	}
	return false
}

// isRootOrHome reports a target whose recursive removal wipes the system or the user's home.
func isRootOrHome(path string) bool {
	switch strings.TrimRight(path, "/") {
	case "", "/*", "~", "~/*", "$HOME", "${HOME}", "$HOME/*", "${HOME}/*":
		return true
	}
	p := strings.TrimRight(path, "/*")
	if in(homeRoots, p) || homeDir.MatchString(p) {
		return true
	}
	for _, s := range systemPrefixes {
		if p == s {
			return true
		}
	}
	return false
}
