package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureDirectoryPermissions is used for backup storage (rwx------)
	SecureDirectoryPermissions = 0o700
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultCommandTimeout is the default timeout for supervised commands
	DefaultCommandTimeout = 300 * time.Second
	// DefaultHTTPClientTimeout is the timeout for generator HTTP requests
	DefaultHTTPClientTimeout = 60 * time.Second
	// DefaultCPUSampleInterval is how long CPU usage is measured
	DefaultCPUSampleInterval = 200 * time.Millisecond
	// DefaultSampleTimeout bounds a full resource sample
	DefaultSampleTimeout = 3 * time.Second
	// DefaultWaitDelay is how long to wait for output pipes after a kill
	DefaultWaitDelay = 2 * time.Second
)

// Resource gate defaults
const (
	DefaultCPUMaxPercent       = 90.0
	DefaultMemoryMaxPercent    = 90.0
	DefaultDiskMinFreePercent  = 5.0
	DefaultDiskWarnFreePercent = 10.0
	DefaultZombieMax           = 5
	DefaultDiskPath            = "/"
)

// Rollback defaults
const (
	// DefaultRollbackRetention keeps unconsumed records for a week
	DefaultRollbackRetention = 7 * 24 * time.Hour
	// DefaultAuditRetention keeps consumed records for thirty days
	DefaultAuditRetention = 30 * 24 * time.Hour

	DefaultRollbackMaxFiles = 1000
	DefaultRollbackMaxBytes = 256 << 20
)

// Execution defaults
const (
	DefaultShell          = "/bin/sh"
	DefaultMaxOutputBytes = 1 << 20
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// DefaultHistorySearchLimit is the default number of search results to return
	DefaultHistorySearchLimit = 50
	// MaxHistoryAnalysisRecords is the maximum number of records to analyze
	MaxHistoryAnalysisRecords = 1000
)

// Model configuration constants
const (
	// DefaultModelName matches the local model shipped in the default config
	DefaultModelName = "llama3.2:3b"
	// DefaultMaxTokens is the default maximum number of tokens
	DefaultMaxTokens = 256
	// DefaultModelTestTimeout is the default timeout for model testing
	DefaultModelTestTimeout = 30 * time.Second
)

// Generator reply cache defaults
const (
	DefaultCacheTTL        = time.Hour
	DefaultCacheMaxEntries = 100
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
