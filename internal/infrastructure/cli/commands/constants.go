package commands

import "github.com/doeshing/aishell-go/internal/domain"

// Defaults for management commands
const (
	DefaultHistoryLimit       = domain.DefaultHistoryLimit
	DefaultHistorySearchLimit = domain.DefaultHistorySearchLimit
	DefaultSuggestionLimit    = 5
	TimestampFormat           = "2006-01-02 15:04:05"
)

// Error messages
const (
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrHistoryStoreUnavailable  = "history store unavailable"
	ErrRollbackUnavailable      = "rollback manager unavailable"
	ErrCacheUnavailable         = "reply cache disabled"
	ErrRuleIDRequired           = "--id is required"
	ErrRulePatternRequired      = "--pattern or --category is required"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgPolicyValid              = "Policy valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoHistoryRecorded        = "No history recorded yet."
	MsgNoCachedReplies          = "No cached replies."
	MsgNoSuggestions            = "No completed commands recorded yet."
)
