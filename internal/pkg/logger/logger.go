package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the zap-backed logger.
type Options struct {
	// Verbose forces debug level regardless of Level.
	Verbose bool
	// Level is one of debug, info, warn, error. Empty means warn.
	Level string
	// File appends JSON logs to a path instead of stderr.
	File string
}

// ZapLogger adapts zap to the ports.Logger field-map interface.
type ZapLogger struct {
	base  *zap.Logger
	level zap.AtomicLevel
}

// New builds a production JSON logger.
func New(opts Options) (*ZapLogger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Sampling = nil
	config.DisableStacktrace = !opts.Verbose
	if opts.File != "" {
		config.OutputPaths = []string{opts.File}
		config.ErrorOutputPaths = []string{opts.File}
	}

	base, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &ZapLogger{base: base, level: config.Level}, nil
}

// NewStd keeps the old verbose-gated constructor: debug when verbose, errors only otherwise.
func NewStd(verbose bool) *ZapLogger {
	l, err := New(Options{Verbose: verbose, Level: "error"})
	if err != nil {
		return NewNop()
	}
	return l
}

// NewNop returns a logger that discards everything.
func NewNop() *ZapLogger {
	return &ZapLogger{base: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.FatalLevel)}
}

// Wrap adapts an existing zap logger.
func Wrap(base *zap.Logger) *ZapLogger {
	return &ZapLogger{base: base, level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

// SetLevel changes the level at runtime.
func (l *ZapLogger) SetLevel(level string) error {
	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(parsed)
	return nil
}

// Zap exposes the underlying logger.
func (l *ZapLogger) Zap() *zap.Logger { return l.base }

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error { return l.base.Sync() }

func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.base.Debug(msg, toFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.base.Info(msg, toFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.base.Warn(msg, toFields(fields)...)
}

func (l *ZapLogger) Error(msg string, err error, fields map[string]interface{}) {
	l.base.Error(msg, append(toFields(fields), zap.Error(err))...)
}

func toFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			out = append(out, zap.String(k, val))
		case int:
			out = append(out, zap.Int(k, val))
		case int64:
			out = append(out, zap.Int64(k, val))
		case bool:
			out = append(out, zap.Bool(k, val))
		case error:
			out = append(out, zap.NamedError(k, val))
		case fmt.Stringer:
			out = append(out, zap.Stringer(k, val))
		default:
			out = append(out, zap.Any(k, val))
		}
	}
	return out
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "warn", "warning":
		return zapcore.WarnLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.WarnLevel, fmt.Errorf("unknown log level %q", level)
}
