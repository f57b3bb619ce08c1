// Package app wires infrastructure adapters into application services.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/doeshing/aishell-go/internal/application/doctor"
	"github.com/doeshing/aishell-go/internal/application/supervisor"
	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/infrastructure/ai"
	"github.com/doeshing/aishell-go/internal/infrastructure/cache"
	"github.com/doeshing/aishell-go/internal/infrastructure/classifier"
	"github.com/doeshing/aishell-go/internal/infrastructure/config"
	contextcollector "github.com/doeshing/aishell-go/internal/infrastructure/context"
	"github.com/doeshing/aishell-go/internal/infrastructure/executor"
	"github.com/doeshing/aishell-go/internal/infrastructure/history"
	"github.com/doeshing/aishell-go/internal/infrastructure/policy"
	"github.com/doeshing/aishell-go/internal/infrastructure/resources"
	"github.com/doeshing/aishell-go/internal/infrastructure/rollback"
	"github.com/doeshing/aishell-go/internal/pkg/filesystem"
	"github.com/doeshing/aishell-go/internal/pkg/logger"
	"github.com/doeshing/aishell-go/internal/ports"
)

// Options controls container construction.
type Options struct {
	Verbose    bool
	ConfigPath string
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config         domain.Config
	ConfigLoader   *config.FileLoader
	ConfigProvider ports.ConfigProvider
	Logger         *logger.ZapLogger
	PolicyEngine   *policy.Engine
	PolicyPath     string
	PolicyWatcher  *policy.Watcher
	Gate           *resources.Gate
	Rollback       *rollback.Manager
	Executor       *executor.LocalExecutor
	HistoryStore   ports.HistoryRepository
	Generators     *ai.Factory
	ReplyCache     *cache.FileCache
	Supervisor     *supervisor.Service
	DoctorService  *doctor.Service
}

// BuildContainer constructs the dependency graph. A malformed policy file is
// fatal here and never silently replaced by defaults.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg, opts.Verbose)
	if err != nil {
		return nil, err
	}

	policyPath := policy.ResolvePath(cfg.Policy.RulesFile)
	ruleset, err := policy.Load(policyPath)
	if err != nil {
		return nil, err
	}
	if profile := cfg.GetComplianceProfile(); profile != "" && !ruleset.HasProfile(profile) {
		return nil, &domain.PolicyConfigError{Source: policyPath, Err: fmt.Errorf("compliance profile %s is not defined", profile)}
	}
	engine := policy.NewEngine(ruleset)

	gate := resources.NewGate(
		resources.NewSystemSampler(cfg.GetDiskPath(), cfg.GetCPUSampleInterval()),
		cfg.GetResourceThresholds(),
		cfg.GetSampleTimeout(),
		log,
	)
	rollbackManager := rollback.NewManager(rollback.OptionsFromConfig(cfg), log)
	exec := executor.NewLocalExecutor(executor.OptionsFromConfig(cfg), log)
	historyStore := history.Open(cfg, log)
	factory := ai.NewFactory(log)
	var replyCache *cache.FileCache
	if cfg.Cache.Enabled {
		replyCache = cache.FromConfig(cfg)
		factory.WithCache(replyCache)
	}

	generator, err := factory.ForConfig(cfg, "")
	if err != nil {
		log.Warn("no command generator available", map[string]interface{}{"error": err.Error()})
	}

	svc := &supervisor.Service{
		Classifier:     &liveClassifier{engine: engine},
		Policy:         engine,
		Gate:           gate,
		Rollback:       rollbackManager,
		Executor:       exec,
		Sink:           historyStore,
		Generator:      generator,
		Environment:    contextcollector.NewBasicCollector(cfg.Context, cfg.Execution.WorkingDir),
		Splitter:       ai.Candidates,
		Logger:         log,
		DefaultTimeout: cfg.GetCommandTimeout(),
	}

	backupDir := ""
	if cfg.Rollback.Enabled {
		backupDir = rollbackManager.Dir()
	}
	doctorService := &doctor.Service{
		ConfigProvider: cfgLoader,
		LoadPolicy: func() (ports.PolicySnapshot, error) {
			return policy.Load(policyPath)
		},
		Gate:      gate,
		Generator: generator,
		History:   historyStore,
		BackupDir: backupDir,
		Shell:     exec.Shell(),
	}

	c := &Container{
		Config:         cfg,
		ConfigLoader:   cfgLoader,
		ConfigProvider: cfgLoader,
		Logger:         log,
		PolicyEngine:   engine,
		PolicyPath:     policyPath,
		Gate:           gate,
		Rollback:       rollbackManager,
		Executor:       exec,
		HistoryStore:   historyStore,
		Generators:     factory,
		ReplyCache:     replyCache,
		Supervisor:     svc,
		DoctorService:  doctorService,
	}

	if cfg.Policy.Watch {
		watcher, err := policy.NewWatcher(policyPath, engine, log)
		if err != nil {
			log.Warn("policy watcher unavailable", map[string]interface{}{"error": err.Error()})
		} else if err := watcher.Start(ctx); err != nil {
			watcher.Stop()
			log.Warn("policy watcher unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			c.PolicyWatcher = watcher
		}
	}

	return c, nil
}

// UseModel switches the supervisor to the named model and its fallbacks.
func (c *Container) UseModel(name string) error {
	gen, err := c.Generators.ForConfig(c.Config, name)
	if err != nil {
		return err
	}
	c.Supervisor.Generator = gen
	c.DoctorService.Generator = gen
	return nil
}

// Close releases watchers, stores and log buffers.
func (c *Container) Close() error {
	var errs []error
	if c.PolicyWatcher != nil {
		c.PolicyWatcher.Stop()
	}
	if c.HistoryStore != nil {
		errs = append(errs, c.HistoryStore.Close())
	}
	if c.Logger != nil {
		// stderr sync fails on some terminals
		_ = c.Logger.Sync()
	}
	return errors.Join(errs...)
}

func newLogger(cfg domain.Config, verbose bool) (*logger.ZapLogger, error) {
	file := ""
	if cfg.Logging.File != "" {
		file = filesystem.ExpandPath(cfg.Logging.File, "aishell.log")
	}
	log, err := logger.New(logger.Options{Verbose: verbose, Level: cfg.Logging.Level, File: file})
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return log, nil
}

// liveClassifier rebuilds the classifier when the policy engine publishes a
// ruleset with different severities.
type liveClassifier struct {
	engine  *policy.Engine
	mu      sync.Mutex
	ruleset *policy.Ruleset
	current *classifier.Classifier
}

func (l *liveClassifier) Classify(command string) domain.Classification {
	rs := l.engine.Current()
	l.mu.Lock()
	if l.current == nil || rs != l.ruleset {
		l.ruleset = rs
		l.current = classifier.New(rs.Severities())
	}
	c := l.current
	l.mu.Unlock()
	return c.Classify(command)
}

var _ ports.Classifier = (*liveClassifier)(nil)
