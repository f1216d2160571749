package main

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tidyup/internal/config"
	"tidyup/internal/history"
	"tidyup/internal/jobs"
	"tidyup/internal/logging"
	"tidyup/internal/mailer"
	"tidyup/internal/oplog"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *logging.Logger
	loggerErr  error

	dispatcher *jobs.Dispatcher
	history    *history.Store
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

// ensureConfig loads configuration once. When required is set a missing
// config file is an error instead of falling back to defaults.
func (c *commandContext) ensureConfig(required bool) (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		var (
			cfg      *config.Config
			resolved string
			err      error
		)
		if required {
			cfg, resolved, err = config.LoadRequired(path)
		} else {
			cfg, resolved, _, err = config.Load(path)
		}
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig(false)
	return cfg
}

// loggerFor builds the shared logger. Console output goes to the command's
// stderr so tables on stdout stay clean; every line is also appended to the
// log file.
func (c *commandContext) loggerFor(cmd *cobra.Command) (*logging.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg := c.configValue()
		if cfg == nil {
			c.loggerErr = errors.New("configuration not loaded")
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	})
	return c.logger, c.loggerErr
}

// dispatcherFor wires the job dispatcher. A missing SMTP configuration leaves
// the sender nil; mail commands then report mailer.ErrNotConfigured.
func (c *commandContext) dispatcherFor(cmd *cobra.Command) (*jobs.Dispatcher, error) {
	if c.dispatcher != nil {
		return c.dispatcher, nil
	}
	cfg := c.configValue()
	logger, err := c.loggerFor(cmd)
	if err != nil {
		return nil, err
	}
	env := jobs.Env{
		Config: cfg,
		Logger: logger.Logger,
		Store:  oplog.NewStore(cfg.OperationLogPath()),
	}
	if sender, err := mailer.NewSender(cfg.SMTP, logger.Logger); err == nil {
		env.Sender = sender
	}
	if store, err := c.historyStore(); err == nil {
		env.History = store
	} else {
		logger.Warn("run history unavailable", logging.Error(err), logging.String("path", cfg.HistoryPath()))
	}
	c.dispatcher = jobs.NewDispatcher(env)
	return c.dispatcher, nil
}

func (c *commandContext) run(cmd *cobra.Command, job jobs.Command) (any, error) {
	d, err := c.dispatcherFor(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return d.Run(ctx, job)
}

func (c *commandContext) store() *oplog.Store {
	return oplog.NewStore(c.configValue().OperationLogPath())
}

// historyStore opens the run history database once per invocation.
func (c *commandContext) historyStore() (*history.Store, error) {
	if c.history != nil {
		return c.history, nil
	}
	store, err := history.Open(c.configValue().HistoryPath())
	if err != nil {
		return nil, err
	}
	c.history = store
	return store, nil
}

func (c *commandContext) close() error {
	if c.dispatcher != nil {
		c.dispatcher.Close()
		c.dispatcher = nil
	}
	if c.history != nil {
		_ = c.history.Close()
		c.history = nil
	}
	if c.logger != nil {
		return c.logger.Close()
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	return hasAnnotation(cmd, "skipConfigLoad")
}

func requiresConfigFile(cmd *cobra.Command) bool {
	return hasAnnotation(cmd, "requireConfig")
}

func hasAnnotation(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[key] == "true" {
			return true
		}
	}
	return false
}
