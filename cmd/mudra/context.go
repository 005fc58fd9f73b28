package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

// configPath returns the --config value, or the default location.
func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if p := strings.TrimSpace(*c.configFlag); p != "" {
			return p
		}
	}
	return config.DefaultPath()
}

// explicitConfig reports whether the user named a config file.
func (c *commandContext) explicitConfig() bool {
	return c.configFlag != nil && strings.TrimSpace(*c.configFlag) != ""
}

// ensureConfig loads the configuration once. A missing default file means
// defaults; a missing file named with --config is an error.
func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var cfg config.Config
		var err error
		if c.explicitConfig() {
			cfg, err = config.LoadFile(c.configPath())
		} else {
			cfg, err = config.Load(c.configPath())
		}
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && *c.logLevelFlag != "" {
			cfg.Logging.Level = *c.logLevelFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}
