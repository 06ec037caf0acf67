package common

import (
	"fmt"
	"io"
	"os"

	"forwarder/internal/buildinfo"
	"forwarder/internal/config"
	"forwarder/internal/logging"
)

// Context carries the settings shared by every command
type Context struct {
	BinaryName string
	ConfigPath string
	LogLevel   string
	Out        io.Writer
	Loader     *config.Loader
}

func NewContext(binaryName string) *Context {
	return &Context{
		BinaryName: binaryName,
		Out:        os.Stdout,
		Loader:     config.NewLoader(),
	}
}

// LoadConfig reads and validates the configuration named by the global flags
func (c *Context) LoadConfig() (*config.Config, error) {
	cfg, err := c.Loader.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds the root logger for a loaded configuration
func (c *Context) NewLogger(cfg *config.Config) *logging.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	logging.SetLevel(level)
	logging.SetOutput(c.Out)
	return logging.NewLogger(level, c.Out, c.BinaryName)
}

// VersionString describes the running binary
func (c *Context) VersionString() string {
	return fmt.Sprintf("%s version %s", c.BinaryName, buildinfo.Summary())
}
