package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
	"time"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"

	maxShutdownTimeout = 5 * time.Minute
)

var logLevels = []string{"debug", "info", "warn", "error"}

// LogConfig selects the level and the output format of the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func (c *LogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Log ---\n")
	b.WriteString(fmt.Sprintf("  level: %s\n", c.Level))
	b.WriteString(fmt.Sprintf("  format: %s\n", c.Format))
	return b.String()
}

func (c *LogConfig) Validate() error {
	if c.Level != "" && !slices.Contains(logLevels, c.Level) {
		return fmt.Errorf("log level %q is not one of %v", c.Level, logLevels)
	}
	switch c.Format {
	case "", LogFormatJSON, LogFormatText:
		return nil
	default:
		return fmt.Errorf("log format %q is not supported, use %s or %s", c.Format, LogFormatJSON, LogFormatText)
	}
}

// PProfConfig enables the profiling listener. Addr must be a loopback address unless AllowRemote is set.
type PProfConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Addr        string `koanf:"addr"`
	AllowRemote bool   `koanf:"allowremote"`
}

func (c *PProfConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- PProf ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	if c.Enabled {
		b.WriteString(fmt.Sprintf("  address: %s (remote: %t)\n", c.Addr, c.AllowRemote))
	}
	return b.String()
}

func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	host, _, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return fmt.Errorf("pprof address %q is invalid: %w", c.Addr, err)
	}
	if c.AllowRemote || host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("pprof address %q is not a loopback address, set pprof.allowremote to expose it", c.Addr)
}

// ShutdownConfig bounds every graceful stop: HTTP servers, the NATS drain and the trace flush.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *ShutdownConfig) String() string {
	return fmt.Sprintf("\n--- Shutdown ---\n  timeout: %s\n", c.Timeout)
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 || c.Timeout > maxShutdownTimeout {
		return fmt.Errorf("shutdown timeout must be in (0, %s], got %s", maxShutdownTimeout, c.Timeout)
	}
	return nil
}
