package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Port           int          `koanf:"port"`
	MaxHeaderBytes int          `koanf:"maxHeaderBytes"`
	MaxBodyBytes   int64        `koanf:"maxBodyBytes"`
	Timeout        HTTPTimeouts `koanf:"timeout"`
}

type HTTPTimeouts struct {
	Read       time.Duration `koanf:"read"`
	Write      time.Duration `koanf:"write"`
	Idle       time.Duration `koanf:"idle"`
	ReadHeader time.Duration `koanf:"readHeader"`
}

func (c *HTTPConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- HTTP Server ---\n")
	b.WriteString(fmt.Sprintf("  port: %d\n", c.Port))
	b.WriteString(fmt.Sprintf("  limits: header=%dB body=%dB\n", c.MaxHeaderBytes, c.MaxBodyBytes))
	b.WriteString(fmt.Sprintf("  timeout: read=%s write=%s idle=%s readHeader=%s\n",
		c.Timeout.Read, c.Timeout.Write, c.Timeout.Idle, c.Timeout.ReadHeader))
	return b.String()
}

func (c *HTTPConfig) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP server port: %d", c.Port))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("invalid HTTP request body limit: %d", c.MaxBodyBytes))
	}
	for name, d := range map[string]time.Duration{
		"read":        c.Timeout.Read,
		"write":       c.Timeout.Write,
		"idle":        c.Timeout.Idle,
		"read header": c.Timeout.ReadHeader,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("invalid HTTP server %s timeout: %v", name, d))
		}
	}
	return errors.Join(errs...)
}
