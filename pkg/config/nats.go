package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NATSConfig configures the connection to the broker and the JetStream stream that
// stores lifecycle events.
type NATSConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Url           string        `koanf:"url"`
	Timeout       time.Duration `koanf:"timeout"`
	MaxReconnects int           `koanf:"maxreconnects"`
	ReconnectWait time.Duration `koanf:"reconnectwait"`
	// Stream receives every inventory.> lifecycle event.
	Stream string `koanf:"stream"`
	// MaxAge bounds event retention; zero keeps events until other stream limits apply.
	MaxAge time.Duration `koanf:"maxage"`
	// DuplicateWindow is how long JetStream remembers event ids to drop republished events.
	DuplicateWindow time.Duration `koanf:"duplicatewindow"`
}

func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	if !c.Enabled {
		return b.String()
	}
	b.WriteString(fmt.Sprintf("  url: %s (timeout %s, %d reconnects every %s)\n",
		c.Url, c.Timeout, c.MaxReconnects, c.ReconnectWait))
	b.WriteString(fmt.Sprintf("  stream: %s (max age %s, duplicate window %s)\n", c.Stream, c.MaxAge, c.DuplicateWindow))
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Url == "" {
		errs = append(errs, errors.New("nats.url is not configured"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("nats.timeout must be greater than 0"))
	}
	if c.Stream == "" || strings.ContainsAny(c.Stream, ".*> \t") {
		errs = append(errs, fmt.Errorf("nats.stream %q is not a valid stream name", c.Stream))
	}
	if c.DuplicateWindow <= 0 {
		errs = append(errs, errors.New("nats.duplicatewindow must be greater than 0"))
	}
	if c.MaxAge < 0 || (c.MaxAge > 0 && c.MaxAge < c.DuplicateWindow) {
		errs = append(errs, errors.New("nats.maxage must be zero or at least nats.duplicatewindow"))
	}
	return errors.Join(errs...)
}
