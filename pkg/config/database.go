package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver  string        `koanf:"driver"`
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	// Seed loads the demo stores, users and products on startup when the database is empty.
	Seed bool `koanf:"seed"`
	// SeedPassword is given to the seeded admin, owner and staff accounts.
	SeedPassword string `koanf:"seedpassword"`
}

// String returns a string representation of the database configuration. Credentials in the URL are never printed.
func (c *DatabaseConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Database ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	b.WriteString(fmt.Sprintf("  url: %s\n", maskURL(c.URL)))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  seed: %t\n", c.Seed))
	b.WriteString(fmt.Sprintf("  seedpassword: %s\n", maskSecret(c.SeedPassword)))
	return b.String()
}

func (c *DatabaseConfig) Validate() error {
	if c.Seed && len(c.SeedPassword) < 8 {
		return fmt.Errorf("database seed requires a seedpassword of at least 8 characters")
	}
	switch c.Driver {
	case "", DriverPostgres:
		c.Driver = DriverPostgres
	case DriverMemory:
		return nil
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Driver)
	}
	if c.URL == "" {
		return fmt.Errorf("database URL is not configured")
	}
	if !isValidPostgresURL(c.URL) {
		return fmt.Errorf("database URL must start with 'postgres://'")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("database timeout is not configured")
	}
	return nil
}

// isValidPostgresURL checks if the provided URL is a valid PostgreSQL URL
func isValidPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://")
}

func maskURL(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return url
	}
	return url[:scheme+3] + "****" + url[at:]
}
