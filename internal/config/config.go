// Package config holds the configuration of the inventory service.
package config

import (
	"strings"
	"time"

	"github.com/abgdnv/retailinventory/pkg/config"
	"github.com/abgdnv/retailinventory/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

// EnvPrefix prefixes every environment override, e.g. INVENTORY_JWT_KEY.
const EnvPrefix = "inventory"

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	JWT        config.JWTConfig        `koanf:"jwt"`
	Authz      config.AuthzConfig      `koanf:"authz"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
}

// Defaults are the lowest-priority values, overridden by config.yaml, .env and the environment.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":               8080,
		"server.maxHeaderBytes":     1 << 20,
		"server.maxBodyBytes":       1 << 20,
		"server.timeout.read":       10 * time.Second,
		"server.timeout.write":      10 * time.Second,
		"server.timeout.idle":       60 * time.Second,
		"server.timeout.readHeader": 5 * time.Second,

		"database.driver":  config.DriverPostgres,
		"database.timeout": 10 * time.Second,

		"log.level":        "info",
		"log.format":       config.LogFormatJSON,
		"pprof.addr":       "localhost:6060",
		"shutdown.timeout": 15 * time.Second,

		"jwt.issuer":           "retail-inventory",
		"jwt.audience":         "retail-inventory-api",
		"authz.adminlistscope": "optin",

		"nats.timeout":         5 * time.Second,
		"nats.maxreconnects":   60,
		"nats.reconnectwait":   2 * time.Second,
		"nats.stream":          "INVENTORY",
		"nats.maxage":          30 * 24 * time.Hour,
		"nats.duplicatewindow": 2 * time.Minute,

		"resilience.retry.maxattempts":                  3,
		"resilience.retry.initialbackoff":               100 * time.Millisecond,
		"resilience.retry.maxbackoff":                   2 * time.Second,
		"resilience.retry.maxelapsed":                   2 * time.Second,
		"resilience.circuitbreaker.consecutivefailures": 5,
		"resilience.circuitbreaker.errorratepercent":    50,
		"resilience.circuitbreaker.opentimeout":         30 * time.Second,
		"resilience.circuitbreaker.halfopenrequests":    1,

		"telemetry.traces.sampleratio":      1.0,
		"telemetry.traces.otlphttp.timeout": 5 * time.Second,
	}
}

// Load reads the configuration from defaults, config.yaml, .env and INVENTORY_* environment variables.
func Load(opts ...configloader.Option) (*Config, error) {
	opts = append([]configloader.Option{configloader.WithDefaults(Defaults())}, opts...)
	return configloader.Load[*Config](EnvPrefix, opts...)
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.JWT.String())
	b.WriteString(c.Authz.String())
	b.WriteString(c.Nats.String())
	b.WriteString(c.Resilience.String())
	b.WriteString(c.Telemetry.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.JWT.Validate(); err != nil {
		return err
	}
	if err := c.Authz.Validate(); err != nil {
		return err
	}
	if err := c.Nats.Validate(); err != nil {
		return err
	}
	if err := c.Resilience.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	return nil
}
