package config

import (
	"fmt"
	"strings"
)

// JWTConfig configures issuance and verification of bearer credentials.
type JWTConfig struct {
	Key      string `koanf:"key"`
	Issuer   string `koanf:"issuer"`
	Audience string `koanf:"audience"`
}

// String returns a string representation of the JWT configuration. The key is never printed.
func (c *JWTConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- JWT ---\n")
	b.WriteString(fmt.Sprintf("  key: %s\n", maskSecret(c.Key)))
	b.WriteString(fmt.Sprintf("  issuer: %s\n", c.Issuer))
	b.WriteString(fmt.Sprintf("  audience: %s\n", c.Audience))
	return b.String()
}

func (c *JWTConfig) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("JWT signing key is not configured")
	}
	if len(c.Key) < 32 {
		return fmt.Errorf("JWT signing key must be at least 32 bytes long")
	}
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return "<not configured>"
	}
	return "****"
}
