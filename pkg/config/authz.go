package config

import (
	"fmt"
	"strings"
)

type AuthzConfig struct {
	// AdminListScope is either "optin" (a SystemAdmin may narrow a listing to one store) or "unfiltered".
	AdminListScope string `koanf:"adminlistscope"`
}

// String returns a string representation of the authorization configuration.
func (c *AuthzConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Authz ---\n")
	b.WriteString(fmt.Sprintf("  adminlistscope: %s\n", c.AdminListScope))
	return b.String()
}

func (c *AuthzConfig) Validate() error {
	switch c.AdminListScope {
	case "":
		c.AdminListScope = "optin"
	case "optin", "unfiltered":
	default:
		return fmt.Errorf("authz.adminlistscope must be 'optin' or 'unfiltered', got %q", c.AdminListScope)
	}
	return nil
}
