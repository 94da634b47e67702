// Package authz decides who may list, read, create, update, delete and restore
// which inventory record. Decisions depend only on the request value passed in.
package authz

import "fmt"

// Role is the closed set of roles a principal can carry.
type Role int8

const (
	RoleStaff Role = iota + 1
	RoleOwner
	RoleSystemAdmin
)

var roleNames = map[Role]string{
	RoleStaff:       "Staff",
	RoleOwner:       "Owner",
	RoleSystemAdmin: "SystemAdmin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int8(r))
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole parses the role name carried in a credential.
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Principal is the authenticated identity making a request.
// It is immutable once constructed and lives for one request.
type Principal struct {
	subject  string
	name     string
	role     Role
	tenantID int64
	scoped   bool
}

// NewPrincipal builds a principal from verified claims. tenantID is nil for
// principals without a store, which is expected only for SystemAdmin.
func NewPrincipal(subject, name string, role Role, tenantID *int64) Principal {
	p := Principal{subject: subject, name: name, role: role}
	if tenantID != nil {
		p.tenantID = *tenantID
		p.scoped = true
	}
	return p
}

func (p Principal) Subject() string { return p.subject }
func (p Principal) Name() string    { return p.name }
func (p Principal) Role() Role      { return p.role }

// TenantID returns the tenant the principal belongs to, if any.
func (p Principal) TenantID() (int64, bool) {
	return p.tenantID, p.scoped
}

// IsSystemAdmin reports whether the principal is exempt from tenant scoping.
func (p Principal) IsSystemAdmin() bool {
	return p.role == RoleSystemAdmin
}

// Actor is the label written into audit stamps.
func (p Principal) Actor() string {
	if p.name != "" {
		return p.name
	}
	return p.subject
}
