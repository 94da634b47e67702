package authz

import (
	"fmt"

	inverrors "github.com/abgdnv/retailinventory/internal/errors"
	"github.com/abgdnv/retailinventory/internal/lifecycle"
)

// Action is an operation requested on a record or a collection.
type Action int8

const (
	ActionList Action = iota + 1
	ActionRead
	ActionCreate
	ActionUpdate
	ActionDelete
	ActionRestore
)

func (a Action) String() string {
	switch a {
	case ActionList:
		return "list"
	case ActionRead:
		return "read"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionRestore:
		return "restore"
	default:
		return fmt.Sprintf("action(%d)", int8(a))
	}
}

// Kind is the type of record an action targets.
type Kind int8

const (
	KindProduct Kind = iota + 1
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindProduct:
		return "product"
	case KindStore:
		return "store"
	default:
		return fmt.Sprintf("kind(%d)", int8(k))
	}
}

// Outcome is the result class of a decision.
type Outcome int8

const (
	OutcomeAllow Outcome = iota + 1
	OutcomeDeny
	OutcomeStateConflict
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeDeny:
		return "deny"
	case OutcomeStateConflict:
		return "state_conflict"
	case OutcomeNotFound:
		return "not_found"
	default:
		return fmt.Sprintf("outcome(%d)", int8(o))
	}
}

// AdminListScope controls whether a SystemAdmin listing honours a requested tenant filter.
type AdminListScope string

const (
	// AdminListOptIn applies the tenant filter an admin asks for, and none otherwise.
	AdminListOptIn AdminListScope = "optin"
	// AdminListUnfiltered always lists across all tenants for admins.
	AdminListUnfiltered AdminListScope = "unfiltered"
)

// Request describes one authorization question.
type Request struct {
	Principal Principal
	Action    Action
	Kind      Kind
	// TenantID is the tenant owning the record. For List it is the requested
	// filter and for Create the tenant submitted in the payload; nil when absent.
	TenantID *int64
	// MoveToTenantID is the tenant an Update payload reassigns the record to.
	MoveToTenantID *int64
	// State is the current lifecycle state of the record; ignored for List and Create.
	State          lifecycle.State
	IncludeDeleted bool
}

// Decision is the answer to a Request.
type Decision struct {
	Outcome Outcome
	// Tenant is the scope filter for List (nil means unfiltered) and the tenant
	// to persist for Create.
	Tenant *int64
	// Err explains any outcome other than Allow.
	Err error
}

// Allowed reports whether the caller may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// scopedGrants is the decision table for tenant-scoped roles. SystemAdmin is
// not listed because it is granted everything.
var scopedGrants = map[Kind]map[Action][]Role{
	KindProduct: {
		ActionList:    {RoleStaff, RoleOwner},
		ActionRead:    {RoleStaff, RoleOwner},
		ActionCreate:  {RoleStaff, RoleOwner},
		ActionUpdate:  {RoleStaff, RoleOwner},
		ActionDelete:  {RoleOwner},
		ActionRestore: {RoleOwner},
	},
	KindStore: {
		ActionRead:    {RoleStaff, RoleOwner},
		ActionUpdate:  {RoleOwner},
		ActionDelete:  {RoleOwner},
		ActionRestore: {RoleOwner},
	},
}

func granted(kind Kind, action Action, role Role) bool {
	for _, r := range scopedGrants[kind][action] {
		if r == role {
			return true
		}
	}
	return false
}

// Engine evaluates requests against the role/tenant rules. It holds only
// configuration and is safe for concurrent use.
type Engine struct {
	adminListScope AdminListScope
}

// NewEngine creates an Engine. An empty scope defaults to AdminListOptIn.
func NewEngine(adminListScope AdminListScope) *Engine {
	if adminListScope == "" {
		adminListScope = AdminListOptIn
	}
	return &Engine{adminListScope: adminListScope}
}

// Decide answers req. It performs no I/O.
func (e *Engine) Decide(req Request) Decision {
	switch req.Principal.Role() {
	case RoleSystemAdmin:
		return e.decideAdmin(req)
	case RoleOwner, RoleStaff:
		return e.decideScoped(req)
	default:
		return deny(inverrors.ErrMalformedPrincipal, "unknown role %s", req.Principal.Role())
	}
}

func (e *Engine) decideAdmin(req Request) Decision {
	switch req.Action {
	case ActionList:
		if e.adminListScope == AdminListOptIn && req.TenantID != nil {
			return allowScoped(*req.TenantID)
		}
		return Decision{Outcome: OutcomeAllow}
	case ActionCreate:
		// admin-submitted tenants pass through; existence is checked by persistence
		if req.TenantID != nil {
			return allowScoped(*req.TenantID)
		}
		return Decision{Outcome: OutcomeAllow}
	case ActionRead:
		if req.State == lifecycle.StateDeleted && !req.IncludeDeleted {
			return notFound(req.Kind)
		}
	}
	return Decision{Outcome: OutcomeAllow}
}

func (e *Engine) decideScoped(req Request) Decision {
	p := req.Principal
	tenant, ok := p.TenantID()
	if !ok {
		return deny(inverrors.ErrMalformedPrincipal, "role %s requires a store", p.Role())
	}
	if !granted(req.Kind, req.Action, p.Role()) {
		return deny(inverrors.ErrAuthzDenied, "role %s may not %s %s records", p.Role(), req.Action, req.Kind)
	}
	if req.IncludeDeleted {
		return deny(inverrors.ErrAuthzDenied, "role %s may not view deleted %s records", p.Role(), req.Kind)
	}

	switch req.Action {
	case ActionCreate:
		// the payload tenant is overridden, never trusted
		return allowScoped(tenant)
	case ActionList:
		if req.TenantID != nil && *req.TenantID != tenant {
			return deny(inverrors.ErrAuthzDenied, "store %d is outside the caller's store", *req.TenantID)
		}
		return allowScoped(tenant)
	}

	if req.TenantID == nil || *req.TenantID != tenant {
		return deny(inverrors.ErrAuthzDenied, "%s belongs to another store", req.Kind)
	}

	deleted := req.State == lifecycle.StateDeleted
	switch req.Action {
	case ActionRead:
		if deleted {
			return notFound(req.Kind)
		}
	case ActionUpdate:
		if req.MoveToTenantID != nil && *req.MoveToTenantID != tenant {
			return deny(inverrors.ErrAuthzDenied, "only a system admin may move a %s to another store", req.Kind)
		}
		if deleted {
			return conflict("cannot update a deleted %s", req.Kind)
		}
	case ActionDelete:
		if deleted {
			return conflict("%s is already deleted", req.Kind)
		}
	case ActionRestore:
		if !deleted {
			return conflict("%s is not deleted", req.Kind)
		}
	}
	return Decision{Outcome: OutcomeAllow}
}

func allowScoped(tenant int64) Decision {
	return Decision{Outcome: OutcomeAllow, Tenant: &tenant}
}

func deny(reason error, format string, args ...any) Decision {
	return Decision{
		Outcome: OutcomeDeny,
		Err:     fmt.Errorf("%w: %s", reason, fmt.Sprintf(format, args...)),
	}
}

func conflict(format string, args ...any) Decision {
	return Decision{
		Outcome: OutcomeStateConflict,
		Err:     fmt.Errorf("%w: %s", inverrors.ErrStateConflict, fmt.Sprintf(format, args...)),
	}
}

func notFound(kind Kind) Decision {
	err := inverrors.ErrProductNotFound
	if kind == KindStore {
		err = inverrors.ErrStoreNotFound
	}
	return Decision{Outcome: OutcomeNotFound, Err: err}
}
