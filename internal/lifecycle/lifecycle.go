// Package lifecycle implements the soft-delete state machine shared by products and stores.
// A record is never physically removed: delete and restore are transitions between
// Active and Deleted that stamp the acting identity and time.
package lifecycle

import (
	"fmt"
	"time"

	inverrors "github.com/abgdnv/retailinventory/internal/errors"
)

// State is the lifecycle state of a record.
type State int8

const (
	StateActive State = iota
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("state(%d)", int8(s))
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	switch s {
	case "active":
		return StateActive, nil
	case "deleted":
		return StateDeleted, nil
	default:
		return 0, fmt.Errorf("unknown lifecycle state %q", s)
	}
}

// Audit holds the stamps written by the transitions. All fields are optional.
type Audit struct {
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
	DeletedBy  *string    `json:"deletedBy,omitempty"`
	RestoredAt *time.Time `json:"restoredAt,omitempty"`
	RestoredBy *string    `json:"restoredBy,omitempty"`
}

// Record is the lifecycle part of a persisted entity.
type Record struct {
	State State
	Audit Audit
}

// IsDeleted reports whether the record is soft-deleted.
func (r Record) IsDeleted() bool {
	return r.State == StateDeleted
}

// Delete moves an Active record to Deleted and stamps deletedAt/deletedBy.
// Stamps of an earlier restore are kept.
func (r Record) Delete(actor string, at time.Time) (Record, error) {
	if r.State != StateActive {
		return r, fmt.Errorf("%w: cannot delete a record that is %s", inverrors.ErrStateConflict, r.State)
	}
	next := r
	next.State = StateDeleted
	next.Audit.DeletedAt = &at
	next.Audit.DeletedBy = &actor
	return next, nil
}

// Restore moves a Deleted record back to Active and stamps restoredAt/restoredBy.
// The delete stamps are kept so the record shows the whole last cycle.
func (r Record) Restore(actor string, at time.Time) (Record, error) {
	if r.State != StateDeleted {
		return r, fmt.Errorf("%w: cannot restore a record that is %s", inverrors.ErrStateConflict, r.State)
	}
	next := r
	next.State = StateActive
	next.Audit.RestoredAt = &at
	next.Audit.RestoredBy = &actor
	return next, nil
}

// GuardUpdate rejects content mutation of a Deleted record.
func GuardUpdate(state State) error {
	if state == StateDeleted {
		return fmt.Errorf("%w: cannot update a deleted record", inverrors.ErrStateConflict)
	}
	return nil
}

// Visible reports whether a record in the given state appears in reads.
// Deleted records are hidden unless explicitly requested.
func Visible(state State, includeDeleted bool) bool {
	return state == StateActive || includeDeleted
}
