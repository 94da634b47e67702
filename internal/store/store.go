// Package store persists products, stores and users.
// Records are never removed: a soft delete is a lifecycle update like any other.
package store

import (
	"context"
	"time"

	"github.com/abgdnv/retailinventory/internal/lifecycle"
)

// Product is a stock line owned by exactly one store (its tenant).
type Product struct {
	ID        int64
	Name      string
	Quantity  int32
	Price     int64 // Price in cents
	StoreID   int64
	Lifecycle lifecycle.Record
	Version   int32
	CreatedAt time.Time
}

// Store is a tenant. Its own id is its tenant id.
type Store struct {
	ID        int64
	Name      string
	Address   *string
	Lifecycle lifecycle.Record
	Version   int32
	CreatedAt time.Time
}

// User is a login identity. Role holds the role name, StoreID is nil for a SystemAdmin.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	StoreID      *int64
}

// ListFilter narrows a listing. A nil StoreID means every store.
type ListFilter struct {
	StoreID        *int64
	IncludeDeleted bool
	Offset         int32
	Limit          int32
}

type ProductParams struct {
	Name     string
	Quantity int32
	Price    int64
	StoreID  int64
}

type StoreParams struct {
	Name    string
	Address *string
}

// ProductStore is an interface for product storage operations.
type ProductStore interface {
	// FindByID returns the product in whatever lifecycle state it is.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*Product, error)

	// FindAll returns products matching the filter ordered by id.
	FindAll(ctx context.Context, filter ListFilter) ([]Product, error)

	// Create adds an Active product.
	// Returns ErrStoreUnavailable if the store does not exist.
	Create(ctx context.Context, params ProductParams) (*Product, error)

	// Update replaces the product content if version still matches.
	// Returns ErrOptimisticLock on a version mismatch.
	Update(ctx context.Context, id int64, params ProductParams, version int32) (*Product, error)

	// SetLifecycle persists a lifecycle transition if version still matches.
	SetLifecycle(ctx context.Context, id int64, rec lifecycle.Record, version int32) (*Product, error)
}

// StoreStore is an interface for store (tenant) storage operations.
type StoreStore interface {
	FindByID(ctx context.Context, id int64) (*Store, error)
	FindAll(ctx context.Context, filter ListFilter) ([]Store, error)
	Create(ctx context.Context, params StoreParams) (*Store, error)
	Update(ctx context.Context, id int64, params StoreParams, version int32) (*Store, error)
	SetLifecycle(ctx context.Context, id int64, rec lifecycle.Record, version int32) (*Store, error)
}

// UserStore is an interface for login identities.
type UserStore interface {
	// FindByUsername returns ErrUserNotFound if no user has the given name.
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, user User) (*User, error)
}
