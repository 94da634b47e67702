package service

import (
	"time"

	"github.com/abgdnv/retailinventory/internal/lifecycle"
	"github.com/abgdnv/retailinventory/internal/store"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 1000
)

// ListQuery is a listing request. StoreID asks for one store only.
type ListQuery struct {
	StoreID        *int64
	IncludeDeleted bool
	Offset         int32
	Limit          int32
}

// ProductCreateDto represents the data transfer object for creating a new product.
// StoreID is honoured only for a SystemAdmin; everyone else creates in their own store.
type ProductCreateDto struct {
	Name     string `json:"name"     validate:"required,max=128"`
	Quantity *int32 `json:"quantity" validate:"required,min=0"`
	Price    *int64 `json:"price"    validate:"required,min=0"`
	StoreID  *int64 `json:"storeId"  validate:"omitempty,gt=0"`
}

// ProductUpdateDto replaces the content of a product. A nil StoreID keeps the current store.
type ProductUpdateDto struct {
	ID       int64  `json:"id"       validate:"required,gt=0"`
	Name     string `json:"name"     validate:"required,max=128"`
	Quantity *int32 `json:"quantity" validate:"required,min=0"`
	Price    *int64 `json:"price"    validate:"required,min=0"`
	StoreID  *int64 `json:"storeId"  validate:"omitempty,gt=0"`
	Version  int32  `json:"version"  validate:"required,min=1"`
}

// ProductDto represents the data transfer object for a product.
// Version is read-only and used for optimistic concurrency control.
type ProductDto struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int32  `json:"quantity"`
	Price    int64  `json:"price"`
	StoreID  int64  `json:"storeId"`
	State    string `json:"state"`
	lifecycle.Audit
	Version   int32     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

// StoreCreateDto represents the data transfer object for creating a new store.
type StoreCreateDto struct {
	Name    string  `json:"name"    validate:"required,max=128"`
	Address *string `json:"address" validate:"omitempty,max=256"`
}

// StoreUpdateDto replaces the name and address of an Active store.
type StoreUpdateDto struct {
	ID      int64   `json:"id"      validate:"required,gt=0"`
	Name    string  `json:"name"    validate:"required,max=128"`
	Address *string `json:"address" validate:"omitempty,max=256"`
	Version int32   `json:"version" validate:"required,min=1"`
}

// StoreDto represents the data transfer object for a store.
// Version is read-only and used for optimistic concurrency control.
type StoreDto struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
	State   string  `json:"state"`
	lifecycle.Audit
	Version   int32     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginDto carries the credentials submitted to the login endpoint.
type LoginDto struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginResultDto is the signed bearer credential returned by a successful login.
type LoginResultDto struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toProductDto(p *store.Product) *ProductDto {
	return &ProductDto{
		ID:        p.ID,
		Name:      p.Name,
		Quantity:  p.Quantity,
		Price:     p.Price,
		StoreID:   p.StoreID,
		State:     p.Lifecycle.State.String(),
		Audit:     p.Lifecycle.Audit,
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
	}
}

func toStoreDto(s *store.Store) *StoreDto {
	return &StoreDto{
		ID:        s.ID,
		Name:      s.Name,
		Address:   s.Address,
		State:     s.Lifecycle.State.String(),
		Audit:     s.Lifecycle.Audit,
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
	}
}

func (q ListQuery) filter(storeID *int64) store.ListFilter {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	limit = min(limit, MaxPageLimit)
	return store.ListFilter{
		StoreID:        storeID,
		IncludeDeleted: q.IncludeDeleted,
		Offset:         max(q.Offset, 0),
		Limit:          limit,
	}
}
