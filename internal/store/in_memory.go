package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	inverrors "github.com/abgdnv/retailinventory/internal/errors"
	"github.com/abgdnv/retailinventory/internal/lifecycle"
)

// InMemory implements ProductStore, StoreStore and UserStore using maps guarded by one mutex.
// It enforces the same foreign keys and version checks as the PostgreSQL schema.
type InMemory struct {
	mu       sync.RWMutex
	products map[int64]Product
	stores   map[int64]Store
	users    map[string]User
	nextID   map[string]int64
	now      func() time.Time
}

// NewInMemoryStore creates an empty InMemory store.
func NewInMemoryStore() *InMemory {
	return &InMemory{
		products: make(map[int64]Product),
		stores:   make(map[int64]Store),
		users:    make(map[string]User),
		nextID:   make(map[string]int64),
		now:      time.Now,
	}
}

func (s *InMemory) Products() *MemProducts { return &MemProducts{s} }
func (s *InMemory) Stores() *MemStores     { return &MemStores{s} }
func (s *InMemory) Users() *MemUsers       { return &MemUsers{s} }

func (s *InMemory) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func page[T any](items []T, f ListFilter) []T {
	if int(f.Offset) >= len(items) {
		return []T{}
	}
	items = items[f.Offset:]
	if f.Limit > 0 && int(f.Limit) < len(items) {
		items = items[:f.Limit]
	}
	return items
}

// MemProducts is the ProductStore view of InMemory.
type MemProducts struct{ *InMemory }

func (s *MemProducts) FindByID(_ context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, inverrors.ErrProductNotFound
	}
	return &p, nil
}

func (s *MemProducts) FindAll(_ context.Context, f ListFilter) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if f.StoreID != nil && p.StoreID != *f.StoreID {
			continue
		}
		if !lifecycle.Visible(p.Lifecycle.State, f.IncludeDeleted) {
			continue
		}
		list = append(list, p)
	}
	slices.SortFunc(list, func(a, b Product) int { return cmp.Compare(a.ID, b.ID) })
	return page(list, f), nil
}

func (s *MemProducts) Create(_ context.Context, params ProductParams) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[params.StoreID]; !ok {
		return nil, inverrors.ErrStoreUnavailable
	}
	p := Product{
		ID:        s.id("products"),
		Name:      params.Name,
		Quantity:  params.Quantity,
		Price:     params.Price,
		StoreID:   params.StoreID,
		Version:   1,
		CreatedAt: s.now(),
	}
	s.products[p.ID] = p
	return &p, nil
}

func (s *MemProducts) Update(_ context.Context, id int64, params ProductParams, version int32) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, inverrors.ErrProductNotFound
	}
	if p.Version != version {
		return nil, inverrors.ErrOptimisticLock
	}
	if _, ok := s.stores[params.StoreID]; !ok {
		return nil, inverrors.ErrStoreUnavailable
	}
	p.Name, p.Quantity, p.Price, p.StoreID = params.Name, params.Quantity, params.Price, params.StoreID
	p.Version++
	s.products[id] = p
	return &p, nil
}

func (s *MemProducts) SetLifecycle(_ context.Context, id int64, rec lifecycle.Record, version int32) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, inverrors.ErrProductNotFound
	}
	if p.Version != version {
		return nil, inverrors.ErrOptimisticLock
	}
	p.Lifecycle = rec
	p.Version++
	s.products[id] = p
	return &p, nil
}

// MemStores is the StoreStore view of InMemory.
type MemStores struct{ *InMemory }

func (s *MemStores) FindByID(_ context.Context, id int64) (*Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stores[id]
	if !ok {
		return nil, inverrors.ErrStoreNotFound
	}
	return &st, nil
}

func (s *MemStores) FindAll(_ context.Context, f ListFilter) ([]Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Store, 0, len(s.stores))
	for _, st := range s.stores {
		if f.StoreID != nil && st.ID != *f.StoreID {
			continue
		}
		if !lifecycle.Visible(st.Lifecycle.State, f.IncludeDeleted) {
			continue
		}
		list = append(list, st)
	}
	slices.SortFunc(list, func(a, b Store) int { return cmp.Compare(a.ID, b.ID) })
	return page(list, f), nil
}

func (s *MemStores) Create(_ context.Context, params StoreParams) (*Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Store{
		ID:        s.id("stores"),
		Name:      params.Name,
		Address:   params.Address,
		Version:   1,
		CreatedAt: s.now(),
	}
	s.stores[st.ID] = st
	return &st, nil
}

func (s *MemStores) Update(_ context.Context, id int64, params StoreParams, version int32) (*Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stores[id]
	if !ok {
		return nil, inverrors.ErrStoreNotFound
	}
	if st.Version != version {
		return nil, inverrors.ErrOptimisticLock
	}
	st.Name, st.Address = params.Name, params.Address
	st.Version++
	s.stores[id] = st
	return &st, nil
}

func (s *MemStores) SetLifecycle(_ context.Context, id int64, rec lifecycle.Record, version int32) (*Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stores[id]
	if !ok {
		return nil, inverrors.ErrStoreNotFound
	}
	if st.Version != version {
		return nil, inverrors.ErrOptimisticLock
	}
	st.Lifecycle = rec
	st.Version++
	s.stores[id] = st
	return &st, nil
}

// MemUsers is the UserStore view of InMemory.
type MemUsers struct{ *InMemory }

func (s *MemUsers) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, inverrors.ErrUserNotFound
	}
	return &u, nil
}

func (s *MemUsers) Create(_ context.Context, user User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.users[user.Username]; taken {
		return nil, fmt.Errorf("username %q already exists", user.Username)
	}
	if user.StoreID != nil {
		if _, ok := s.stores[*user.StoreID]; !ok {
			return nil, inverrors.ErrStoreNotFound
		}
	}
	user.ID = s.id("users")
	s.users[user.Username] = user
	return &user, nil
}
