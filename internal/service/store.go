package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/retailinventory/internal/authz"
	"github.com/abgdnv/retailinventory/internal/lifecycle"
	"github.com/abgdnv/retailinventory/internal/metrics"
	"github.com/abgdnv/retailinventory/internal/store"
	"github.com/abgdnv/retailinventory/pkg/messaging"
	"github.com/abgdnv/retailinventory/pkg/messaging/events"
)

// StoreService manages stores (tenants). Listing and creation are reserved to a SystemAdmin.
type StoreService interface {
	List(ctx context.Context, p authz.Principal, q ListQuery) ([]StoreDto, error)
	Get(ctx context.Context, p authz.Principal, id int64, includeDeleted bool) (*StoreDto, error)
	Create(ctx context.Context, p authz.Principal, dto StoreCreateDto) (*StoreDto, error)
	Update(ctx context.Context, p authz.Principal, dto StoreUpdateDto) (*StoreDto, error)
	// Delete soft-deletes the store only; its products keep their own state.
	Delete(ctx context.Context, p authz.Principal, id int64) error
	Restore(ctx context.Context, p authz.Principal, id int64) (*StoreDto, error)
}

// Stores implements StoreService.
type Stores struct {
	guard
	stores store.StoreStore
	now    func() time.Time
}

// NewStoreService creates a new instance of StoreService.
func NewStoreService(stores store.StoreStore, engine *authz.Engine, publisher messaging.Publisher,
	m *metrics.Metrics, logger *slog.Logger) *Stores {
	return &Stores{
		guard:  newGuard(engine, publisher, m, logger),
		stores: stores,
		now:    time.Now,
	}
}

func (s *Stores) List(ctx context.Context, p authz.Principal, q ListQuery) ([]StoreDto, error) {
	d, err := s.decide(ctx, authz.Request{
		Principal:      p,
		Action:         authz.ActionList,
		Kind:           authz.KindStore,
		TenantID:       q.StoreID,
		IncludeDeleted: q.IncludeDeleted,
	})
	if err != nil {
		return nil, err
	}

	stores, err := s.stores.FindAll(ctx, q.filter(d.Tenant))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stores: %w", err)
	}
	dtos := make([]StoreDto, len(stores))
	for i := range stores {
		dtos[i] = *toStoreDto(&stores[i])
	}
	return dtos, nil
}

func (s *Stores) Get(ctx context.Context, p authz.Principal, id int64, includeDeleted bool) (*StoreDto, error) {
	st, err := s.stores.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store by ID %d: %w", id, err)
	}
	if _, err := s.decide(ctx, s.request(p, authz.ActionRead, st, includeDeleted)); err != nil {
		return nil, err
	}
	return toStoreDto(st), nil
}

func (s *Stores) Create(ctx context.Context, p authz.Principal, dto StoreCreateDto) (*StoreDto, error) {
	if _, err := s.decide(ctx, authz.Request{Principal: p, Action: authz.ActionCreate, Kind: authz.KindStore}); err != nil {
		return nil, err
	}
	created, err := s.stores.Create(ctx, store.StoreParams{Name: dto.Name, Address: dto.Address})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return toStoreDto(created), nil
}

func (s *Stores) Update(ctx context.Context, p authz.Principal, dto StoreUpdateDto) (*StoreDto, error) {
	existing, err := s.stores.FindByID(ctx, dto.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store by ID %d: %w", dto.ID, err)
	}
	if _, err := s.decide(ctx, s.request(p, authz.ActionUpdate, existing, false)); err != nil {
		return nil, err
	}
	if err := lifecycle.GuardUpdate(existing.Lifecycle.State); err != nil {
		return nil, err
	}
	updated, err := s.stores.Update(ctx, dto.ID, store.StoreParams{Name: dto.Name, Address: dto.Address}, dto.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update store with ID %d: %w", dto.ID, err)
	}
	return toStoreDto(updated), nil
}

func (s *Stores) Delete(ctx context.Context, p authz.Principal, id int64) error {
	_, err := s.transition(ctx, p, id, authz.ActionDelete)
	return err
}

func (s *Stores) Restore(ctx context.Context, p authz.Principal, id int64) (*StoreDto, error) {
	restored, err := s.transition(ctx, p, id, authz.ActionRestore)
	if err != nil {
		return nil, err
	}
	return toStoreDto(restored), nil
}

func (s *Stores) transition(ctx context.Context, p authz.Principal, id int64, action authz.Action) (*store.Store, error) {
	st, err := s.stores.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store by ID %d: %w", id, err)
	}
	if _, err := s.decide(ctx, s.request(p, action, st, false)); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	var next lifecycle.Record
	transition := events.TransitionDeleted
	if action == authz.ActionRestore {
		transition = events.TransitionRestored
		next, err = st.Lifecycle.Restore(p.Actor(), at)
	} else {
		next, err = st.Lifecycle.Delete(p.Actor(), at)
	}
	if err != nil {
		return nil, err
	}

	saved, err := s.stores.SetLifecycle(ctx, id, next, st.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to %s store with ID %d: %w", action, id, err)
	}
	s.metrics.Transition(events.KindStore, transition)
	s.logger.InfoContext(ctx, "store "+transition, "store_id", id, "actor", p.Actor())
	s.publish(ctx, events.NewLifecycleEvent(events.KindStore, id, id, transition, p.Actor(), at))
	return saved, nil
}

func (s *Stores) request(p authz.Principal, action authz.Action, st *store.Store, includeDeleted bool) authz.Request {
	return authz.Request{
		Principal:      p,
		Action:         action,
		Kind:           authz.KindStore,
		TenantID:       &st.ID,
		State:          st.Lifecycle.State,
		IncludeDeleted: includeDeleted,
	}
}
