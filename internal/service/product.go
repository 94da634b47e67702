package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/retailinventory/internal/authz"
	inverrors "github.com/abgdnv/retailinventory/internal/errors"
	"github.com/abgdnv/retailinventory/internal/lifecycle"
	"github.com/abgdnv/retailinventory/internal/metrics"
	"github.com/abgdnv/retailinventory/internal/store"
	"github.com/abgdnv/retailinventory/pkg/messaging"
	"github.com/abgdnv/retailinventory/pkg/messaging/events"
)

// ProductService defines the methods for managing products on behalf of a principal.
type ProductService interface {
	// List returns the products visible to p, scoped to p's store unless p is a SystemAdmin.
	List(ctx context.Context, p authz.Principal, q ListQuery) ([]ProductDto, error)

	// Get returns ErrProductNotFound for a missing product and for a deleted one
	// unless includeDeleted is set by a SystemAdmin.
	Get(ctx context.Context, p authz.Principal, id int64, includeDeleted bool) (*ProductDto, error)

	// Create adds an Active product in p's store, or in dto.StoreID for a SystemAdmin.
	Create(ctx context.Context, p authz.Principal, dto ProductCreateDto) (*ProductDto, error)

	// Update replaces the content of an Active product.
	// Returns ErrOptimisticLock if dto.Version is stale.
	Update(ctx context.Context, p authz.Principal, dto ProductUpdateDto) (*ProductDto, error)

	// Delete soft-deletes a product, stamping p as the actor.
	Delete(ctx context.Context, p authz.Principal, id int64) error

	// Restore brings a deleted product back, stamping p as the actor.
	Restore(ctx context.Context, p authz.Principal, id int64) (*ProductDto, error)
}

// Products implements ProductService.
type Products struct {
	guard
	products store.ProductStore
	stores   store.StoreStore
	now      func() time.Time
}

// NewProductService creates a new instance of ProductService.
func NewProductService(products store.ProductStore, stores store.StoreStore, engine *authz.Engine,
	publisher messaging.Publisher, m *metrics.Metrics, logger *slog.Logger) *Products {
	return &Products{
		guard:    newGuard(engine, publisher, m, logger),
		products: products,
		stores:   stores,
		now:      time.Now,
	}
}

func (s *Products) List(ctx context.Context, p authz.Principal, q ListQuery) ([]ProductDto, error) {
	d, err := s.decide(ctx, authz.Request{
		Principal:      p,
		Action:         authz.ActionList,
		Kind:           authz.KindProduct,
		TenantID:       q.StoreID,
		IncludeDeleted: q.IncludeDeleted,
	})
	if err != nil {
		return nil, err
	}

	products, err := s.products.FindAll(ctx, q.filter(d.Tenant))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toProductDto(&products[i])
	}
	return dtos, nil
}

func (s *Products) Get(ctx context.Context, p authz.Principal, id int64, includeDeleted bool) (*ProductDto, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %d: %w", id, err)
	}
	if _, err := s.decide(ctx, s.request(p, authz.ActionRead, product, includeDeleted)); err != nil {
		return nil, err
	}
	return toProductDto(product), nil
}

func (s *Products) Create(ctx context.Context, p authz.Principal, dto ProductCreateDto) (*ProductDto, error) {
	d, err := s.decide(ctx, authz.Request{
		Principal: p,
		Action:    authz.ActionCreate,
		Kind:      authz.KindProduct,
		TenantID:  dto.StoreID,
	})
	if err != nil {
		return nil, err
	}
	if d.Tenant == nil {
		return nil, fmt.Errorf("%w: storeId is required", inverrors.ErrStoreUnavailable)
	}
	if err := s.requireActiveStore(ctx, *d.Tenant); err != nil {
		return nil, err
	}

	created, err := s.products.Create(ctx, store.ProductParams{
		Name:     dto.Name,
		Quantity: *dto.Quantity,
		Price:    *dto.Price,
		StoreID:  *d.Tenant,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return toProductDto(created), nil
}

func (s *Products) Update(ctx context.Context, p authz.Principal, dto ProductUpdateDto) (*ProductDto, error) {
	existing, err := s.products.FindByID(ctx, dto.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %d: %w", dto.ID, err)
	}
	req := s.request(p, authz.ActionUpdate, existing, false)
	req.MoveToTenantID = dto.StoreID
	if _, err := s.decide(ctx, req); err != nil {
		return nil, err
	}
	if err := lifecycle.GuardUpdate(existing.Lifecycle.State); err != nil {
		return nil, err
	}

	// the target store, moved or not, must be active
	storeID := existing.StoreID
	if dto.StoreID != nil {
		storeID = *dto.StoreID
	}
	if err := s.requireActiveStore(ctx, storeID); err != nil {
		return nil, err
	}

	updated, err := s.products.Update(ctx, dto.ID, store.ProductParams{
		Name:     dto.Name,
		Quantity: *dto.Quantity,
		Price:    *dto.Price,
		StoreID:  storeID,
	}, dto.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %d: %w", dto.ID, err)
	}
	return toProductDto(updated), nil
}

func (s *Products) Delete(ctx context.Context, p authz.Principal, id int64) error {
	_, err := s.transition(ctx, p, id, authz.ActionDelete)
	return err
}

func (s *Products) Restore(ctx context.Context, p authz.Principal, id int64) (*ProductDto, error) {
	restored, err := s.transition(ctx, p, id, authz.ActionRestore)
	if err != nil {
		return nil, err
	}
	return toProductDto(restored), nil
}

// transition applies a delete or restore after the engine allowed it, then publishes the audit event.
func (s *Products) transition(ctx context.Context, p authz.Principal, id int64, action authz.Action) (*store.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %d: %w", id, err)
	}
	if _, err := s.decide(ctx, s.request(p, action, product, false)); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	var next lifecycle.Record
	transition := events.TransitionDeleted
	if action == authz.ActionRestore {
		transition = events.TransitionRestored
		next, err = product.Lifecycle.Restore(p.Actor(), at)
	} else {
		next, err = product.Lifecycle.Delete(p.Actor(), at)
	}
	if err != nil {
		return nil, err
	}

	saved, err := s.products.SetLifecycle(ctx, id, next, product.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to %s product with ID %d: %w", action, id, err)
	}
	s.metrics.Transition(events.KindProduct, transition)
	s.logger.InfoContext(ctx, "product "+transition, "product_id", id, "store_id", saved.StoreID, "actor", p.Actor())
	s.publish(ctx, events.NewLifecycleEvent(events.KindProduct, id, saved.StoreID, transition, p.Actor(), at))
	return saved, nil
}

func (s *Products) request(p authz.Principal, action authz.Action, product *store.Product, includeDeleted bool) authz.Request {
	return authz.Request{
		Principal:      p,
		Action:         action,
		Kind:           authz.KindProduct,
		TenantID:       &product.StoreID,
		State:          product.Lifecycle.State,
		IncludeDeleted: includeDeleted,
	}
}

// requireActiveStore rejects products placed in a missing or deleted store.
func (s *Products) requireActiveStore(ctx context.Context, storeID int64) error {
	st, err := s.stores.FindByID(ctx, storeID)
	if errors.Is(err, inverrors.ErrStoreNotFound) {
		return fmt.Errorf("%w: store %d", inverrors.ErrStoreUnavailable, storeID)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch store by ID %d: %w", storeID, err)
	}
	if st.Lifecycle.IsDeleted() {
		return fmt.Errorf("%w: store %d is deleted", inverrors.ErrStoreUnavailable, storeID)
	}
	return nil
}
