package store

import (
	"context"
	"errors"
	"fmt"

	inverrors "github.com/abgdnv/retailinventory/internal/errors"
	"github.com/abgdnv/retailinventory/internal/lifecycle"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgForeignKeyViolation = "23503"

// PgStore implements ProductStore, StoreStore and UserStore on PostgreSQL.
// The three views share one pool.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of PgStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func (p *PgStore) Products() *PgProducts { return &PgProducts{p} }
func (p *PgStore) Stores() *PgStores     { return &PgStores{p} }
func (p *PgStore) Users() *PgUsers       { return &PgUsers{p} }

// withTransaction runs fn in a transaction and rolls back if fn fails.
func (p *PgStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("failed to roll back transaction: %w (cause: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// versionedUpdate runs an UPDATE ... WHERE id AND version RETURNING statement. When nothing
// matched it tells a missing row (notFound) from a lost race (ErrOptimisticLock).
func versionedUpdate[T any](ctx context.Context, p *PgStore, table string, notFound error,
	scan func(pgx.Row) (T, error), sql string, id int64, args ...any) (*T, error) {
	var out T
	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scan(tx.QueryRow(ctx, sql, append([]any{id}, args...)...))
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to update %s: %w", table, err)
		}
		// Check if the row exists, or it's an optimistic lock error.
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check %s existence: %w", table, err)
		}
		if !exists {
			return notFound
		}
		return inverrors.ErrOptimisticLock
	})
	if txErr != nil {
		return nil, txErr
	}
	return &out, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func lifecycleArgs(rec lifecycle.Record) []any {
	return []any{rec.State.String(), rec.Audit.DeletedAt, rec.Audit.DeletedBy, rec.Audit.RestoredAt, rec.Audit.RestoredBy}
}

// PgProducts is the ProductStore view of PgStore.
type PgProducts struct{ *PgStore }

const productColumns = `id, name, quantity, price, store_id, state, deleted_at, deleted_by, restored_at, restored_by, version, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var state string
	err := row.Scan(&p.ID, &p.Name, &p.Quantity, &p.Price, &p.StoreID, &state,
		&p.Lifecycle.Audit.DeletedAt, &p.Lifecycle.Audit.DeletedBy,
		&p.Lifecycle.Audit.RestoredAt, &p.Lifecycle.Audit.RestoredBy,
		&p.Version, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.Lifecycle.State, err = lifecycle.ParseState(state)
	return p, err
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgProducts) FindByID(ctx context.Context, id int64) (*Product, error) {
	product, err := scanProduct(p.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inverrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return &product, nil
}

// FindAll retrieves products with pagination support.
// It returns a slice of products, which may be empty if no products exist.
func (p *PgProducts) FindAll(ctx context.Context, f ListFilter) ([]Product, error) {
	rows, err := p.db.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE ($1::BIGINT IS NULL OR store_id = $1) AND ($2 OR state = 'active')
		ORDER BY id LIMIT $3 OFFSET $4`, f.StoreID, f.IncludeDeleted, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return products, nil
}

func (p *PgProducts) Create(ctx context.Context, params ProductParams) (*Product, error) {
	product, err := scanProduct(p.db.QueryRow(ctx, `INSERT INTO products (name, quantity, price, store_id)
		VALUES ($1, $2, $3, $4) RETURNING `+productColumns,
		params.Name, params.Quantity, params.Price, params.StoreID))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, inverrors.ErrStoreUnavailable
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

func (p *PgProducts) Update(ctx context.Context, id int64, params ProductParams, version int32) (*Product, error) {
	product, err := versionedUpdate(ctx, p.PgStore, "products", inverrors.ErrProductNotFound, scanProduct,
		`UPDATE products SET name = $2, quantity = $3, price = $4, store_id = $5, version = version + 1
		WHERE id = $1 AND version = $6 RETURNING `+productColumns,
		id, params.Name, params.Quantity, params.Price, params.StoreID, version)
	if err != nil && isForeignKeyViolation(err) {
		return nil, inverrors.ErrStoreUnavailable
	}
	return product, err
}

func (p *PgProducts) SetLifecycle(ctx context.Context, id int64, rec lifecycle.Record, version int32) (*Product, error) {
	args := append(lifecycleArgs(rec), version)
	return versionedUpdate(ctx, p.PgStore, "products", inverrors.ErrProductNotFound, scanProduct,
		`UPDATE products SET state = $2, deleted_at = $3, deleted_by = $4, restored_at = $5, restored_by = $6,
		version = version + 1 WHERE id = $1 AND version = $7 RETURNING `+productColumns,
		id, args...)
}

// PgStores is the StoreStore view of PgStore.
type PgStores struct{ *PgStore }

const storeColumns = `id, name, address, state, deleted_at, deleted_by, restored_at, restored_by, version, created_at`

func scanStore(row pgx.Row) (Store, error) {
	var s Store
	var state string
	err := row.Scan(&s.ID, &s.Name, &s.Address, &state,
		&s.Lifecycle.Audit.DeletedAt, &s.Lifecycle.Audit.DeletedBy,
		&s.Lifecycle.Audit.RestoredAt, &s.Lifecycle.Audit.RestoredBy,
		&s.Version, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	s.Lifecycle.State, err = lifecycle.ParseState(state)
	return s, err
}

func (p *PgStores) FindByID(ctx context.Context, id int64) (*Store, error) {
	s, err := scanStore(p.db.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inverrors.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to find store by ID: %w", err)
	}
	return &s, nil
}

func (p *PgStores) FindAll(ctx context.Context, f ListFilter) ([]Store, error) {
	rows, err := p.db.Query(ctx, `SELECT `+storeColumns+` FROM stores
		WHERE ($1::BIGINT IS NULL OR id = $1) AND ($2 OR state = 'active')
		ORDER BY id LIMIT $3 OFFSET $4`, f.StoreID, f.IncludeDeleted, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find stores: %w", err)
	}
	stores, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Store, error) {
		return scanStore(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read stores: %w", err)
	}
	return stores, nil
}

func (p *PgStores) Create(ctx context.Context, params StoreParams) (*Store, error) {
	s, err := scanStore(p.db.QueryRow(ctx, `INSERT INTO stores (name, address) VALUES ($1, $2) RETURNING `+storeColumns,
		params.Name, params.Address))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return &s, nil
}

func (p *PgStores) Update(ctx context.Context, id int64, params StoreParams, version int32) (*Store, error) {
	return versionedUpdate(ctx, p.PgStore, "stores", inverrors.ErrStoreNotFound, scanStore,
		`UPDATE stores SET name = $2, address = $3, version = version + 1
		WHERE id = $1 AND version = $4 RETURNING `+storeColumns,
		id, params.Name, params.Address, version)
}

func (p *PgStores) SetLifecycle(ctx context.Context, id int64, rec lifecycle.Record, version int32) (*Store, error) {
	args := append(lifecycleArgs(rec), version)
	return versionedUpdate(ctx, p.PgStore, "stores", inverrors.ErrStoreNotFound, scanStore,
		`UPDATE stores SET state = $2, deleted_at = $3, deleted_by = $4, restored_at = $5, restored_by = $6,
		version = version + 1 WHERE id = $1 AND version = $7 RETURNING `+storeColumns,
		id, args...)
}

// PgUsers is the UserStore view of PgStore.
type PgUsers struct{ *PgStore }

func (p *PgUsers) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := p.db.QueryRow(ctx, `SELECT id, username, password_hash, role, store_id FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.StoreID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inverrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

func (p *PgUsers) Create(ctx context.Context, user User) (*User, error) {
	err := p.db.QueryRow(ctx, `INSERT INTO users (username, password_hash, role, store_id)
		VALUES ($1, $2, $3, $4) RETURNING id`, user.Username, user.PasswordHash, user.Role, user.StoreID).
		Scan(&user.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, inverrors.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}
