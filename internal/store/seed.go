package store

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// SeedData is the development data set: one store, its owner and staff, a system admin and three products.
type SeedData struct {
	Products ProductStore
	Stores   StoreStore
	Users    UserStore
	// Password is shared by every seeded account.
	Password string
}

// Seed inserts the development data set unless a store already exists.
func Seed(ctx context.Context, d SeedData, logger *slog.Logger) error {
	existing, err := d.Stores.FindAll(ctx, ListFilter{IncludeDeleted: true, Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to check for existing data: %w", err)
	}
	if len(existing) > 0 {
		logger.InfoContext(ctx, "Database already holds data, skipping seed")
		return nil
	}

	address := "1 Main Street"
	store, err := d.Stores.Create(ctx, StoreParams{Name: "Main Store", Address: &address})
	if err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(d.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}
	users := []User{
		{Username: "admin", Role: "SystemAdmin"},
		{Username: "owner", Role: "Owner", StoreID: &store.ID},
		{Username: "staff", Role: "Staff", StoreID: &store.ID},
	}
	for _, u := range users {
		u.PasswordHash = string(hash)
		if _, err := d.Users.Create(ctx, u); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Username, err)
		}
	}

	products := []ProductParams{
		{Name: "Sample Product A", Quantity: 10, Price: 14000, StoreID: store.ID},
		{Name: "Sample Product B", Quantity: 5, Price: 5500, StoreID: store.ID},
		{Name: "Sample Product C", Quantity: 20, Price: 20000, StoreID: store.ID},
	}
	for _, p := range products {
		if _, err := d.Products.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.Name, err)
		}
	}

	logger.InfoContext(ctx, "Seed data inserted", "store_id", store.ID, "users", len(users), "products", len(products))
	return nil
}
