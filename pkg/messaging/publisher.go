package messaging

import (
	"context"
)

// Subjects of the inventory lifecycle audit stream.
const (
	ProductsDeletedSubject  = "inventory.products.deleted"
	ProductsRestoredSubject = "inventory.products.restored"
	StoresDeletedSubject    = "inventory.stores.deleted"
	StoresRestoredSubject   = "inventory.stores.restored"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
