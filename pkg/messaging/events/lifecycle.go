package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/abgdnv/retailinventory/pkg/messaging"
	"github.com/google/uuid"
)

// Transition names carried by LifecycleEvent.
const (
	TransitionDeleted  = "deleted"
	TransitionRestored = "restored"
)

// Record kinds carried by LifecycleEvent.
const (
	KindProduct = "product"
	KindStore   = "store"
)

// LifecycleEvent records one soft-delete or restore transition with its audit stamp.
type LifecycleEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Kind       string    `json:"kind"`
	RecordID   int64     `json:"record_id"`
	StoreID    int64     `json:"store_id"`
	Transition string    `json:"transition"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewLifecycleEvent creates an event with a fresh id.
func NewLifecycleEvent(kind string, recordID, storeID int64, transition, actor string, at time.Time) LifecycleEvent {
	return LifecycleEvent{
		EventID:    uuid.New(),
		Kind:       kind,
		RecordID:   recordID,
		StoreID:    storeID,
		Transition: transition,
		Actor:      actor,
		OccurredAt: at,
	}
}

func (e LifecycleEvent) Subject() string {
	switch {
	case e.Kind == KindStore && e.Transition == TransitionRestored:
		return messaging.StoresRestoredSubject
	case e.Kind == KindStore:
		return messaging.StoresDeletedSubject
	case e.Transition == TransitionRestored:
		return messaging.ProductsRestoredSubject
	default:
		return messaging.ProductsDeletedSubject
	}
}

func (e LifecycleEvent) Payload() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lifecycle event: %w", err)
	}
	return data, nil
}

// MessageID lets the broker drop re-published duplicates.
func (e LifecycleEvent) MessageID() string {
	return e.EventID.String()
}
