package models

import "time"

// Event types
const (
	EventTypeProductAdded   = "PRODUCT_ADDED"
	EventTypeProductDeleted = "PRODUCT_DELETED"
	EventTypeBatchAdded     = "BATCH_ADDED"
	EventTypeBatchDeleted   = "BATCH_DELETED"
	EventTypeDatasetSeeded  = "DATASET_SEEDED"
	EventTypeDatasetReset   = "DATASET_RESET"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// InventoryEvent is published after every applied mutation
type InventoryEvent struct {
	BaseEvent
	EntityID string   `json:"entity_id,omitempty"`
	Product  *Product `json:"product,omitempty"`
	Batch    *Batch   `json:"batch,omitempty"`
	Products int      `json:"products,omitempty"`
	Batches  int      `json:"batches,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// Key returns the partition key of the event
func (e *InventoryEvent) Key() string {
	switch {
	case e.Batch != nil:
		return "batch-" + e.Batch.ID
	case e.Product != nil:
		return "product-" + e.Product.ID
	case e.EntityID != "":
		return e.EntityID
	default:
		return "dataset"
	}
}
