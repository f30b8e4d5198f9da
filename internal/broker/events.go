package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"retailsmart/internal/models"
	"retailsmart/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes inventory events keyed by the entity they describe
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishInventoryEvent publishes any inventory event
func (ep *EventPublisher) PublishInventoryEvent(ctx context.Context, event *models.InventoryEvent) error {
	return ep.producer.PublishEvent(ctx, event.Key(), event)
}

// InventoryEventFunc handles one decoded inventory event
type InventoryEventFunc func(context.Context, *models.InventoryEvent) error

// EventHandler routes incoming inventory events by type
type EventHandler struct {
	handlers map[string]InventoryEventFunc
	logger   *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{
		handlers: make(map[string]InventoryEventFunc),
		logger:   util.GetLogger(),
	}
}

// On registers handler for eventType, replacing any previous one
func (eh *EventHandler) On(eventType string, handler InventoryEventFunc) {
	eh.handlers[eventType] = handler
}

// OnBatchAdded registers a handler for BatchAdded events
func (eh *EventHandler) OnBatchAdded(handler InventoryEventFunc) {
	eh.On(models.EventTypeBatchAdded, handler)
}

// OnDatasetReset registers a handler for DatasetReset events
func (eh *EventHandler) OnDatasetReset(handler InventoryEventFunc) {
	eh.On(models.EventTypeDatasetReset, handler)
}

// OnDatasetSeeded registers a handler for DatasetSeeded events
func (eh *EventHandler) OnDatasetSeeded(handler InventoryEventFunc) {
	eh.On(models.EventTypeDatasetSeeded, handler)
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.InventoryEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal inventory event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", event.EventType),
		zap.String("id", event.EventID))

	handler, ok := eh.handlers[event.EventType]
	if !ok {
		eh.logger.Debug("Unhandled event type", zap.String("type", event.EventType))
		return nil
	}
	return handler(ctx, &event)
}
