package service

import (
	"context"
	"roomslots/pkg/kafka"
	"roomslots/pkg/middleware"
	"roomslots/pkg/model"
	"time"
)

const (
	EventSlotsReserved       = "slots.reserved"
	EventSlotsFreed          = "slots.freed"
	EventReservationModified = "reservation.modified"

	eventSchemaVersion = "1"
	eventSource        = "roomslots-reservations"
)

// SlotEvent is published after a reserve, free or modify commits.
type SlotEvent struct {
	Type          string        `json:"type"`
	ReservationID string        `json:"reservation_id,omitempty"`
	OwnerID       string        `json:"owner_id,omitempty"`
	Slots         []*model.Slot `json:"slots"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

func newSlotEvent(eventType, reservationID, ownerID string, slots []*model.Slot) SlotEvent {
	return SlotEvent{
		Type:          eventType,
		ReservationID: reservationID,
		OwnerID:       ownerID,
		Slots:         slots,
		OccurredAt:    time.Now().UTC(),
	}
}

// key partitions events so one reservation's events stay ordered.
func (e SlotEvent) key() string {
	if e.ReservationID != "" {
		return e.ReservationID
	}
	if len(e.Slots) > 0 {
		return e.Slots[0].RoomID
	}
	return e.Type
}

type EventPublisher interface {
	PublishSlotEvent(ctx context.Context, event SlotEvent) error
}

type NoopPublisher struct{}

func (NoopPublisher) PublishSlotEvent(context.Context, SlotEvent) error {
	return nil
}

// messagePublisher is satisfied by *kafka.Producer.
type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaEventPublisher struct {
	producer messagePublisher
	timeout  time.Duration
}

// NewKafkaEventPublisher bounds every publish by timeout, detached from the
// caller's cancellation.
func NewKafkaEventPublisher(producer messagePublisher, timeout time.Duration) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, timeout: timeout}
}

func (p *KafkaEventPublisher) PublishSlotEvent(ctx context.Context, event SlotEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.key()).
		WithValue(event).
		WithEventID("").
		WithEventType(event.Type).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithSchemaVersion(eventSchemaVersion).
		WithSource(eventSource).
		Build()
	if err != nil {
		return err
	}

	publishCtx := context.WithoutCancel(ctx)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		publishCtx, cancel = context.WithTimeout(publishCtx, p.timeout)
		defer cancel()
	}
	return p.producer.Publish(publishCtx, msg)
}

// publish never fails the caller: the state change already committed.
func (s *reservationService) publish(ctx context.Context, event SlotEvent) {
	if len(event.Slots) == 0 {
		return
	}
	if err := s.publisher.PublishSlotEvent(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish slot event",
			"event_type", event.Type,
			"reservation_id", event.ReservationID,
			"error", err,
		)
	}
}
