package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"roomslots/pkg/kafka"
	"roomslots/pkg/middleware"
	"roomslots/pkg/model"
)

type mockMessagePublisher struct {
	publishFunc func(ctx context.Context, msg kafka.Message) error
}

func (m *mockMessagePublisher) Publish(ctx context.Context, msg kafka.Message) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, msg)
	}
	return nil
}

func TestKafkaEventPublisher_BuildsMessage(t *testing.T) {
	var got kafka.Message
	var hadDeadline bool
	producer := &mockMessagePublisher{
		publishFunc: func(ctx context.Context, msg kafka.Message) error {
			got = msg
			_, hadDeadline = ctx.Deadline()
			return nil
		},
	}

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	event := newSlotEvent(EventSlotsReserved, "res-1", "owner-1", []*model.Slot{
		{ID: "s1", RoomID: "room-1", Reserved: true},
	})

	if err := NewKafkaEventPublisher(producer, time.Second).PublishSlotEvent(ctx, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Key != "res-1" {
		t.Errorf("expected key res-1, got %q", got.Key)
	}
	if got.GetEventType() != EventSlotsReserved {
		t.Errorf("expected event type %s, got %q", EventSlotsReserved, got.GetEventType())
	}
	if got.GetCorrelationID() != "req-123" {
		t.Errorf("expected correlation id req-123, got %q", got.GetCorrelationID())
	}
	if got.GetEventID() == "" {
		t.Error("expected an event id")
	}
	if !hadDeadline {
		t.Error("expected publish to run with a deadline")
	}

	var decoded SlotEvent
	if err := json.Unmarshal(got.Value, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.ReservationID != "res-1" || len(decoded.Slots) != 1 {
		t.Errorf("unexpected payload: %+v", decoded)
	}
}

func TestKafkaEventPublisher_DetachesFromCallerCancellation(t *testing.T) {
	var ctxErr error
	producer := &mockMessagePublisher{
		publishFunc: func(ctx context.Context, msg kafka.Message) error {
			ctxErr = ctx.Err()
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	event := newSlotEvent(EventSlotsFreed, "", "", []*model.Slot{{ID: "s1", RoomID: "room-1"}})
	if err := NewKafkaEventPublisher(producer, time.Second).PublishSlotEvent(ctx, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctxErr != nil {
		t.Errorf("publish context should not inherit cancellation, got %v", ctxErr)
	}
}

func TestSlotEventKey(t *testing.T) {
	tests := []struct {
		name  string
		event SlotEvent
		want  string
	}{
		{"reservation wins", SlotEvent{Type: EventSlotsReserved, ReservationID: "r", Slots: []*model.Slot{{RoomID: "room"}}}, "r"},
		{"falls back to room", SlotEvent{Type: EventSlotsFreed, Slots: []*model.Slot{{RoomID: "room"}}}, "room"},
		{"falls back to type", SlotEvent{Type: EventSlotsFreed}, EventSlotsFreed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.key(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
