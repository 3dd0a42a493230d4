package model

import (
	"time"
)

// SlotDuration is the fixed length of every bookable slot.
const SlotDuration = time.Hour

type Slot struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty"`
	RoomID        string    `json:"room_id" bson:"room_id"`
	OwnerID       string    `json:"owner_id,omitempty" bson:"owner_id,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty" bson:"reservation_id,omitempty"`
	StartTime     time.Time `json:"start_time" bson:"start_time"`
	EndTime       time.Time `json:"end_time" bson:"end_time"`
	Reserved      bool      `json:"reserved" bson:"reserved"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// SetStartTime sets the start of the slot and recomputes EndTime.
// EndTime is never assigned on its own anywhere else.
func (s *Slot) SetStartTime(start time.Time) {
	s.StartTime = start.UTC().Truncate(time.Millisecond)
	s.EndTime = s.StartTime.Add(SlotDuration)
}

// Claim binds the slot to an owner and a reservation and marks it reserved.
func (s *Slot) Claim(ownerID, reservationID string, start time.Time) {
	s.Reserved = true
	s.OwnerID = ownerID
	s.ReservationID = reservationID
	s.SetStartTime(start)
}

// Release marks the slot free. Owner and reservation are kept as the last
// occupant so a freed slot can still be traced back to who held it.
func (s *Slot) Release() {
	s.Reserved = false
}

// ReservationItem is one requested member of a reservation batch.
type ReservationItem struct {
	SlotID    string    `json:"slot_id,omitempty" validate:"omitempty,mongodb"`
	RoomID    string    `json:"room_id" validate:"required,mongodb"`
	UserID    string    `json:"user_id" validate:"required,mongodb"`
	StartTime time.Time `json:"start_time" validate:"required"`
}
