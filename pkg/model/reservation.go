package model

import "time"

// Reservation groups the slots claimed together in one batch. Members are
// found by querying slots whose ReservationID points back here.
type Reservation struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty"`
	ReservationDate time.Time `json:"reservation_date" bson:"reservation_date"`
}
