package errors

import "errors"

var (
	ErrSlotNotFound = errors.New("slot not found")

	ErrReservationNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid ID format")

	// ErrSlotTaken means a conditional claim matched nothing or the
	// (room, start time) coordinate is already stored.
	ErrSlotTaken = errors.New("slot already taken")

	ErrLockHeld = errors.New("slot lock held by another request")
)
