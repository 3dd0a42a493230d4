package model

import "time"

// SlotLock is an advisory lock held while a batch claims a slot. Its ID is
// derived from the slot coordinate or slot id, so a second concurrent claim
// on the same slot fails on insert. Token identifies the holder on release.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	Token     string    `bson:"token" json:"token"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
