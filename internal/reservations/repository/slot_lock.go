package repository

import (
	"context"
	"fmt"
	reservationserrors "roomslots/internal/reservations/errors"
	"roomslots/pkg/config"
	"roomslots/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	SlotLocksCollection = "Slot_locks"
)

// SlotLockRepository provides advisory locks keyed by slot. Acquire fails
// with ErrLockHeld while another holder's lock is live.
type SlotLockRepository interface {
	Acquire(ctx context.Context, key string, token string, ttl time.Duration) error
	Release(ctx context.Context, key string, token string) error
}

type mongoSlotLockRepository struct {
	collection *mongo.Collection
}

func NewMongoSlotLockRepository(cfg *config.Config) SlotLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotLockRepository{
		collection: db.Collection(SlotLocksCollection),
	}
}

func (r *mongoSlotLockRepository) Acquire(ctx context.Context, key string, token string, ttl time.Duration) error {
	now := time.Now().UTC()
	lock := &model.SlotLock{
		ID:        key,
		Token:     token,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}

	// The TTL monitor runs about once a minute, so an expired lock can
	// linger. Evict it and retry once.
	res, delErr := r.collection.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lt": now}})
	if delErr != nil || res.DeletedCount == 0 {
		return reservationserrors.ErrLockHeld
	}

	if _, err = r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reservationserrors.ErrLockHeld
		}
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	return nil
}

func (r *mongoSlotLockRepository) Release(ctx context.Context, key string, token string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "token": token})
	if err != nil {
		return fmt.Errorf("failed to release slot lock: %w", err)
	}
	return nil
}
