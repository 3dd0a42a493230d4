//go:build integration

package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	mongoMigration "roomslots/internal/migrations/mongo"
	reservationserrors "roomslots/internal/reservations/errors"
	"roomslots/internal/reservations/repository"
	"roomslots/pkg/client"
	"roomslots/pkg/config"
	"roomslots/pkg/logger"
	"roomslots/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const integrationDatabase = "roomslots_integration"

func newIntegrationConfig(t *testing.T) *config.Config {
	t.Helper()

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		t.Skip("MONGO_URI not set")
	}

	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "integration"})
	cfg := &config.Config{
		MongoURI:          mongoURI,
		MongoDatabaseName: integrationDatabase,
		MongoConnTimeout:  10 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		Log:               log,
		Client:            client.NewClient(),
	}
	cfg.SetMongo()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := cfg.Client.Mongo.Database(integrationDatabase).Drop(ctx); err != nil {
		t.Fatalf("failed to drop database: %v", err)
	}
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, integrationDatabase, log); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	t.Cleanup(cfg.GracefulShutdown)
	return cfg
}

func TestSlotRepository_UniqueCoordinate(t *testing.T) {
	cfg := newIntegrationConfig(t)
	repo := repository.NewMongoSlotRepository(cfg)
	ctx := context.Background()

	roomID := primitive.NewObjectID().Hex()
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	first := &model.Slot{RoomID: roomID}
	first.SetStartTime(start)
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := &model.Slot{RoomID: roomID}
	second.SetStartTime(start)
	if err := repo.Create(ctx, second); !errors.Is(err, reservationserrors.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	found, err := repo.FindByCoordinate(ctx, roomID, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != first.ID {
		t.Errorf("expected slot %s, got %s", first.ID, found.ID)
	}
}

func TestSlotRepository_ClaimIsConditional(t *testing.T) {
	cfg := newIntegrationConfig(t)
	repo := repository.NewMongoSlotRepository(cfg)
	ctx := context.Background()

	slot := &model.Slot{RoomID: primitive.NewObjectID().Hex()}
	slot.SetStartTime(time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC))
	if err := repo.Create(ctx, slot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	owner := primitive.NewObjectID().Hex()
	reservation := primitive.NewObjectID().Hex()
	slot.Claim(owner, reservation, slot.StartTime)
	if err := repo.Claim(ctx, slot, ""); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if err := repo.Claim(ctx, slot, ""); !errors.Is(err, reservationserrors.ErrSlotTaken) {
		t.Fatalf("second claim should fail with ErrSlotTaken, got %v", err)
	}
	if err := repo.Claim(ctx, slot, reservation); err != nil {
		t.Fatalf("claim by the same reservation should pass, got %v", err)
	}

	if err := repo.Release(ctx, slot.ID); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	freed, err := repo.FindByID(ctx, slot.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if freed.Reserved || freed.OwnerID != owner {
		t.Errorf("expected free slot keeping owner %s, got %+v", owner, freed)
	}
}

func TestSlotLockRepository_MutualExclusion(t *testing.T) {
	cfg := newIntegrationConfig(t)
	locks := repository.NewMongoSlotLockRepository(cfg)
	ctx := context.Background()

	if err := locks.Acquire(ctx, "slot_lock_test", "a", time.Minute); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := locks.Acquire(ctx, "slot_lock_test", "b", time.Minute); !errors.Is(err, reservationserrors.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	if err := locks.Release(ctx, "slot_lock_test", "b"); err != nil {
		t.Fatalf("release with foreign token failed: %v", err)
	}
	if err := locks.Acquire(ctx, "slot_lock_test", "b", time.Minute); !errors.Is(err, reservationserrors.ErrLockHeld) {
		t.Fatalf("foreign release must not drop the lock, got %v", err)
	}
	if err := locks.Release(ctx, "slot_lock_test", "a"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := locks.Acquire(ctx, "slot_lock_test", "b", time.Minute); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
}
