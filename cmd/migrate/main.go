package main

import (
	"context"
	catalogrepo "roomslots/internal/catalog/repository"
	mongoMigration "roomslots/internal/migrations/mongo"
	"roomslots/pkg/config"
	"time"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Mongo migration job")
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}

	inserted, err := mongoMigration.SeedRooms(ctx, catalogrepo.NewMongoRoomRepository(cfg), cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Room seeding failed", "error", err)
	}

	cfg.Log.Info("Migration completed successfully", "rooms_seeded", inserted)
}
