package main

import (
	catalogrepo "roomslots/internal/catalog/repository"
	"roomslots/internal/reservations/handler"
	"roomslots/internal/reservations/repository"
	"roomslots/internal/reservations/service"
	"roomslots/internal/reservations/validator"
	"roomslots/pkg/app"
	"roomslots/pkg/config"
	"roomslots/pkg/kafka"
	kafka_config "roomslots/pkg/kafka/config"
	kafka_middleware "roomslots/pkg/kafka/middleware"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	if cfg.LockBackend == config.LockBackendRedis {
		cfg.SetRedis()
	}
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Reservations service")
	publisher, closePublisher := initPublisher(cfg)
	reservationService := initServices(cfg, publisher)

	var cache handler.Pinger
	if cfg.Client.Redis != nil {
		cache = handler.PingFunc(cfg.Client.PingRedis)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(closePublisher)
	serverApp.SetApp(
		handler.NewHealthHandler(handler.PingFunc(cfg.Client.PingMongo), cache, cfg.Log),
		handler.NewReservationHandler(reservationService, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher service.EventPublisher) service.ReservationService {
	var lockRepo repository.SlotLockRepository
	switch cfg.LockBackend {
	case config.LockBackendRedis:
		lockRepo = repository.NewRedisSlotLockRepository(cfg.Client.Redis)
	default:
		lockRepo = repository.NewMongoSlotLockRepository(cfg)
	}

	reservationService := service.NewReservationService(
		repository.NewMongoSlotRepository(cfg),
		repository.NewMongoReservationRepository(cfg),
		lockRepo,
		catalogrepo.NewMongoRoomRepository(cfg),
		catalogrepo.NewMongoUserRepository(cfg),
		validator.NewReservationValidator(cfg.Log, cfg.MaxBatchSize),
		publisher,
		cfg,
	)

	cfg.Log.Info("Reservations service initialized",
		"database", cfg.MongoDatabaseName,
		"lock_backend", cfg.LockBackend,
	)
	return reservationService
}

// initPublisher returns the event publisher and a func that flushes it.
func initPublisher(cfg *config.Config) (service.EventPublisher, func()) {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Slot events disabled")
		return service.NoopPublisher{}, func() {}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.EventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.Logging(cfg.Log))

	closeProducer := func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}

	cfg.Log.Info("Slot events enabled", "topic", producer.Topic(), "dlq_topic", cfg.EventsDLQTopic)
	return service.NewKafkaEventPublisher(producer, kafkaCfg.PublishTimeout), closeProducer
}
