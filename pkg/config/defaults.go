package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "roomslots"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "INFO"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute
	DefaultRateLimitBurst    = 10

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultSlotLockTTL  = 10 * time.Second
	DefaultLockBackend  = LockBackendMongo
	DefaultMaxBatchSize = 50

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultEventsEnabled  = false
	DefaultEventsTopic    = "roomslots.slots"
	DefaultEventsDLQTopic = "roomslots.slots.dlq"

	DefaultPaginationLimit = 100
)

const (
	LockBackendMongo = "mongo"
	LockBackendRedis = "redis"
)
