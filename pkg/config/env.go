package config

const (
	EnvStorageDriver = "STORAGE_DRIVER"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresDSN = "POSTGRES_DSN"

	EnvRedisAddr        = "REDIS_ADDR"
	EnvRedisPassword    = "REDIS_PASSWORD"
	EnvRedisDB          = "REDIS_DB"
	EnvResourceCacheTTL = "RESOURCE_CACHE_TTL"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvTimezone  = "TIMEZONE"

	EnvJWTSecret = "JWT_SECRET"

	EnvEventsBroker      = "EVENTS_BROKER"
	EnvKafkaBrokers      = "KAFKA_BROKERS"
	EnvKafkaTopic        = "KAFKA_TOPIC"
	EnvKafkaCompression  = "KAFKA_COMPRESSION"
	EnvKafkaRequireAcks  = "KAFKA_REQUIRE_ACKS"
	EnvKafkaMaxAttempts  = "KAFKA_MAX_ATTEMPTS"
	EnvKafkaBatchTimeout = "KAFKA_BATCH_TIMEOUT"
	EnvRabbitMQURL       = "RABBITMQ_URL"
	EnvRabbitMQExchange  = "RABBITMQ_EXCHANGE"

	EnvBookingLockTTL        = "BOOKING_LOCK_TTL"
	EnvBookingLockRetries    = "BOOKING_LOCK_RETRIES"
	EnvBookingLockRetryDelay = "BOOKING_LOCK_RETRY_DELAY"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvEnvironment        = "ENV"
	EnvOTelEndpoint       = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvTracingSampleRatio = "TRACING_SAMPLE_RATIO"
)
