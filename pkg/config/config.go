package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"staybook/pkg/client"
	"staybook/pkg/clock"
	"staybook/pkg/logger"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	StorageDriver string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresDSN string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	ResourceCacheTTL time.Duration

	Port     string
	Timezone string
	Location *time.Location

	JWTSecret string

	EventsBroker      string
	KafkaBrokers      []string
	KafkaTopic        string
	KafkaCompression  string
	KafkaRequireAcks  int
	KafkaMaxAttempts  int
	KafkaBatchTimeout time.Duration
	RabbitMQURL       string
	RabbitMQExchange  string

	BookingLockTTL        time.Duration
	BookingLockRetries    int
	BookingLockRetryDelay time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	ServiceName string
	Environment string

	// OTelEndpoint enables tracing when set.
	OTelEndpoint       string
	TracingSampleRatio float64

	// Job marks one-shot processes that serve no authenticated traffic.
	Job bool

	Log    *logger.Logger
	Client *client.Client
}

// Load reads configuration from the environment, after applying a .env file when
// one exists, and exits the process if the result is invalid.
func Load(serviceName string) *Config {
	return load(serviceName, false)
}

// LoadJob is Load for one-shot jobs such as migrations, which need no JWT secret.
func LoadJob(jobName string) *Config {
	return load(jobName, true)
}

func load(serviceName string, job bool) *Config {
	dotenvErr := godotenv.Load()

	cfg := fromEnv(serviceName)
	cfg.Job = job

	if dotenvErr != nil && !errors.Is(dotenvErr, fs.ErrNotExist) {
		cfg.Log.Warn("Failed to load .env file", "error", dotenvErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func fromEnv(serviceName string) *Config {
	cfg := &Config{
		StorageDriver: strings.ToLower(getEnvStr(EnvStorageDriver, DefaultStorageDriver)),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		PostgresDSN: getEnvStr(EnvPostgresDSN, DefaultPostgresDSN),

		RedisAddr:        getEnvStr(EnvRedisAddr, ""),
		RedisPassword:    getEnvStr(EnvRedisPassword, ""),
		RedisDB:          getEnvNum(EnvRedisDB, DefaultRedisDB),
		ResourceCacheTTL: getEnvDuration(EnvResourceCacheTTL, DefaultResourceCacheTTL),

		Port:     getEnvStr(EnvPort, DefaultPort),
		Timezone: getEnvStr(EnvTimezone, DefaultTimezone),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		EventsBroker:      strings.ToLower(getEnvStr(EnvEventsBroker, DefaultEventsBroker)),
		KafkaBrokers:      getEnvList(EnvKafkaBrokers, DefaultKafkaBrokers),
		KafkaTopic:        getEnvStr(EnvKafkaTopic, DefaultKafkaTopic),
		KafkaCompression:  getEnvStr(EnvKafkaCompression, DefaultKafkaCompression),
		KafkaRequireAcks:  getEnvNum(EnvKafkaRequireAcks, DefaultKafkaRequireAcks),
		KafkaMaxAttempts:  getEnvNum(EnvKafkaMaxAttempts, DefaultKafkaMaxAttempts),
		KafkaBatchTimeout: getEnvDuration(EnvKafkaBatchTimeout, DefaultKafkaBatchTimeout),
		RabbitMQURL:       getEnvStr(EnvRabbitMQURL, DefaultRabbitMQURL),
		RabbitMQExchange:  getEnvStr(EnvRabbitMQExchange, DefaultRabbitMQExchange),

		BookingLockTTL:        getEnvDuration(EnvBookingLockTTL, DefaultBookingLockTTL),
		BookingLockRetries:    getEnvNum(EnvBookingLockRetries, DefaultBookingLockRetries),
		BookingLockRetryDelay: getEnvDuration(EnvBookingLockRetryDelay, DefaultBookingLockRetryDelay),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		ServiceName:        serviceName,
		Environment:        getEnvStr(EnvEnvironment, DefaultEnvironment),
		OTelEndpoint:       getEnvStr(EnvOTelEndpoint, ""),
		TracingSampleRatio: getEnvFloat(EnvTracingSampleRatio, DefaultTracingSampleRatio),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    getEnvStr(EnvLogFormat, DefaultLogFormat),
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if loc, err := clock.LoadLocation(cfg.Timezone); err == nil {
		cfg.Location = loc
	}

	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresDSN)
}

// SetRedis connects the resource cache. It is a no-op when REDIS_ADDR is unset.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

// SetStorage connects the store selected by STORAGE_DRIVER.
func (cfg *Config) SetStorage() {
	switch cfg.StorageDriver {
	case StoragePostgres:
		cfg.SetPostgres()
	default:
		cfg.SetMongo()
	}
}

// Clock returns the system clock in the configured timezone.
func (cfg *Config) Clock() clock.Clock {
	return clock.NewSystem(cfg.Location)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.Location == nil {
		errors = append(errors, fmt.Sprintf("Timezone must be a valid IANA zone, got: %s", cfg.Timezone))
	}

	switch cfg.StorageDriver {
	case StorageMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	case StoragePostgres:
		if cfg.PostgresDSN == "" {
			errors = append(errors, "PostgresDSN cannot be empty")
		}
	default:
		errors = append(errors, fmt.Sprintf("StorageDriver must be one of [mongo, postgres], got: %s", cfg.StorageDriver))
	}

	if cfg.RedisAddr != "" && cfg.ResourceCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("ResourceCacheTTL must be positive, got: %s", cfg.ResourceCacheTTL))
	}

	if !cfg.Job && cfg.JWTSecret == "" {
		errors = append(errors, "JWTSecret cannot be empty")
	}

	switch cfg.EventsBroker {
	case BrokerNone:
	case BrokerKafka:
		if len(cfg.KafkaBrokers) == 0 {
			errors = append(errors, "At least one Kafka broker is required")
		}
		if cfg.KafkaTopic == "" {
			errors = append(errors, "KafkaTopic cannot be empty")
		}
		validCompressions := map[string]bool{"none": true, "gzip": true, "snappy": true, "lz4": true, "zstd": true}
		if !validCompressions[cfg.KafkaCompression] {
			errors = append(errors, fmt.Sprintf("KafkaCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.KafkaCompression))
		}
		if cfg.KafkaRequireAcks < -1 || cfg.KafkaRequireAcks > 1 {
			errors = append(errors, fmt.Sprintf("KafkaRequireAcks must be -1, 0, or 1, got: %d", cfg.KafkaRequireAcks))
		}
		if cfg.KafkaMaxAttempts <= 0 {
			errors = append(errors, fmt.Sprintf("KafkaMaxAttempts must be positive, got: %d", cfg.KafkaMaxAttempts))
		}
	case BrokerRabbitMQ:
		if !strings.HasPrefix(cfg.RabbitMQURL, "amqp://") && !strings.HasPrefix(cfg.RabbitMQURL, "amqps://") {
			errors = append(errors, "RabbitMQURL must start with 'amqp://' or 'amqps://'")
		}
		if cfg.RabbitMQExchange == "" {
			errors = append(errors, "RabbitMQExchange cannot be empty")
		}
	default:
		errors = append(errors, fmt.Sprintf("EventsBroker must be one of [none, kafka, rabbitmq], got: %s", cfg.EventsBroker))
	}

	if cfg.BookingLockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("BookingLockTTL must be positive, got: %s", cfg.BookingLockTTL))
	} else if limit := max(cfg.WriteTimeout, cfg.RequestTimeout); cfg.BookingLockTTL <= limit {
		errors = append(errors, fmt.Sprintf("BookingLockTTL must be greater than the write and request timeouts (%s), got: %s", limit, cfg.BookingLockTTL))
	}
	if cfg.BookingLockRetries < 0 {
		errors = append(errors, fmt.Sprintf("BookingLockRetries cannot be negative, got: %d", cfg.BookingLockRetries))
	}
	if cfg.BookingLockRetryDelay < 0 {
		errors = append(errors, fmt.Sprintf("BookingLockRetryDelay cannot be negative, got: %s", cfg.BookingLockRetryDelay))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.TracingSampleRatio < 0 || cfg.TracingSampleRatio > 1 {
		errors = append(errors, fmt.Sprintf("TracingSampleRatio must be between 0 and 1, got: %g", cfg.TracingSampleRatio))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"storage_driver", cfg.StorageDriver,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"postgres_dsn", redactPostgresDSN(cfg.PostgresDSN),
		"redis_addr", cfg.RedisAddr,
		"resource_cache_ttl", cfg.ResourceCacheTTL,
		"port", cfg.Port,
		"timezone", cfg.Timezone,
		"jwt_secret_set", cfg.JWTSecret != "",
		"events_broker", cfg.EventsBroker,
		"kafka_brokers", cfg.KafkaBrokers,
		"kafka_topic", cfg.KafkaTopic,
		"rabbitmq_exchange", cfg.RabbitMQExchange,
		"booking_lock_ttl", cfg.BookingLockTTL,
		"booking_lock_retries", cfg.BookingLockRetries,
		"booking_lock_retry_delay", cfg.BookingLockRetryDelay,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"environment", cfg.Environment,
		"otel_endpoint", cfg.OTelEndpoint,
		"tracing_sample_ratio", cfg.TracingSampleRatio,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func redactPostgresDSN(dsn string) string {
	passwordRegex := regexp.MustCompile(`(password=)\S+`)
	dsn = passwordRegex.ReplaceAllString(dsn, "${1}***")
	urlRegex := regexp.MustCompile(`(postgres(ql)?://[^:]+:)[^@]+@`)
	return urlRegex.ReplaceAllString(dsn, "${1}***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnvStr(key, fallback)
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
