package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	t.Setenv(EnvJWTSecret, "test-secret")
	t.Setenv(EnvLogLevel, "error")
	return fromEnv("test")
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := validConfig(t)

	if cfg.StorageDriver != StorageMongo {
		t.Errorf("StorageDriver = %s, want %s", cfg.StorageDriver, StorageMongo)
	}
	if cfg.EventsBroker != BrokerNone {
		t.Errorf("EventsBroker = %s, want %s", cfg.EventsBroker, BrokerNone)
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.Location)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvStorageDriver, "POSTGRES")
	t.Setenv(EnvKafkaBrokers, "kafka-1:9092, kafka-2:9092,")
	t.Setenv(EnvBookingLockRetries, "7")
	t.Setenv(EnvBookingLockTTL, "3s")
	t.Setenv(EnvRedisDB, "not-a-number")
	t.Setenv(EnvTracingSampleRatio, "0.25")
	cfg := validConfig(t)

	if cfg.StorageDriver != StoragePostgres {
		t.Errorf("StorageDriver = %s, want %s", cfg.StorageDriver, StoragePostgres)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.BookingLockRetries != 7 || cfg.BookingLockTTL != 3*time.Second {
		t.Errorf("lock settings = %d, %s", cfg.BookingLockRetries, cfg.BookingLockTTL)
	}
	if cfg.RedisDB != DefaultRedisDB {
		t.Errorf("RedisDB = %d, want fallback %d", cfg.RedisDB, DefaultRedisDB)
	}
	if cfg.TracingSampleRatio != 0.25 {
		t.Errorf("TracingSampleRatio = %g, want 0.25", cfg.TracingSampleRatio)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.JWTSecret = "" },
			wantErr: "JWTSecret cannot be empty",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Port = "99999" },
			wantErr: "Port must be between 1 and 65535",
		},
		{
			name:    "unknown storage driver",
			mutate:  func(c *Config) { c.StorageDriver = "sqlite" },
			wantErr: "StorageDriver must be one of",
		},
		{
			name:    "bad mongo uri",
			mutate:  func(c *Config) { c.MongoURI = "http://localhost" },
			wantErr: "MongoURI must start with",
		},
		{
			name:    "unknown broker",
			mutate:  func(c *Config) { c.EventsBroker = "nats" },
			wantErr: "EventsBroker must be one of",
		},
		{
			name: "bad kafka compression",
			mutate: func(c *Config) {
				c.EventsBroker = BrokerKafka
				c.KafkaCompression = "brotli"
			},
			wantErr: "KafkaCompression must be one of",
		},
		{
			name: "bad rabbitmq url",
			mutate: func(c *Config) {
				c.EventsBroker = BrokerRabbitMQ
				c.RabbitMQURL = "localhost:5672"
			},
			wantErr: "RabbitMQURL must start with",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Location = nil },
			wantErr: "Timezone must be a valid IANA zone",
		},
		{
			name:    "zero lock ttl",
			mutate:  func(c *Config) { c.BookingLockTTL = 0 },
			wantErr: "BookingLockTTL must be positive",
		},
		{
			name:    "lock ttl shorter than request timeout",
			mutate:  func(c *Config) { c.BookingLockTTL = c.RequestTimeout },
			wantErr: "BookingLockTTL must be greater than the write and request timeouts",
		},
		{
			name: "lock ttl shorter than write timeout",
			mutate: func(c *Config) {
				c.RequestTimeout = time.Second
				c.WriteTimeout = time.Minute
				c.BookingLockTTL = 30 * time.Second
			},
			wantErr: "BookingLockTTL must be greater than the write and request timeouts (1m0s)",
		},
		{
			name:    "sample ratio above one",
			mutate:  func(c *Config) { c.TracingSampleRatio = 1.5 },
			wantErr: "TracingSampleRatio must be between 0 and 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRedaction(t *testing.T) {
	if got := redactMongoURI("mongodb://admin:hunter2@db:27017"); strings.Contains(got, "hunter2") {
		t.Errorf("redactMongoURI leaked password: %s", got)
	}
	if got := redactPostgresDSN("host=db user=app password=hunter2 dbname=x"); strings.Contains(got, "hunter2") {
		t.Errorf("redactPostgresDSN leaked password: %s", got)
	}
	if got := redactPostgresDSN("postgres://app:hunter2@db:5432/x"); strings.Contains(got, "hunter2") {
		t.Errorf("redactPostgresDSN leaked password: %s", got)
	}
}

func TestNormalizePaginationLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 10},
		{-5, 10},
		{25, 25},
		{1000, DefaultPaginationLimit},
	}
	for _, tt := range tests {
		if got := NormalizePaginationLimit(tt.in); got != tt.want {
			t.Errorf("NormalizePaginationLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if NormalizeOffset(-3) != 0 {
		t.Error("NormalizeOffset should clamp negatives to zero")
	}
}

func TestValidate_JobSkipsJWTSecret(t *testing.T) {
	cfg := validConfig(t)
	cfg.JWTSecret = ""
	cfg.Job = true

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
