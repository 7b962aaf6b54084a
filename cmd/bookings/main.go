package main

import (
	"context"
	"staybook/internal/bookings/events"
	"staybook/internal/bookings/handler"
	"staybook/internal/bookings/repository"
	"staybook/internal/bookings/service"
	"staybook/internal/bookings/validator"
	resourcerepo "staybook/internal/resources/repository"
	"staybook/pkg/app"
	"staybook/pkg/auth"
	"staybook/pkg/config"
	"staybook/pkg/obs"
	"time"

	"go.opentelemetry.io/otel"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStorage()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	shutdownTracer, err := obs.InitTracer(context.Background(), cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize tracing", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			cfg.Log.Error("Failed to flush traces", "error", err)
		}
	}()

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		cfg.Log.Fatal("Failed to create token verifier", "error", err)
	}

	publisher, err := events.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to create event publisher", "error", err, "broker", cfg.EventsBroker)
	}

	bookingService := initServices(cfg, publisher)

	serverApp := app.NewApplication()
	serverApp.SetApp(
		cfg,
		handler.NewHealthHandler(cfg.Client.HealthChecks(), cfg.Log),
		handler.NewBookingHandler(bookingService, cfg.Log),
		verifier,
		publisher,
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) service.BookingService {
	var (
		bookingRepo repository.BookingRepository
		lockRepo    repository.BookingLockRepository
		resources   resourcerepo.ResourceRepository
	)

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		bookingRepo = repository.NewPostgresBookingRepository(cfg)
		lockRepo = repository.NewPostgresBookingLockRepository(cfg)
		resources = resourcerepo.NewPostgresResourceRepository(cfg)
	default:
		bookingRepo = repository.NewMongoBookingRepository(cfg)
		lockRepo = repository.NewMongoBookingLockRepository(cfg)
		resources = resourcerepo.NewMongoResourceRepository(cfg)
	}

	if cfg.Client.Redis != nil {
		resources = resourcerepo.NewCachedResourceRepository(resources, cfg.Client.Redis, cfg.ResourceCacheTTL, cfg.Log)
	}

	clk := cfg.Clock()
	var bookingService service.BookingService = service.NewBookingService(
		bookingRepo,
		lockRepo,
		resources,
		validator.NewBookingValidator(cfg.Log, clk),
		publisher,
		clk,
		cfg,
	)

	bookingService = service.WithTracing(bookingService, otel.GetTracerProvider())

	cfg.Log.Info("Booking service initialized",
		"storage_driver", cfg.StorageDriver,
		"timezone", cfg.Timezone,
		"resource_cache", cfg.Client.Redis != nil,
	)
	return bookingService
}
