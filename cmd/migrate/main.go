package main

import (
	"context"
	"time"

	mongoMigration "staybook/internal/migrations/mongo"
	postgresMigration "staybook/internal/migrations/postgres"
	"staybook/pkg/config"
)

const JobName = "storage-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.LoadJob(JobName)
	cfg.SetStorage()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting migration job", "storage_driver", cfg.StorageDriver)

	var err error
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		err = postgresMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log)
	default:
		err = mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log)
	}
	if err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Migration failed", "error", err)
	}

	cfg.Log.Info("Migration completed successfully")
}
