package client

import (
	"staybook/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func (c *Client) SetPostgres(log *logger.Logger, dsn string) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get PostgreSQL connection pool", "error", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatal("Failed to ping PostgreSQL", "error", err)
	}

	log.Info("Successfully connected to PostgreSQL")
	c.Postgres = db
}
