package client

import (
	"context"
	"staybook/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Client holds the storage connections opened by a service. Unused ones stay nil.
type Client struct {
	Mongo    *mongo.Client
	Postgres *gorm.DB
	Redis    *redis.Client
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect from MongoDB", "error", err)
		} else {
			log.Info("Disconnected from MongoDB")
		}
	}

	if c.Postgres != nil {
		if sqlDB, err := c.Postgres.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Error("Failed to close PostgreSQL connection", "error", err)
			} else {
				log.Info("Disconnected from PostgreSQL")
			}
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Error("Failed to close Redis connection", "error", err)
		} else {
			log.Info("Disconnected from Redis")
		}
	}
}
