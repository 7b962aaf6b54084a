package client

import (
	"context"
	"errors"
)

// HealthCheck pings one backing store.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthChecks returns a check for every open connection.
func (c *Client) HealthChecks() []HealthCheck {
	var checks []HealthCheck

	if c.Mongo != nil {
		checks = append(checks, HealthCheck{Name: "mongo", Check: func(ctx context.Context) error {
			return c.Mongo.Ping(ctx, nil)
		}})
	}

	if c.Postgres != nil {
		checks = append(checks, HealthCheck{Name: "postgres", Check: func(ctx context.Context) error {
			sqlDB, err := c.Postgres.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}})
	}

	if c.Redis != nil {
		checks = append(checks, HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return c.Redis.Ping(ctx).Err()
		}})
	}

	if len(checks) == 0 {
		checks = append(checks, HealthCheck{Name: "storage", Check: func(context.Context) error {
			return errors.New("no storage connection configured")
		}})
	}

	return checks
}
