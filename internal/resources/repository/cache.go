package repository

import (
	"context"
	"encoding/json"
	"errors"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	roomKeyPrefix       = "resource:room:"
	experienceKeyPrefix = "resource:experience:"
)

type cachedResourceRepository struct {
	inner  ResourceRepository
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedResourceRepository puts a Redis read-through cache in front of inner.
// Cache failures are logged and the lookup falls through to inner.
func NewCachedResourceRepository(inner ResourceRepository, client *redis.Client, ttl time.Duration, log *logger.Logger) ResourceRepository {
	return &cachedResourceRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (r *cachedResourceRepository) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	key := roomKeyPrefix + id

	var room model.Room
	if r.get(ctx, key, &room) {
		return &room, nil
	}

	found, err := r.inner.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	r.set(ctx, key, found)
	return found, nil
}

func (r *cachedResourceRepository) GetExperience(ctx context.Context, id string) (*model.Experience, error) {
	key := experienceKeyPrefix + id

	var exp model.Experience
	if r.get(ctx, key, &exp) {
		return &exp, nil
	}

	found, err := r.inner.GetExperience(ctx, id)
	if err != nil {
		return nil, err
	}
	r.set(ctx, key, found)
	return found, nil
}

func (r *cachedResourceRepository) get(ctx context.Context, key string, out any) bool {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		r.logger.Warn("Resource cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		r.logger.Warn("Resource cache entry is corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (r *cachedResourceRepository) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("Resource cache write failed", "key", key, "error", err)
	}
}
