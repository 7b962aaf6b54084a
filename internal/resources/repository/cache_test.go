package repository

import (
	"context"
	"errors"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

type mockResourceRepository struct {
	getRoomFunc       func(ctx context.Context, id string) (*model.Room, error)
	getExperienceFunc func(ctx context.Context, id string) (*model.Experience, error)
	calls             int
}

func (m *mockResourceRepository) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	m.calls++
	return m.getRoomFunc(ctx, id)
}

func (m *mockResourceRepository) GetExperience(ctx context.Context, id string) (*model.Experience, error) {
	m.calls++
	return m.getExperienceFunc(ctx, id)
}

// unreachableRedis points at a port nothing listens on so every command fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedResourceRepository_FallsThroughWhenRedisDown(t *testing.T) {
	inner := &mockResourceRepository{
		getRoomFunc: func(ctx context.Context, id string) (*model.Room, error) {
			return &model.Room{ID: id, Name: "Loft", OwnerID: "host-1"}, nil
		},
		getExperienceFunc: func(ctx context.Context, id string) (*model.Experience, error) {
			return &model.Experience{ID: id, Start: "18:00", End: "20:00"}, nil
		},
	}
	repo := NewCachedResourceRepository(inner, unreachableRedis(t), time.Minute, logger.Discard())

	room, err := repo.GetRoom(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}
	if room.Name != "Loft" {
		t.Errorf("GetRoom() = %+v", room)
	}

	exp, err := repo.GetExperience(context.Background(), "e1")
	if err != nil {
		t.Fatalf("GetExperience() error = %v", err)
	}
	if exp.Start != "18:00" {
		t.Errorf("GetExperience() = %+v", exp)
	}

	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
}

func TestCachedResourceRepository_PropagatesNotFound(t *testing.T) {
	inner := &mockResourceRepository{
		getRoomFunc: func(ctx context.Context, id string) (*model.Room, error) {
			return nil, ErrNotFound
		},
	}
	repo := NewCachedResourceRepository(inner, unreachableRedis(t), time.Minute, logger.Discard())

	if _, err := repo.GetRoom(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRoom() error = %v, want ErrNotFound", err)
	}
}
