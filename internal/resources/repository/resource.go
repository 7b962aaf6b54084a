package repository

import (
	"context"
	"errors"
	"staybook/pkg/model"
)

var ErrNotFound = errors.New("resource not found")

// ResourceRepository is a read-only directory of bookable rooms and experiences.
type ResourceRepository interface {
	GetRoom(ctx context.Context, id string) (*model.Room, error)
	GetExperience(ctx context.Context, id string) (*model.Experience, error)
}
