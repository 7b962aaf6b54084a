package repository

import (
	"context"
	"errors"
	"fmt"
	"staybook/pkg/config"
	"staybook/pkg/model"

	"gorm.io/gorm"
)

type postgresResourceRepository struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewPostgresResourceRepository(cfg *config.Config) ResourceRepository {
	return &postgresResourceRepository{cfg: cfg, db: cfg.Client.Postgres}
}

func (r *postgresResourceRepository) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	if err := r.first(ctx, id, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *postgresResourceRepository) GetExperience(ctx context.Context, id string) (*model.Experience, error) {
	var exp model.Experience
	if err := r.first(ctx, id, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (r *postgresResourceRepository) first(ctx context.Context, id string, out any) error {
	if id == "" {
		return ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Where("id = ?", id).First(out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find resource: %w", err)
	}
	return nil
}
