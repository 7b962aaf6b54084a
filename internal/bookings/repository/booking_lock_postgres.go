package repository

import (
	"context"
	"fmt"
	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/config"
	"staybook/pkg/model"
	"time"

	"gorm.io/gorm"
)

type postgresBookingLockRepository struct {
	db *gorm.DB
}

func NewPostgresBookingLockRepository(cfg *config.Config) BookingLockRepository {
	return &postgresBookingLockRepository{db: cfg.Client.Postgres}
}

func (r *postgresBookingLockRepository) Create(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
	lock.CreatedAt = time.Now().UTC()
	db := r.db.WithContext(ctx)

	if err := db.Where("id = ? AND expires_at <= ?", lock.ID, lock.CreatedAt).
		Delete(&model.BookingLock{}).Error; err != nil {
		return nil, fmt.Errorf("failed to purge expired lock: %w", err)
	}

	if err := db.Create(lock).Error; err != nil {
		return nil, classifyWriteError("failed to create lock", err)
	}
	return lock, nil
}

func (r *postgresBookingLockRepository) Refresh(ctx context.Context, lockID, owner string, expiresAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.BookingLock{}).
		Where("id = ? AND owner = ? AND expires_at > ?", lockID, owner, time.Now().UTC()).
		Update("expires_at", expiresAt)
	if result.Error != nil {
		return fmt.Errorf("failed to refresh lock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return bookingserrors.ErrLockLost
	}
	return nil
}

func (r *postgresBookingLockRepository) Delete(ctx context.Context, lockID, owner string) error {
	if err := r.db.WithContext(ctx).Where("id = ? AND owner = ?", lockID, owner).Delete(&model.BookingLock{}).Error; err != nil {
		return fmt.Errorf("failed to delete lock: %w", err)
	}
	return nil
}
