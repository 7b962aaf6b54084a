package repository

import (
	"context"
	"fmt"
	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/config"
	"staybook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Booking_locks"

type mongoBookingLockRepository struct {
	collection *mongo.Collection
}

func NewMongoBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		collection: db.Collection(LockCollectionName),
	}
}

// Create inserts the lock document. The TTL index reaps expired locks lazily,
// so an expired lock with the same ID is removed first.
func (r *mongoBookingLockRepository) Create(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
	lock.CreatedAt = time.Now().UTC()

	if _, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":        lock.ID,
		"expires_at": bson.M{"$lte": lock.CreatedAt},
	}); err != nil {
		return nil, fmt.Errorf("failed to purge expired lock: %w", err)
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, bookingserrors.ErrLockHeld
		}
		return nil, fmt.Errorf("failed to create lock: %w", err)
	}

	return lock, nil
}

func (r *mongoBookingLockRepository) Refresh(ctx context.Context, lockID, owner string, expiresAt time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": lockID, "owner": owner, "expires_at": bson.M{"$gt": time.Now().UTC()}},
		bson.M{"$set": bson.M{"expires_at": expiresAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to refresh lock: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrLockLost
	}
	return nil
}

func (r *mongoBookingLockRepository) Delete(ctx context.Context, lockID, owner string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "owner": owner}); err != nil {
		return fmt.Errorf("failed to delete lock: %w", err)
	}
	return nil
}
