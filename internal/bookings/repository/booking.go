package repository

import (
	"context"
	"staybook/pkg/model"
	"time"
)

// BookingRepository stores bookings. Implementations exist for MongoDB and PostgreSQL.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	// FindForResource returns the booking only if it belongs to the given resource.
	FindForResource(ctx context.Context, kind model.BookingKind, resourceID string, id string) (*model.Booking, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context) (int64, error)
	// FindUpcomingForResource returns bookings whose check_in (rooms) or
	// experience_time (experiences) is strictly after `after`, earliest first.
	FindUpcomingForResource(ctx context.Context, kind model.BookingKind, resourceID string, after time.Time) ([]*model.Booking, error)
	FindUpcomingForUser(ctx context.Context, userID string, kind model.BookingKind, after time.Time) ([]*model.Booking, error)
	Update(ctx context.Context, booking *model.Booking) error
	DeleteForResource(ctx context.Context, kind model.BookingKind, resourceID string, id string) error
	// HasRoomOverlap reports whether a booking on the room satisfies
	// check_in <= checkOut AND check_out >= checkIn, ignoring excludeID.
	HasRoomOverlap(ctx context.Context, roomID string, checkIn, checkOut time.Time, excludeID string) (bool, error)
	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BookingLockRepository provides operations for advisory locks.
type BookingLockRepository interface {
	// Create fails with ErrLockHeld while an unexpired lock with the same ID exists.
	Create(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error)
	// Refresh moves the lock's expiry to expiresAt. It fails with ErrLockLost
	// when the lock is no longer held by owner.
	Refresh(ctx context.Context, lockID, owner string, expiresAt time.Time) error
	// Delete releases the lock only if owner still holds it.
	Delete(ctx context.Context, lockID, owner string) error
}

func resourceField(kind model.BookingKind) string {
	if kind == model.BookingKindExperience {
		return "experience_id"
	}
	return "room_id"
}

func upcomingField(kind model.BookingKind) string {
	if kind == model.BookingKindExperience {
		return "experience_time"
	}
	return "check_in"
}

// withDeadline bounds ctx by timeout unless it already expires sooner.
func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}
