package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrPastDate = errors.New("can't book in the past")

	ErrInvalidRange = errors.New("check in should be smaller than check out")

	ErrDateConflict = errors.New("those (or some of those) dates are already taken")

	ErrInvalidTimeSlot = errors.New("invalid time")

	ErrCrossKindUpdate = errors.New("field does not belong to this booking kind")

	ErrResourceNotFound = errors.New("resource not found")

	ErrPermission = errors.New("permission denied")

	// ErrLockHeld is returned by lock stores when another writer holds the lock.
	ErrLockHeld = errors.New("booking lock is held by another request")

	// ErrLockLost means the lock expired and may now belong to another writer.
	ErrLockLost = errors.New("booking lock was lost before the write finished")
)
