package model

import "time"

// BookingLock is an advisory lock held while a room's bookings are checked and written.
// Only one live lock per ID can exist; expired locks are removed by the store.
// Owner identifies the holder so a holder whose lock expired cannot extend or
// release a lock taken over by someone else.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id" gorm:"primaryKey;type:text"`
	Owner     string    `bson:"owner" json:"owner" gorm:"type:text;not null"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `bson:"created_at" json:"created_at" gorm:"not null"`
}

func (BookingLock) TableName() string {
	return "booking_locks"
}

func RoomLockID(roomID string) string {
	return "booking_lock_room_" + roomID
}
