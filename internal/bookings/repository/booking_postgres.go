package repository

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/config"
	pgtx "staybook/pkg/db/postgres"
	"staybook/pkg/model"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"

	// RoomOverlapConstraint rejects two room bookings whose inclusive date
	// ranges intersect.
	RoomOverlapConstraint = "bookings_room_no_overlap"
)

// BookingRecord is the PostgreSQL row for a booking.
type BookingRecord struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Kind           string     `gorm:"type:varchar(16);not null;index:idx_bookings_user_kind,priority:2"`
	RoomID         *string    `gorm:"type:text;index"`
	ExperienceID   *string    `gorm:"type:text;index"`
	UserID         string     `gorm:"type:text;not null;index:idx_bookings_user_kind,priority:1"`
	Guests         int        `gorm:"not null"`
	CheckIn        *time.Time `gorm:"type:date"`
	CheckOut       *time.Time `gorm:"type:date"`
	ExperienceTime *time.Time `gorm:"type:timestamptz;index"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

func (BookingRecord) TableName() string {
	return "bookings"
}

func toRecord(b *model.Booking) *BookingRecord {
	rec := &BookingRecord{
		Kind:           string(b.Kind),
		UserID:         b.UserID,
		Guests:         b.Guests,
		CheckIn:        b.CheckIn,
		CheckOut:       b.CheckOut,
		ExperienceTime: b.ExperienceTime,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	if id, err := uuid.Parse(b.ID); err == nil {
		rec.ID = id
	}
	if b.RoomID != "" {
		rec.RoomID = &b.RoomID
	}
	if b.ExperienceID != "" {
		rec.ExperienceID = &b.ExperienceID
	}
	return rec
}

func (rec *BookingRecord) toModel() *model.Booking {
	b := &model.Booking{
		ID:             rec.ID.String(),
		Kind:           model.BookingKind(rec.Kind),
		UserID:         rec.UserID,
		Guests:         rec.Guests,
		CheckIn:        utcDate(rec.CheckIn),
		CheckOut:       utcDate(rec.CheckOut),
		ExperienceTime: rec.ExperienceTime,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
	if rec.RoomID != nil {
		b.RoomID = *rec.RoomID
	}
	if rec.ExperienceID != nil {
		b.ExperienceID = *rec.ExperienceID
	}
	return b
}

func utcDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

type postgresBookingRepository struct {
	cfg       *config.Config
	db        *gorm.DB
	txManager pgtx.TransactionManager
}

func NewPostgresBookingRepository(cfg *config.Config) BookingRepository {
	return &postgresBookingRepository{
		cfg:       cfg,
		db:        cfg.Client.Postgres,
		txManager: pgtx.NewTransactionManager(cfg.Client.Postgres),
	}
}

func (r *postgresBookingRepository) conn(ctx context.Context, timeout time.Duration) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := withDeadline(ctx, timeout)
	return pgtx.Conn(ctx, r.db), cancel
}

func (r *postgresBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	db, cancel := r.conn(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Microsecond)
	booking.ID = uuid.NewString()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if err := db.Create(toRecord(booking)).Error; err != nil {
		booking.ID = ""
		return classifyWriteError("failed to create booking", err)
	}
	return nil
}

func (r *postgresBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return r.first(ctx, "id = ?", id)
}

func (r *postgresBookingRepository) FindForResource(ctx context.Context, kind model.BookingKind, resourceID string, id string) (*model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return r.first(ctx, "id = ? AND kind = ? AND "+resourceField(kind)+" = ?", id, string(kind), resourceID)
}

func (r *postgresBookingRepository) first(ctx context.Context, query string, args ...any) (*model.Booking, error) {
	db, cancel := r.conn(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var rec BookingRecord
	if err := db.Where(query, args...).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return rec.toModel(), nil
}

func (r *postgresBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	db, cancel := r.conn(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var recs []BookingRecord
	err := db.Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Offset(int(offset)).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	return toModels(recs), nil
}

func (r *postgresBookingRepository) FindUpcomingForResource(ctx context.Context, kind model.BookingKind, resourceID string, after time.Time) ([]*model.Booking, error) {
	db, cancel := r.conn(ctx, r.cfg.ReadTimeout)
	defer cancel()

	field := upcomingField(kind)
	var recs []BookingRecord
	err := db.Where("kind = ? AND "+resourceField(kind)+" = ? AND "+field+" > ?", string(kind), resourceID, after).
		Order(field + " ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	return toModels(recs), nil
}

func (r *postgresBookingRepository) FindUpcomingForUser(ctx context.Context, userID string, kind model.BookingKind, after time.Time) ([]*model.Booking, error) {
	db, cancel := r.conn(ctx, r.cfg.ReadTimeout)
	defer cancel()

	field := upcomingField(kind)
	var recs []BookingRecord
	err := db.Where("kind = ? AND user_id = ? AND "+field+" > ?", string(kind), userID, after).
		Order(field + " ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	return toModels(recs), nil
}

func toModels(recs []BookingRecord) []*model.Booking {
	bookings := make([]*model.Booking, 0, len(recs))
	for i := range recs {
		bookings = append(bookings, recs[i].toModel())
	}
	return bookings
}

func (r *postgresBookingRepository) Count(ctx context.Context) (int64, error) {
	db, cancel := r.conn(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var count int64
	if err := db.Model(&BookingRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *postgresBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	if _, err := uuid.Parse(booking.ID); err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, booking.ID)
	}

	db, cancel := r.conn(ctx, r.cfg.WriteTimeout)
	defer cancel()

	booking.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	updates := map[string]any{
		"guests":     booking.Guests,
		"updated_at": booking.UpdatedAt,
	}
	if booking.Kind == model.BookingKindRoom {
		updates["check_in"] = booking.CheckIn
		updates["check_out"] = booking.CheckOut
	} else {
		updates["experience_time"] = booking.ExperienceTime
	}

	result := db.Model(&BookingRecord{}).
		Where("id = ? AND kind = ?", booking.ID, string(booking.Kind)).
		Updates(updates)
	if result.Error != nil {
		return classifyWriteError("failed to update booking", result.Error)
	}
	if result.RowsAffected == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *postgresBookingRepository) DeleteForResource(ctx context.Context, kind model.BookingKind, resourceID string, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	db, cancel := r.conn(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result := db.Where("id = ? AND kind = ? AND "+resourceField(kind)+" = ?", id, string(kind), resourceID).
		Delete(&BookingRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *postgresBookingRepository) HasRoomOverlap(ctx context.Context, roomID string, checkIn, checkOut time.Time, excludeID string) (bool, error) {
	db, cancel := r.conn(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := db.Model(&BookingRecord{}).
		Where("kind = ? AND room_id = ? AND check_in <= ? AND check_out >= ?",
			string(model.BookingKindRoom), roomID, checkOut, checkIn)
	if _, err := uuid.Parse(excludeID); err == nil {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Limit(1).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check booking overlap: %w", err)
	}
	return count > 0, nil
}

func (r *postgresBookingRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

// classifyWriteError maps constraint violations onto domain errors.
func classifyWriteError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation:
			return bookingserrors.ErrDateConflict
		case pgUniqueViolation:
			return bookingserrors.ErrLockHeld
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
