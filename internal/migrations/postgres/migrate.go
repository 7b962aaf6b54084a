package postgres

import (
	"context"
	"fmt"

	bookingrepo "staybook/internal/bookings/repository"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"gorm.io/gorm"
)

// Statements run after AutoMigrate. Each is idempotent.
var Statements = []struct {
	Name string
	SQL  string
}{
	{
		Name: "btree_gist extension",
		SQL:  `CREATE EXTENSION IF NOT EXISTS btree_gist`,
	},
	{
		Name: "booking kind check",
		SQL: `DO $$ BEGIN
	ALTER TABLE bookings ADD CONSTRAINT bookings_kind_check CHECK (kind IN ('room', 'experience'));
EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	},
	{
		Name: "guests check",
		SQL: `DO $$ BEGIN
	ALTER TABLE bookings ADD CONSTRAINT bookings_guests_positive CHECK (guests > 0);
EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	},
	{
		Name: "single resource check",
		SQL: `DO $$ BEGIN
	ALTER TABLE bookings ADD CONSTRAINT bookings_single_resource CHECK (
		(kind = 'room' AND room_id IS NOT NULL AND check_in IS NOT NULL AND check_out IS NOT NULL
			AND experience_id IS NULL AND experience_time IS NULL)
		OR
		(kind = 'experience' AND experience_id IS NOT NULL AND experience_time IS NOT NULL
			AND room_id IS NULL AND check_in IS NULL AND check_out IS NULL)
	);
EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	},
	{
		Name: "date range check",
		SQL: `DO $$ BEGIN
	ALTER TABLE bookings ADD CONSTRAINT bookings_check_out_after_check_in CHECK (check_out > check_in);
EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	},
	{
		Name: "room overlap exclusion",
		SQL: fmt.Sprintf(`DO $$ BEGIN
	ALTER TABLE bookings ADD CONSTRAINT %s EXCLUDE USING gist (
		room_id WITH =,
		daterange(check_in, check_out, '[]') WITH &&
	) WHERE (kind = 'room');
EXCEPTION WHEN duplicate_object OR duplicate_table THEN NULL; END $$`, bookingrepo.RoomOverlapConstraint),
	},
	{
		Name: "experience time check",
		SQL: `DO $$ BEGIN
	ALTER TABLE experiences ADD CONSTRAINT experiences_time_of_day CHECK (
		start ~ '^([01][0-9]|2[0-3]):[0-5][0-9]$' AND "end" ~ '^([01][0-9]|2[0-3]):[0-5][0-9]$'
	);
EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	},
}

// RunMigration creates the booking schema. It is safe to run repeatedly.
func RunMigration(ctx context.Context, db *gorm.DB, log *logger.Logger) error {
	log.Info("Running PostgreSQL migrations")

	if err := db.WithContext(ctx).AutoMigrate(
		&bookingrepo.BookingRecord{},
		&model.BookingLock{},
		&model.Room{},
		&model.Experience{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	for _, stmt := range Statements {
		if err := db.WithContext(ctx).Exec(stmt.SQL).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt.Name, err)
		}
		log.Info("Applied schema statement", "statement", stmt.Name)
	}

	log.Info("All PostgreSQL migrations applied")
	return nil
}
