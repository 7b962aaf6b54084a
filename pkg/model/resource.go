package model

import (
	"fmt"
	"time"
)

const TimeOfDayLayout = "15:04"

type Room struct {
	ID      string `json:"id" bson:"_id,omitempty" gorm:"primaryKey;type:text"`
	Name    string `json:"name" bson:"name" gorm:"not null"`
	OwnerID string `json:"owner_id" bson:"owner_id" gorm:"not null;index"`
}

func (Room) TableName() string {
	return "rooms"
}

// Experience runs once a day from Start to End, both "HH:MM" in the service timezone.
type Experience struct {
	ID      string `json:"id" bson:"_id,omitempty" gorm:"primaryKey;type:text"`
	Name    string `json:"name" bson:"name" gorm:"not null"`
	OwnerID string `json:"owner_id" bson:"owner_id" gorm:"not null;index"`
	Start   string `json:"start" bson:"start" gorm:"type:varchar(5);not null"`
	End     string `json:"end" bson:"end" gorm:"type:varchar(5);not null"`
}

func (Experience) TableName() string {
	return "experiences"
}

// ParseTimeOfDay parses "HH:MM" into hours and minutes.
func ParseTimeOfDay(s string) (int, int, error) {
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// EndOn returns the instant the experience ends on the calendar date of day, in loc.
func (e *Experience) EndOn(day time.Time, loc *time.Location) (time.Time, error) {
	h, m, err := ParseTimeOfDay(e.End)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := day.In(loc).Date()
	return time.Date(y, mo, d, h, m, 0, 0, loc), nil
}

// ExperienceDone reports whether the experience's scheduled end on the booking's
// date has passed. It is nil when the booking has no experience time or the
// experience end cannot be parsed.
func ExperienceDone(b *Booking, exp *Experience, now time.Time, loc *time.Location) *bool {
	if b == nil || exp == nil || b.ExperienceTime == nil {
		return nil
	}
	end, err := exp.EndOn(*b.ExperienceTime, loc)
	if err != nil {
		return nil
	}
	done := now.After(end)
	return &done
}
