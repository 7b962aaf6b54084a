package model

import (
	"time"
)

type BookingKind string

const (
	BookingKindRoom       BookingKind = "room"
	BookingKindExperience BookingKind = "experience"
)

func (k BookingKind) Valid() bool {
	return k == BookingKindRoom || k == BookingKindExperience
}

// Booking is a reservation of exactly one room or one experience.
// Room bookings carry CheckIn/CheckOut as calendar dates stored at midnight UTC,
// experience bookings carry ExperienceTime.
type Booking struct {
	ID             string      `json:"id,omitempty" bson:"_id,omitempty"`
	Kind           BookingKind `json:"kind" bson:"kind" validate:"required,oneof=room experience"`
	RoomID         string      `json:"room_id,omitempty" bson:"room_id,omitempty" validate:"required_if=Kind room,excluded_if=Kind experience"`
	ExperienceID   string      `json:"experience_id,omitempty" bson:"experience_id,omitempty" validate:"required_if=Kind experience,excluded_if=Kind room"`
	UserID         string      `json:"user_id" bson:"user_id" validate:"required"`
	Guests         int         `json:"guests" bson:"guests" validate:"required,min=1"`
	CheckIn        *time.Time  `json:"check_in,omitempty" bson:"check_in,omitempty" validate:"required_if=Kind room,excluded_if=Kind experience"`
	CheckOut       *time.Time  `json:"check_out,omitempty" bson:"check_out,omitempty" validate:"required_if=Kind room,excluded_if=Kind experience"`
	ExperienceTime *time.Time  `json:"experience_time,omitempty" bson:"experience_time,omitempty" validate:"required_if=Kind experience,excluded_if=Kind room"`
	CreatedAt      time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" bson:"updated_at"`

	// ExperienceDone is derived on read and never stored.
	ExperienceDone *bool `json:"experience_done,omitempty" bson:"-"`
}

// ResourceID returns the id of the room or experience the booking belongs to.
func (b *Booking) ResourceID() string {
	if b.Kind == BookingKindExperience {
		return b.ExperienceID
	}
	return b.RoomID
}

// BookingPayload is the loosely typed request body accepted by create and
// update endpoints. Absent fields stay nil so a partial update can be merged
// onto the stored booking.
type BookingPayload struct {
	CheckIn        *string `json:"check_in,omitempty"`
	CheckOut       *string `json:"check_out,omitempty"`
	ExperienceTime *string `json:"experience_time,omitempty"`
	Guests         *int    `json:"guests,omitempty"`
}

func (p *BookingPayload) HasRoomFields() bool {
	return p.CheckIn != nil || p.CheckOut != nil
}

func (p *BookingPayload) HasExperienceFields() bool {
	return p.ExperienceTime != nil
}

// RoomBookingRequest is the room variant of a booking payload, with every
// field resolved.
type RoomBookingRequest struct {
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests   int    `json:"guests" validate:"required,min=1"`
}

// ExperienceBookingRequest is the experience variant of a booking payload.
type ExperienceBookingRequest struct {
	ExperienceTime string `json:"experience_time" validate:"required,local_datetime"`
	Guests         int    `json:"guests" validate:"required,min=1"`
}

func (p *BookingPayload) RoomRequest() *RoomBookingRequest {
	req := &RoomBookingRequest{}
	if p.CheckIn != nil {
		req.CheckIn = *p.CheckIn
	}
	if p.CheckOut != nil {
		req.CheckOut = *p.CheckOut
	}
	if p.Guests != nil {
		req.Guests = *p.Guests
	}
	return req
}

func (p *BookingPayload) ExperienceRequest() *ExperienceBookingRequest {
	req := &ExperienceBookingRequest{}
	if p.ExperienceTime != nil {
		req.ExperienceTime = *p.ExperienceTime
	}
	if p.Guests != nil {
		req.Guests = *p.Guests
	}
	return req
}
