package validator

import (
	"errors"
	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/clock"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"testing"
	"time"
)

// 2024-06-10 09:30 in UTC.
var testNow = time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)

func newTestValidator() *BookingValidator {
	return NewBookingValidator(logger.Discard(), clock.Fixed{T: testNow})
}

func TestValidateRoomRequest(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name      string
		req       model.RoomBookingRequest
		wantErr   error
		wantField string
		wantShape bool
	}{
		{
			name: "today through tomorrow",
			req:  model.RoomBookingRequest{CheckIn: "2024-06-10", CheckOut: "2024-06-11", Guests: 1},
		},
		{
			name:      "check in yesterday",
			req:       model.RoomBookingRequest{CheckIn: "2024-06-09", CheckOut: "2024-06-12", Guests: 2},
			wantErr:   bookingserrors.ErrPastDate,
			wantField: "check_in",
		},
		{
			name:      "both dates in the past",
			req:       model.RoomBookingRequest{CheckIn: "2024-06-01", CheckOut: "2024-06-02", Guests: 2},
			wantErr:   bookingserrors.ErrPastDate,
			wantField: "check_in",
		},
		{
			name:      "same day",
			req:       model.RoomBookingRequest{CheckIn: "2024-06-12", CheckOut: "2024-06-12", Guests: 2},
			wantErr:   bookingserrors.ErrInvalidRange,
			wantField: "check_out",
		},
		{
			name:      "check out before check in",
			req:       model.RoomBookingRequest{CheckIn: "2024-06-15", CheckOut: "2024-06-12", Guests: 2},
			wantErr:   bookingserrors.ErrInvalidRange,
			wantField: "check_out",
		},
		{
			name:      "zero guests",
			req:       model.RoomBookingRequest{CheckIn: "2024-06-12", CheckOut: "2024-06-13"},
			wantField: "guests",
			wantShape: true,
		},
		{
			name:      "malformed date",
			req:       model.RoomBookingRequest{CheckIn: "12/06/2024", CheckOut: "2024-06-13", Guests: 1},
			wantField: "check_in",
			wantShape: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkIn, checkOut, err := v.ValidateRoomRequest(&tt.req)

			if tt.wantErr == nil && !tt.wantShape {
				if err != nil {
					t.Fatalf("ValidateRoomRequest() unexpected error = %v", err)
				}
				if !checkOut.After(checkIn) {
					t.Errorf("dates not returned: %v %v", checkIn, checkOut)
				}
				if checkIn.Location() != time.UTC || checkIn.Hour() != 0 {
					t.Errorf("check in should be midnight UTC, got %v", checkIn)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("first field = %s, want %s", verrs[0].Field, tt.wantField)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(err, %v) = false; err = %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateRoomRequest_UsesClockLocation(t *testing.T) {
	tokyo := time.FixedZone("UTC+9", 9*60*60)
	// 2024-06-10 20:00 UTC is already 2024-06-11 in UTC+9.
	v := NewBookingValidator(logger.Discard(), clock.Fixed{T: time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC).In(tokyo)})

	_, _, err := v.ValidateRoomRequest(&model.RoomBookingRequest{CheckIn: "2024-06-10", CheckOut: "2024-06-12", Guests: 1})
	if !errors.Is(err, bookingserrors.ErrPastDate) {
		t.Errorf("expected ErrPastDate for the previous local date, got %v", err)
	}
}

func TestValidateExperienceRequest(t *testing.T) {
	v := newTestValidator()
	exp := &model.Experience{ID: "e1", Start: "18:00", End: "20:00"}

	tests := []struct {
		name     string
		at       string
		wantErrs []error
		wantOK   bool
	}{
		{name: "matching slot", at: "2024-06-10T18:00", wantOK: true},
		{name: "matching slot with zone", at: "2024-06-10T18:00:00Z", wantOK: true},
		{name: "half past", at: "2024-06-10T18:30", wantErrs: []error{bookingserrors.ErrInvalidTimeSlot}},
		{name: "seconds off", at: "2024-06-10T18:00:01", wantErrs: []error{bookingserrors.ErrInvalidTimeSlot}},
		{name: "past slot", at: "2024-06-09T18:00", wantErrs: []error{bookingserrors.ErrPastDate}},
		{
			name:     "past and wrong slot",
			at:       "2024-06-09T07:00",
			wantErrs: []error{bookingserrors.ErrPastDate, bookingserrors.ErrInvalidTimeSlot},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateExperienceRequest(&model.ExperienceBookingRequest{ExperienceTime: tt.at, Guests: 2}, exp)

			if tt.wantOK {
				if err != nil {
					t.Fatalf("unexpected error = %v", err)
				}
				if got.Hour() != 18 || got.Minute() != 0 {
					t.Errorf("returned time = %v", got)
				}
				return
			}

			for _, want := range tt.wantErrs {
				if !errors.Is(err, want) {
					t.Errorf("errors.Is(err, %v) = false; err = %v", want, err)
				}
			}
		})
	}
}

func TestValidateExperienceRequest_Malformed(t *testing.T) {
	v := newTestValidator()
	exp := &model.Experience{Start: "18:00", End: "20:00"}

	_, err := v.ValidateExperienceRequest(&model.ExperienceBookingRequest{ExperienceTime: "tomorrow evening", Guests: 1}, exp)

	var verrs ValidationErrors
	if !errors.As(err, &verrs) || verrs[0].Field != "experience_time" {
		t.Fatalf("expected experience_time field error, got %v", err)
	}
}

func TestValidateBooking(t *testing.T) {
	v := newTestValidator()
	in := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)
	out := in.AddDate(0, 0, 2)
	at := time.Date(2024, 6, 12, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		booking *model.Booking
		wantErr bool
	}{
		{
			name:    "valid room booking",
			booking: &model.Booking{Kind: model.BookingKindRoom, RoomID: "r1", UserID: "u1", Guests: 1, CheckIn: &in, CheckOut: &out},
		},
		{
			name:    "valid experience booking",
			booking: &model.Booking{Kind: model.BookingKindExperience, ExperienceID: "e1", UserID: "u1", Guests: 1, ExperienceTime: &at},
		},
		{
			name:    "room booking with experience time",
			booking: &model.Booking{Kind: model.BookingKindRoom, RoomID: "r1", UserID: "u1", Guests: 1, CheckIn: &in, CheckOut: &out, ExperienceTime: &at},
			wantErr: true,
		},
		{
			name:    "references both resources",
			booking: &model.Booking{Kind: model.BookingKindRoom, RoomID: "r1", ExperienceID: "e1", UserID: "u1", Guests: 1, CheckIn: &in, CheckOut: &out},
			wantErr: true,
		},
		{
			name:    "experience booking without time",
			booking: &model.Booking{Kind: model.BookingKindExperience, ExperienceID: "e1", UserID: "u1", Guests: 1},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			booking: &model.Booking{Kind: "villa", UserID: "u1", Guests: 1},
			wantErr: true,
		},
		{
			name:    "inverted dates",
			booking: &model.Booking{Kind: model.BookingKindRoom, RoomID: "r1", UserID: "u1", Guests: 1, CheckIn: &out, CheckOut: &in},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBooking(tt.booking)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBooking() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2024-06-15 ")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if !got.Equal(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseDate() = %v", got)
	}
	if _, err := ParseDate("2024-13-01"); err == nil {
		t.Error("expected error for month 13")
	}
}
