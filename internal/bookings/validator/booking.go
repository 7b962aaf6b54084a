package validator

import (
	"errors"
	"fmt"
	"reflect"
	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/clock"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DateLayout = "2006-01-02"

	MsgPastDate     = "Can't book in the past!"
	MsgInvalidRange = "Check in should be smaller than check out."
	MsgInvalidTime  = "Invalid time"
)

var experienceTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ValidationError is a failure attributed to one request field. Err, when set,
// is the domain error the failure represents.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

func (v ValidationError) Unwrap() error {
	return v.Err
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, 0, len(v))
	for _, err := range v {
		if err.Err != nil {
			errs = append(errs, err.Err)
		}
	}
	return errs
}

type BookingValidator struct {
	validate *validator.Validate
	clock    clock.Clock
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger, clk clock.Clock) *BookingValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("local_datetime", validateLocalDatetime); err != nil {
		log.Fatal("Failed to register 'local_datetime' validator",
			"error", err,
		)
	}

	return &BookingValidator{
		validate: v,
		clock:    clk,
		logger:   log,
	}
}

func validateLocalDatetime(fl validator.FieldLevel) bool {
	_, err := ParseExperienceTime(fl.Field().String(), time.UTC)
	return err == nil
}

// ParseDate parses a calendar date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ParseExperienceTime accepts RFC 3339 timestamps and zone-less ISO 8601 date-times.
// Zone-less values are read in loc.
func ParseExperienceTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range experienceTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}

// ValidateRoomRequest checks a room booking request and returns its dates.
// Both dates must be today or later in the clock's location and check out must
// come after check in.
func (v *BookingValidator) ValidateRoomRequest(req *model.RoomBookingRequest) (time.Time, time.Time, error) {
	if err := v.checkStruct(req); err != nil {
		return time.Time{}, time.Time{}, err
	}

	checkIn, err := ParseDate(req.CheckIn)
	if err != nil {
		return time.Time{}, time.Time{}, ValidationErrors{{Field: "check_in", Message: "check_in must be a date in YYYY-MM-DD format"}}
	}
	checkOut, err := ParseDate(req.CheckOut)
	if err != nil {
		return time.Time{}, time.Time{}, ValidationErrors{{Field: "check_out", Message: "check_out must be a date in YYYY-MM-DD format"}}
	}

	today := clock.Today(v.clock)
	var errs ValidationErrors
	if checkIn.Before(today) {
		errs = append(errs, ValidationError{Field: "check_in", Message: MsgPastDate, Err: bookingserrors.ErrPastDate})
	}
	if checkOut.Before(today) {
		errs = append(errs, ValidationError{Field: "check_out", Message: MsgPastDate, Err: bookingserrors.ErrPastDate})
	}
	if len(errs) > 0 {
		return time.Time{}, time.Time{}, errs
	}

	if !checkOut.After(checkIn) {
		return time.Time{}, time.Time{}, ValidationErrors{{Field: "check_out", Message: MsgInvalidRange, Err: bookingserrors.ErrInvalidRange}}
	}

	return checkIn, checkOut, nil
}

// ValidateExperienceRequest checks an experience booking request against the
// experience's daily slot and returns the requested instant.
func (v *BookingValidator) ValidateExperienceRequest(req *model.ExperienceBookingRequest, exp *model.Experience) (time.Time, error) {
	if err := v.checkStruct(req); err != nil {
		return time.Time{}, err
	}

	loc := v.clock.Location()
	at, err := ParseExperienceTime(req.ExperienceTime, loc)
	if err != nil {
		return time.Time{}, ValidationErrors{{Field: "experience_time", Message: "experience_time must be an ISO 8601 date-time"}}
	}

	var errs ValidationErrors
	if at.Before(v.clock.Now()) {
		errs = append(errs, ValidationError{Field: "experience_time", Message: MsgPastDate, Err: bookingserrors.ErrPastDate})
	}
	if !matchesSlot(at.In(loc), exp.Start) {
		errs = append(errs, ValidationError{Field: "experience_time", Message: MsgInvalidTime, Err: bookingserrors.ErrInvalidTimeSlot})
	}
	if len(errs) > 0 {
		return time.Time{}, errs
	}

	return at, nil
}

func matchesSlot(at time.Time, start string) bool {
	h, m, err := model.ParseTimeOfDay(start)
	if err != nil {
		return false
	}
	return at.Hour() == h && at.Minute() == m && at.Second() == 0 && at.Nanosecond() == 0
}

// ValidateBooking checks the structural invariants of an assembled booking
// before it is written.
func (v *BookingValidator) ValidateBooking(booking *model.Booking) error {
	if err := v.checkStruct(booking); err != nil {
		return err
	}

	if booking.Kind == model.BookingKindRoom && !booking.CheckOut.After(*booking.CheckIn) {
		return ValidationErrors{{Field: "check_out", Message: MsgInvalidRange, Err: bookingserrors.ErrInvalidRange}}
	}

	return nil
}

func (v *BookingValidator) checkStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_if":
			message = fmt.Sprintf("%s is required", err.Field())
		case "excluded_if":
			message = fmt.Sprintf("%s is not allowed for this booking kind", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "local_datetime":
			message = fmt.Sprintf("%s must be an ISO 8601 date-time", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
