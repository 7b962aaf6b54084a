package service

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/events"
	"staybook/internal/bookings/repository"
	"staybook/internal/bookings/validator"
	resourcerepo "staybook/internal/resources/repository"
	"staybook/pkg/clock"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	MsgDateConflict            = "Those (or some of those) dates are already taken."
	MsgExperienceTimeRoomOnly  = "Experience time is only for experience bookings."
	MsgCheckInOutExperienceNot = "Check in/out is only for room bookings."
)

type BookingService interface {
	CreateRoomBooking(ctx context.Context, roomID, userID string, payload *model.BookingPayload) (*model.Booking, error)
	CreateExperienceBooking(ctx context.Context, experienceID, userID string, payload *model.BookingPayload) (*model.Booking, error)
	UpdateBooking(ctx context.Context, kind model.BookingKind, resourceID, bookingID string, payload *model.BookingPayload) (*model.Booking, error)
	GetBooking(ctx context.Context, kind model.BookingKind, resourceID, bookingID string) (*model.Booking, error)
	DeleteBooking(ctx context.Context, kind model.BookingKind, resourceID, bookingID string) error
	ListForResource(ctx context.Context, kind model.BookingKind, resourceID string) ([]*model.Booking, error)
	ListForUser(ctx context.Context, userID string, kind model.BookingKind) ([]*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	CheckRoomAvailability(ctx context.Context, roomID, checkIn, checkOut string) (bool, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	resources resourcerepo.ResourceRepository
	validator *validator.BookingValidator
	publisher events.Publisher
	clock     clock.Clock
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	resources resourcerepo.ResourceRepository,
	bookingValidator *validator.BookingValidator,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		resources: resources,
		validator: bookingValidator,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *bookingService) CreateRoomBooking(ctx context.Context, roomID, userID string, payload *model.BookingPayload) (*model.Booking, error) {
	if _, err := s.getRoom(ctx, roomID); err != nil {
		return nil, err
	}
	if payload.HasExperienceFields() {
		return nil, crossKindError(model.BookingKindRoom)
	}

	checkIn, checkOut, err := s.validator.ValidateRoomRequest(payload.RoomRequest())
	if err != nil {
		s.cfg.Log.Warn("Room booking validation failed", "room_id", roomID, "error", err)
		return nil, s.mapError(err, "")
	}

	booking := &model.Booking{
		Kind:     model.BookingKindRoom,
		RoomID:   roomID,
		UserID:   userID,
		Guests:   *payload.Guests,
		CheckIn:  &checkIn,
		CheckOut: &checkOut,
	}
	if err := s.validator.ValidateBooking(booking); err != nil {
		return nil, s.mapError(err, "")
	}

	err = s.withRoomLock(ctx, roomID, func(lockCtx context.Context) error {
		return s.repo.ExecuteTransaction(lockCtx, func(txCtx context.Context) error {
			if err := s.ensureRoomFree(txCtx, booking); err != nil {
				return err
			}
			// An abandoned request must not write after its caller gave up.
			if err := txCtx.Err(); err != nil {
				return err
			}
			return s.repo.Create(txCtx, booking)
		})
	})
	if err != nil {
		s.logWriteFailure("Failed to create room booking", err, "room_id", roomID)
		return nil, s.mapError(err, "")
	}

	s.cfg.Log.Info("Room booking created successfully",
		"id", booking.ID,
		"room_id", roomID,
		"user_id", userID,
		"check_in", checkIn.Format(validator.DateLayout),
		"check_out", checkOut.Format(validator.DateLayout),
	)
	s.publish(ctx, events.BookingCreated, booking)
	return booking, nil
}

func (s *bookingService) CreateExperienceBooking(ctx context.Context, experienceID, userID string, payload *model.BookingPayload) (*model.Booking, error) {
	exp, err := s.getExperience(ctx, experienceID)
	if err != nil {
		return nil, err
	}
	if payload.HasRoomFields() {
		return nil, crossKindError(model.BookingKindExperience)
	}

	at, err := s.validator.ValidateExperienceRequest(payload.ExperienceRequest(), exp)
	if err != nil {
		s.cfg.Log.Warn("Experience booking validation failed", "experience_id", experienceID, "error", err)
		return nil, s.mapError(err, "")
	}

	booking := &model.Booking{
		Kind:           model.BookingKindExperience,
		ExperienceID:   experienceID,
		UserID:         userID,
		Guests:         *payload.Guests,
		ExperienceTime: &at,
	}
	if err := s.validator.ValidateBooking(booking); err != nil {
		return nil, s.mapError(err, "")
	}

	if err := ctx.Err(); err != nil {
		return nil, s.mapError(err, "")
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		s.logWriteFailure("Failed to create experience booking", err, "experience_id", experienceID)
		return nil, s.mapError(err, "")
	}

	s.cfg.Log.Info("Experience booking created successfully",
		"id", booking.ID,
		"experience_id", experienceID,
		"user_id", userID,
		"experience_time", at,
	)
	s.annotateExperience(booking, exp)
	s.publish(ctx, events.BookingCreated, booking)
	return booking, nil
}

func (s *bookingService) UpdateBooking(ctx context.Context, kind model.BookingKind, resourceID, bookingID string, payload *model.BookingPayload) (*model.Booking, error) {
	if (kind == model.BookingKindRoom && payload.HasExperienceFields()) ||
		(kind == model.BookingKindExperience && payload.HasRoomFields()) {
		return nil, crossKindError(kind)
	}

	var exp *model.Experience
	var err error
	if kind == model.BookingKindRoom {
		_, err = s.getRoom(ctx, resourceID)
	} else {
		exp, err = s.getExperience(ctx, resourceID)
	}
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindForResource(ctx, kind, resourceID, bookingID)
	if err != nil {
		return nil, s.mapError(err, bookingID)
	}
	if existing.Kind != kind {
		return nil, crossKindError(kind)
	}

	var merged *model.Booking
	if kind == model.BookingKindRoom {
		merged, err = s.mergeRoomUpdate(existing, payload)
	} else {
		merged, err = s.mergeExperienceUpdate(existing, exp, payload)
	}
	if err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", bookingID, "error", err)
		return nil, s.mapError(err, bookingID)
	}
	if err := s.validator.ValidateBooking(merged); err != nil {
		return nil, s.mapError(err, bookingID)
	}

	if kind == model.BookingKindRoom {
		err = s.withRoomLock(ctx, resourceID, func(lockCtx context.Context) error {
			return s.repo.ExecuteTransaction(lockCtx, func(txCtx context.Context) error {
				if err := s.ensureRoomFree(txCtx, merged); err != nil {
					return err
				}
				if err := txCtx.Err(); err != nil {
					return err
				}
				return s.repo.Update(txCtx, merged)
			})
		})
	} else if err = ctx.Err(); err == nil {
		err = s.repo.Update(ctx, merged)
	}
	if err != nil {
		s.logWriteFailure("Failed to update booking", err, "id", bookingID)
		return nil, s.mapError(err, bookingID)
	}

	s.cfg.Log.Info("Booking updated successfully", "id", bookingID, "kind", kind)
	s.annotateExperience(merged, exp)
	s.publish(ctx, events.BookingUpdated, merged)
	return merged, nil
}

func (s *bookingService) GetBooking(ctx context.Context, kind model.BookingKind, resourceID, bookingID string) (*model.Booking, error) {
	exp, err := s.getResource(ctx, kind, resourceID)
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.FindForResource(ctx, kind, resourceID, bookingID)
	if err != nil {
		if !errors.Is(err, bookingserrors.ErrNotFound) && !errors.Is(err, bookingserrors.ErrInvalidID) {
			s.cfg.Log.Error("Failed to retrieve booking", "id", bookingID, "error", err)
		}
		return nil, s.mapError(err, bookingID)
	}

	s.annotateExperience(booking, exp)
	return booking, nil
}

func (s *bookingService) DeleteBooking(ctx context.Context, kind model.BookingKind, resourceID, bookingID string) error {
	if _, err := s.getResource(ctx, kind, resourceID); err != nil {
		return err
	}

	if err := s.repo.DeleteForResource(ctx, kind, resourceID, bookingID); err != nil {
		if !errors.Is(err, bookingserrors.ErrNotFound) && !errors.Is(err, bookingserrors.ErrInvalidID) {
			s.cfg.Log.Error("Failed to delete booking", "id", bookingID, "error", err)
		}
		return s.mapError(err, bookingID)
	}

	s.cfg.Log.Info("Booking deleted successfully", "id", bookingID, "kind", kind, "resource_id", resourceID)
	deleted := &model.Booking{ID: bookingID, Kind: kind}
	if kind == model.BookingKindRoom {
		deleted.RoomID = resourceID
	} else {
		deleted.ExperienceID = resourceID
	}
	s.publish(ctx, events.BookingDeleted, deleted)
	return nil
}

func (s *bookingService) ListForResource(ctx context.Context, kind model.BookingKind, resourceID string) ([]*model.Booking, error) {
	exp, err := s.getResource(ctx, kind, resourceID)
	if err != nil {
		return nil, err
	}

	bookings, err := s.repo.FindUpcomingForResource(ctx, kind, resourceID, s.upcomingAfter(kind))
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "kind", kind, "resource_id", resourceID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	for _, b := range bookings {
		s.annotateExperience(b, exp)
	}
	return bookings, nil
}

func (s *bookingService) ListForUser(ctx context.Context, userID string, kind model.BookingKind) ([]*model.Booking, error) {
	bookings, err := s.repo.FindUpcomingForUser(ctx, userID, kind, s.upcomingAfter(kind))
	if err != nil {
		s.cfg.Log.Error("Failed to list user bookings", "user_id", userID, "kind", kind, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	s.annotateAll(ctx, bookings)
	return bookings, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.annotateAll(ctx, bookings)
	return bookings, count, nil
}

// CheckRoomAvailability reports whether no room booking overlaps the raw range.
// Past dates and inverted ranges are not rejected here.
func (s *bookingService) CheckRoomAvailability(ctx context.Context, roomID, checkIn, checkOut string) (bool, error) {
	if _, err := s.getRoom(ctx, roomID); err != nil {
		return false, err
	}

	in, errIn := validator.ParseDate(checkIn)
	out, errOut := validator.ParseDate(checkOut)
	if errIn != nil || errOut != nil {
		return false, apperrors.InvalidInput("check_in and check_out must be dates in YYYY-MM-DD format")
	}

	overlap, err := s.repo.HasRoomOverlap(ctx, roomID, in, out, "")
	if err != nil {
		s.cfg.Log.Error("Failed to check room availability", "room_id", roomID, "error", err)
		return false, apperrors.Internal("Failed to check availability", err)
	}
	return !overlap, nil
}

// --- Helpers ---

func (s *bookingService) mergeRoomUpdate(existing *model.Booking, payload *model.BookingPayload) (*model.Booking, error) {
	req := &model.RoomBookingRequest{Guests: existing.Guests}
	if existing.CheckIn != nil {
		req.CheckIn = existing.CheckIn.Format(validator.DateLayout)
	}
	if existing.CheckOut != nil {
		req.CheckOut = existing.CheckOut.Format(validator.DateLayout)
	}
	if payload.CheckIn != nil {
		req.CheckIn = *payload.CheckIn
	}
	if payload.CheckOut != nil {
		req.CheckOut = *payload.CheckOut
	}
	if payload.Guests != nil {
		req.Guests = *payload.Guests
	}

	checkIn, checkOut, err := s.validator.ValidateRoomRequest(req)
	if err != nil {
		return nil, err
	}

	merged := *existing
	merged.CheckIn = &checkIn
	merged.CheckOut = &checkOut
	merged.Guests = req.Guests
	return &merged, nil
}

func (s *bookingService) mergeExperienceUpdate(existing *model.Booking, exp *model.Experience, payload *model.BookingPayload) (*model.Booking, error) {
	req := &model.ExperienceBookingRequest{Guests: existing.Guests}
	if existing.ExperienceTime != nil {
		req.ExperienceTime = existing.ExperienceTime.Format(time.RFC3339Nano)
	}
	if payload.ExperienceTime != nil {
		req.ExperienceTime = *payload.ExperienceTime
	}
	if payload.Guests != nil {
		req.Guests = *payload.Guests
	}

	at, err := s.validator.ValidateExperienceRequest(req, exp)
	if err != nil {
		return nil, err
	}

	merged := *existing
	merged.ExperienceTime = &at
	merged.Guests = req.Guests
	return &merged, nil
}

// ensureRoomFree fails with ErrDateConflict when another booking on the room
// overlaps b inclusively. b itself is excluded.
func (s *bookingService) ensureRoomFree(ctx context.Context, b *model.Booking) error {
	overlap, err := s.repo.HasRoomOverlap(ctx, b.RoomID, *b.CheckIn, *b.CheckOut, b.ID)
	if err != nil {
		return err
	}
	if overlap {
		return bookingserrors.ErrDateConflict
	}
	return nil
}

// withRoomLock runs fn while holding the room's advisory lock. A held lock is
// retried BookingLockRetries times before giving up. While fn runs the lock is
// refreshed every third of its TTL; if it is lost, the context passed to fn is
// cancelled and ErrLockLost is returned.
func (s *bookingService) withRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context) error) (err error) {
	lockID := model.RoomLockID(roomID)
	owner := uuid.NewString()

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer(TracerName).
		Start(ctx, "BookingService.withRoomLock", trace.WithAttributes(attribute.String("booking.lock_id", lockID)))
	defer func() { endSpan(span, err) }()

	for attempt := 0; ; attempt++ {
		lock := &model.BookingLock{
			ID:        lockID,
			Owner:     owner,
			ExpiresAt: time.Now().UTC().Add(s.cfg.BookingLockTTL),
		}
		_, err := s.lockRepo.Create(ctx, lock)
		if err == nil {
			break
		}
		if !errors.Is(err, bookingserrors.ErrLockHeld) {
			return fmt.Errorf("acquire booking lock: %w", err)
		}
		if attempt >= s.cfg.BookingLockRetries {
			s.cfg.Log.Warn("Booking lock still held after retries", "lock_id", lockID, "attempts", attempt+1)
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.BookingLockRetryDelay):
		}
	}

	lockCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.keepLock(lockCtx, lockID, owner, stop, cancel)
	}()

	defer func() {
		close(stop)
		wg.Wait()

		releaseCtx, releaseCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer releaseCancel()
		if err := s.lockRepo.Delete(releaseCtx, lockID, owner); err != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", err)
		}
	}()

	err = fn(lockCtx)
	if err != nil && errors.Is(context.Cause(lockCtx), bookingserrors.ErrLockLost) {
		return bookingserrors.ErrLockLost
	}
	return err
}

// keepLock extends the lock until stop is closed. Losing the lock cancels ctx
// with ErrLockLost; other refresh failures are retried on the next tick.
func (s *bookingService) keepLock(ctx context.Context, lockID, owner string, stop <-chan struct{}, lost context.CancelCauseFunc) {
	ticker := time.NewTicker(max(s.cfg.BookingLockTTL/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.lockRepo.Refresh(ctx, lockID, owner, time.Now().UTC().Add(s.cfg.BookingLockTTL))
			if err == nil {
				continue
			}
			if errors.Is(err, bookingserrors.ErrLockLost) {
				s.cfg.Log.Warn("Booking lock lost while writing", "lock_id", lockID)
				lost(bookingserrors.ErrLockLost)
				return
			}
			s.cfg.Log.Warn("Failed to refresh booking lock", "lock_id", lockID, "error", err)
		}
	}
}

func (s *bookingService) upcomingAfter(kind model.BookingKind) time.Time {
	if kind == model.BookingKindRoom {
		return clock.Today(s.clock)
	}
	return s.clock.Now()
}

func (s *bookingService) getResource(ctx context.Context, kind model.BookingKind, resourceID string) (*model.Experience, error) {
	if kind == model.BookingKindRoom {
		_, err := s.getRoom(ctx, resourceID)
		return nil, err
	}
	return s.getExperience(ctx, resourceID)
}

func (s *bookingService) getRoom(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.resources.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, resourcerepo.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Room", id).WithCause(bookingserrors.ErrResourceNotFound)
		}
		s.cfg.Log.Error("Failed to load room", "room_id", id, "error", err)
		return nil, apperrors.Internal("Failed to load room", err)
	}
	return room, nil
}

func (s *bookingService) getExperience(ctx context.Context, id string) (*model.Experience, error) {
	exp, err := s.resources.GetExperience(ctx, id)
	if err != nil {
		if errors.Is(err, resourcerepo.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Experience", id).WithCause(bookingserrors.ErrResourceNotFound)
		}
		s.cfg.Log.Error("Failed to load experience", "experience_id", id, "error", err)
		return nil, apperrors.Internal("Failed to load experience", err)
	}
	return exp, nil
}

func (s *bookingService) annotateExperience(b *model.Booking, exp *model.Experience) {
	if b.Kind != model.BookingKindExperience || exp == nil {
		return
	}
	b.ExperienceDone = model.ExperienceDone(b, exp, s.clock.Now(), s.clock.Location())
}

// annotateAll derives experience_done for a mixed list, loading each experience once.
func (s *bookingService) annotateAll(ctx context.Context, bookings []*model.Booking) {
	experiences := map[string]*model.Experience{}
	for _, b := range bookings {
		if b.Kind != model.BookingKindExperience {
			continue
		}
		exp, seen := experiences[b.ExperienceID]
		if !seen {
			found, err := s.resources.GetExperience(ctx, b.ExperienceID)
			if err != nil && !errors.Is(err, resourcerepo.ErrNotFound) {
				s.cfg.Log.Warn("Failed to load experience for booking", "experience_id", b.ExperienceID, "error", err)
			}
			exp = found
			experiences[b.ExperienceID] = found
		}
		s.annotateExperience(b, exp)
	}
}

func (s *bookingService) publish(ctx context.Context, t events.Type, b *model.Booking) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	event := events.NewEvent(t, b, s.clock.Now())
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.cfg.Log.Error("Failed to publish booking event",
			"event_id", event.ID,
			"event_type", t,
			"booking_id", b.ID,
			"error", err,
		)
	}
}

func (s *bookingService) logWriteFailure(msg string, err error, args ...any) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) ||
		errors.Is(err, bookingserrors.ErrDateConflict) ||
		errors.Is(err, bookingserrors.ErrLockHeld) ||
		errors.Is(err, bookingserrors.ErrLockLost) ||
		errors.Is(err, bookingserrors.ErrNotFound) {
		s.cfg.Log.Warn(msg, append(args, "error", err)...)
		return
	}
	s.cfg.Log.Error(msg, append(args, "error", err)...)
}

func crossKindError(kind model.BookingKind) *apperrors.AppError {
	msg := MsgCheckInOutExperienceNot
	if kind == model.BookingKindRoom {
		msg = MsgExperienceTimeRoomOnly
	}
	return apperrors.Wrap(bookingserrors.ErrCrossKindUpdate, apperrors.CodeInvalidInput, msg, 400)
}

// mapError converts repository and validation errors into AppErrors.
func (s *bookingService) mapError(err error, bookingID string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return apperrors.Validation("Booking validation failed", map[string]any{"errors": verrs}).WithCause(err)
	case errors.Is(err, bookingserrors.ErrDateConflict):
		return apperrors.Conflict(MsgDateConflict).
			WithDetails(map[string]any{"errors": []validator.ValidationError{{Field: "check_in", Message: MsgDateConflict}}}).
			WithCause(err)
	case errors.Is(err, bookingserrors.ErrLockHeld), errors.Is(err, bookingserrors.ErrLockLost):
		return apperrors.Conflict("This room is currently being booked by another request. Please try again.").WithCause(err)
	case errors.Is(err, bookingserrors.ErrNotFound), errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.NotFoundWithID("Booking", bookingID).WithCause(bookingserrors.ErrNotFound)
	case errors.Is(err, bookingserrors.ErrPermission):
		return apperrors.Forbidden("You do not have permission to change this booking").WithCause(err)
	case errors.Is(err, bookingserrors.ErrCrossKindUpdate):
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "Field does not belong to this booking kind", 400)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.Timeout("Booking request timed out").WithCause(err)
	default:
		return apperrors.Internal("Failed to process booking", err)
	}
}
