//go:build integration

package repository_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/repository"
	"staybook/internal/bookings/service"
	"staybook/internal/bookings/validator"
	resourcerepo "staybook/internal/resources/repository"
	"staybook/pkg/clock"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// store is one storage backend under test.
type store struct {
	cfg   *config.Config
	repo  repository.BookingRepository
	locks repository.BookingLockRepository
	// missingID is well formed for the backend but matches no booking.
	missingID string
}

func testConfig() *config.Config {
	return &config.Config{
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
		BookingLockTTL:        10 * time.Second,
		BookingLockRetries:    50,
		BookingLockRetryDelay: 20 * time.Millisecond,
		Log:                   logger.Discard(),
	}
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(validator.DateLayout, s)
	require.NoError(t, err)
	return d.UTC()
}

func roomBooking(t *testing.T, roomID, in, out string) *model.Booking {
	checkIn, checkOut := day(t, in), day(t, out)
	return &model.Booking{
		Kind:     model.BookingKindRoom,
		RoomID:   roomID,
		UserID:   "u-" + uuid.NewString()[:8],
		Guests:   2,
		CheckIn:  &checkIn,
		CheckOut: &checkOut,
	}
}

// createIfFree is the write the service performs under the room lock.
func createIfFree(ctx context.Context, repo repository.BookingRepository, b *model.Booking) error {
	return repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		overlap, err := repo.HasRoomOverlap(txCtx, b.RoomID, *b.CheckIn, *b.CheckOut, b.ID)
		if err != nil {
			return err
		}
		if overlap {
			return bookingserrors.ErrDateConflict
		}
		if b.ID == "" {
			return repo.Create(txCtx, b)
		}
		return repo.Update(txCtx, b)
	})
}

// runStoreSuite checks the behaviour every booking store must share. Each
// subtest works on its own room so they do not interfere.
func runStoreSuite(t *testing.T, s store) {
	ctx := context.Background()

	t.Run("closed date ranges", func(t *testing.T) {
		room := "room-" + uuid.NewString()
		require.NoError(t, createIfFree(ctx, s.repo, roomBooking(t, room, "2030-06-10", "2030-06-15")))

		err := createIfFree(ctx, s.repo, roomBooking(t, room, "2030-06-15", "2030-06-20"))
		assert.ErrorIs(t, err, bookingserrors.ErrDateConflict, "shared check-out/check-in day conflicts")

		err = createIfFree(ctx, s.repo, roomBooking(t, room, "2030-06-05", "2030-06-10"))
		assert.ErrorIs(t, err, bookingserrors.ErrDateConflict)

		assert.NoError(t, createIfFree(ctx, s.repo, roomBooking(t, room, "2030-06-16", "2030-06-20")))

		overlap, err := s.repo.HasRoomOverlap(ctx, "room-"+uuid.NewString(), day(t, "2030-06-10"), day(t, "2030-06-15"), "")
		require.NoError(t, err)
		assert.False(t, overlap, "other rooms never conflict")
	})

	t.Run("update keeps or moves its own dates", func(t *testing.T) {
		room := "room-" + uuid.NewString()
		b := roomBooking(t, room, "2030-07-10", "2030-07-15")
		require.NoError(t, createIfFree(ctx, s.repo, b))
		require.NotEmpty(t, b.ID)

		require.NoError(t, createIfFree(ctx, s.repo, b), "same dates must not conflict with itself")

		checkIn, checkOut := day(t, "2030-07-12"), day(t, "2030-07-18")
		b.CheckIn, b.CheckOut = &checkIn, &checkOut
		require.NoError(t, createIfFree(ctx, s.repo, b))

		stored, err := s.repo.FindForResource(ctx, model.BookingKindRoom, room, b.ID)
		require.NoError(t, err)
		assert.True(t, stored.CheckIn.Equal(checkIn))
		assert.True(t, stored.CheckOut.Equal(checkOut))

		other := roomBooking(t, room, "2030-07-20", "2030-07-22")
		require.NoError(t, createIfFree(ctx, s.repo, other))
		other.CheckIn = &checkOut
		assert.ErrorIs(t, createIfFree(ctx, s.repo, other), bookingserrors.ErrDateConflict)
	})

	t.Run("upcoming bookings are ordered by check in", func(t *testing.T) {
		room := "room-" + uuid.NewString()
		for _, in := range []string{"2030-08-20", "2030-08-05", "2030-08-12"} {
			out := day(t, in).AddDate(0, 0, 2).Format(validator.DateLayout)
			require.NoError(t, createIfFree(ctx, s.repo, roomBooking(t, room, in, out)))
		}

		list, err := s.repo.FindUpcomingForResource(ctx, model.BookingKindRoom, room, day(t, "2030-08-01"))
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, want := range []string{"2030-08-05", "2030-08-12", "2030-08-20"} {
			assert.Equal(t, want, list[i].CheckIn.UTC().Format(validator.DateLayout))
		}

		list, err = s.repo.FindUpcomingForResource(ctx, model.BookingKindRoom, room, day(t, "2030-08-05"))
		require.NoError(t, err)
		assert.Len(t, list, 2, "a check in equal to the cut-off is not upcoming")
	})

	t.Run("delete is scoped to its resource", func(t *testing.T) {
		room := "room-" + uuid.NewString()
		b := roomBooking(t, room, "2030-09-10", "2030-09-12")
		require.NoError(t, createIfFree(ctx, s.repo, b))

		err := s.repo.DeleteForResource(ctx, model.BookingKindRoom, "room-"+uuid.NewString(), b.ID)
		assert.ErrorIs(t, err, bookingserrors.ErrNotFound)
		err = s.repo.DeleteForResource(ctx, model.BookingKindExperience, room, b.ID)
		assert.ErrorIs(t, err, bookingserrors.ErrNotFound)

		require.NoError(t, s.repo.DeleteForResource(ctx, model.BookingKindRoom, room, b.ID))
		err = s.repo.DeleteForResource(ctx, model.BookingKindRoom, room, b.ID)
		assert.ErrorIs(t, err, bookingserrors.ErrNotFound)

		err = s.repo.DeleteForResource(ctx, model.BookingKindRoom, room, s.missingID)
		assert.ErrorIs(t, err, bookingserrors.ErrNotFound)
		err = s.repo.DeleteForResource(ctx, model.BookingKindRoom, room, "not-an-id")
		assert.ErrorIs(t, err, bookingserrors.ErrInvalidID)
	})

	t.Run("lock ownership", func(t *testing.T) {
		lockID := model.RoomLockID("room-" + uuid.NewString())
		lease := func(owner string, ttl time.Duration) *model.BookingLock {
			return &model.BookingLock{ID: lockID, Owner: owner, ExpiresAt: time.Now().UTC().Add(ttl)}
		}

		_, err := s.locks.Create(ctx, lease("a", time.Minute))
		require.NoError(t, err)
		_, err = s.locks.Create(ctx, lease("b", time.Minute))
		assert.ErrorIs(t, err, bookingserrors.ErrLockHeld)

		require.NoError(t, s.locks.Delete(ctx, lockID, "b"))
		_, err = s.locks.Create(ctx, lease("b", time.Minute))
		assert.ErrorIs(t, err, bookingserrors.ErrLockHeld, "a stranger cannot release the lock")

		assert.ErrorIs(t, s.locks.Refresh(ctx, lockID, "b", time.Now().Add(time.Minute)), bookingserrors.ErrLockLost)
		assert.NoError(t, s.locks.Refresh(ctx, lockID, "a", time.Now().Add(time.Minute)))

		require.NoError(t, s.locks.Delete(ctx, lockID, "a"))
		_, err = s.locks.Create(ctx, lease("b", -time.Second))
		require.NoError(t, err)

		_, err = s.locks.Create(ctx, lease("c", time.Minute))
		require.NoError(t, err, "an expired lock is taken over")
		assert.ErrorIs(t, s.locks.Refresh(ctx, lockID, "b", time.Now().Add(time.Minute)), bookingserrors.ErrLockLost)
		require.NoError(t, s.locks.Delete(ctx, lockID, "c"))
	})

	t.Run("concurrent writers for one room", func(t *testing.T) {
		room := "room-" + uuid.NewString()
		const writers = 5

		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = createIfFree(ctx, s.repo, roomBooking(t, room, "2030-10-10", "2030-10-14"))
			}(i)
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			assert.ErrorIs(t, err, bookingserrors.ErrDateConflict)
		}
		assert.Equal(t, 1, created)

		list, err := s.repo.FindUpcomingForResource(ctx, model.BookingKindRoom, room, day(t, "2030-01-01"))
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("concurrent service requests", func(t *testing.T) {
		room := "room-" + uuid.NewString()
		clk := clock.Fixed{T: day(t, "2030-01-01")}
		resources := staticRooms{room: {ID: room, Name: "Garden suite"}}
		svc := service.NewBookingService(s.repo, s.locks, resources, validator.NewBookingValidator(s.cfg.Log, clk), nil, clk, s.cfg)

		const requests = 5
		in, out := "2030-11-10", "2030-11-14"
		guests := 2
		payload := &model.BookingPayload{CheckIn: &in, CheckOut: &out, Guests: &guests}

		var wg sync.WaitGroup
		errs := make([]error, requests)
		for i := 0; i < requests; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.CreateRoomBooking(ctx, room, "u-"+uuid.NewString()[:8], payload)
			}(i)
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr), "unexpected error %v", err)
			assert.Equal(t, http.StatusConflict, appErr.StatusCode())
		}
		assert.Equal(t, 1, created)
	})
}

type staticRooms map[string]*model.Room

func (s staticRooms) GetRoom(_ context.Context, id string) (*model.Room, error) {
	if r, ok := s[id]; ok {
		return r, nil
	}
	return nil, resourcerepo.ErrNotFound
}

func (s staticRooms) GetExperience(context.Context, string) (*model.Experience, error) {
	return nil, resourcerepo.ErrNotFound
}
