package repository

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"

	// RoomGuardCollectionName holds one write counter per room.
	RoomGuardCollectionName = "Room_guards"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	guards     *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		guards:     db.Collection(RoomGuardCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext cannot be wrapped without leaving the transaction.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return withDeadline(ctx, timeout)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if err := r.guardRoom(ctx, booking); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.ID = ""
	booking.CreatedAt = now
	booking.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

// guardRoom bumps the room's write counter. Two transactions writing bookings
// for the same room both touch this document, so the later one fails with a
// write conflict and is retried against the committed state.
func (r *mongoBookingRepository) guardRoom(ctx context.Context, booking *model.Booking) error {
	if booking.Kind != model.BookingKindRoom {
		return nil
	}
	_, err := r.guards.UpdateOne(ctx,
		bson.M{"_id": booking.RoomID},
		bson.M{"$inc": bson.M{"writes": 1}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to guard room %s: %w", booking.RoomID, err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoBookingRepository) FindForResource(ctx context.Context, kind model.BookingKind, resourceID string, id string) (*model.Booking, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{
		"_id":               objectID,
		"kind":              kind,
		resourceField(kind): resourceID,
	})
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoBookingRepository) FindUpcomingForResource(ctx context.Context, kind model.BookingKind, resourceID string, after time.Time) ([]*model.Booking, error) {
	field := upcomingField(kind)
	filter := bson.M{
		"kind":              kind,
		resourceField(kind): resourceID,
		field:               bson.M{"$gt": after},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: field, Value: 1}}))
}

func (r *mongoBookingRepository) FindUpcomingForUser(ctx context.Context, userID string, kind model.BookingKind, after time.Time) ([]*model.Booking, error) {
	field := upcomingField(kind)
	filter := bson.M{
		"kind":    kind,
		"user_id": userID,
		field:     bson.M{"$gt": after},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: field, Value: 1}}))
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	return count, nil
}

func (r *mongoBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(booking.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, booking.ID)
	}

	if err := r.guardRoom(ctx, booking); err != nil {
		return err
	}

	booking.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"guests":     booking.Guests,
		"updated_at": booking.UpdatedAt,
	}
	if booking.Kind == model.BookingKindRoom {
		set["check_in"] = booking.CheckIn
		set["check_out"] = booking.CheckOut
	} else {
		set["experience_time"] = booking.ExperienceTime
	}

	// kind is part of the filter so a booking can never change kind.
	filter := bson.M{"_id": objectID, "kind": booking.Kind}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}

	return nil
}

func (r *mongoBookingRepository) DeleteForResource(ctx context.Context, kind model.BookingKind, resourceID string, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":               objectID,
		"kind":              kind,
		resourceField(kind): resourceID,
	}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if result.DeletedCount == 0 {
		return bookingserrors.ErrNotFound
	}

	return nil
}

func (r *mongoBookingRepository) HasRoomOverlap(ctx context.Context, roomID string, checkIn, checkOut time.Time, excludeID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"kind":      model.BookingKindRoom,
		"room_id":   roomID,
		"check_in":  bson.M{"$lte": checkOut},
		"check_out": bson.M{"$gte": checkIn},
	}
	if excludeID != "" {
		if objectID, err := primitive.ObjectIDFromHex(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": objectID}
		}
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check booking overlap: %w", err)
	}

	return count > 0, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
