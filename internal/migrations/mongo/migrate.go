package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingrepo "staybook/internal/bookings/repository"
	"staybook/internal/migrations/mongo/validators"
	resourcerepo "staybook/internal/resources/repository"
	"staybook/pkg/logger"
)

var (
	BookingsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "check_in", Value: 1},
				{Key: "check_out", Value: 1},
			},
			Options: options.Index().
				SetName("room_overlap").
				SetPartialFilterExpression(bson.M{"kind": "room"}),
		},
		{
			Keys: bson.D{
				{Key: "experience_id", Value: 1},
				{Key: "experience_time", Value: 1},
			},
			Options: options.Index().
				SetName("experience_time").
				SetPartialFilterExpression(bson.M{"kind": "experience"}),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "kind", Value: 1},
			},
			Options: options.Index().SetName("user_kind"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("created_at"),
		},
	}

	// Expired locks are reaped by the TTL monitor; the repository also purges
	// them on acquire since the monitor only runs once a minute.
	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("expires_at_ttl").SetExpireAfterSeconds(0),
		},
	}

	RoomsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	}

	ExperiencesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func Collections() map[string]collectionDef {
	return map[string]collectionDef{
		bookingrepo.CollectionName: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		bookingrepo.LockCollectionName: {
			Indexes:   BookingLocksIndexes,
			Validator: validators.BookingLockValidator,
		},
		bookingrepo.RoomGuardCollectionName: {
			Validator: validators.RoomGuardValidator,
		},
		resourcerepo.RoomsCollection: {
			Indexes:   RoomsIndexes,
			Validator: validators.RoomValidator,
		},
		resourcerepo.ExperiencesCollection: {
			Indexes:   ExperiencesIndexes,
			Validator: validators.ExperienceValidator,
		},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for name, def := range Collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All Mongo migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
