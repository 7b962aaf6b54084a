package repository

import (
	"context"
	"errors"
	"fmt"
	"staybook/pkg/config"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	RoomsCollection       = "Rooms"
	ExperiencesCollection = "Experiences"
)

type mongoResourceRepository struct {
	cfg         *config.Config
	rooms       *mongo.Collection
	experiences *mongo.Collection
}

func NewMongoResourceRepository(cfg *config.Config) ResourceRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoResourceRepository{
		cfg:         cfg,
		rooms:       db.Collection(RoomsCollection),
		experiences: db.Collection(ExperiencesCollection),
	}
}

// idFilter matches ObjectID keys and plain string keys.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}

func (r *mongoResourceRepository) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	if err := r.findOne(ctx, r.rooms, id, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *mongoResourceRepository) GetExperience(ctx context.Context, id string) (*model.Experience, error) {
	var exp model.Experience
	if err := r.findOne(ctx, r.experiences, id, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (r *mongoResourceRepository) findOne(ctx context.Context, coll *mongo.Collection, id string, out any) error {
	if id == "" {
		return ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := coll.FindOne(ctx, idFilter(id)).Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find %s: %w", coll.Name(), err)
	}
	return nil
}
