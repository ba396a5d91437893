package activityconfig

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rollcall/internal/adapters/storage"
	domain "rollcall/internal/domain/activityconfig"
)

// MongoStore implements Store over the "activity_configs" collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a MongoStore on db's activity_configs collection.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(storage.ActivityConfigsCollection)}
}

// List retrieves every config document.
func (s *MongoStore) List(ctx context.Context) ([]domain.Config, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var results []domain.Config
	if err := cur.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Get retrieves the config document for activity.
func (s *MongoStore) Get(ctx context.Context, activity string) (domain.Config, bool, error) {
	var c domain.Config
	err := s.coll.FindOne(ctx, bson.M{"_id": activity}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Config{}, false, nil
	}
	if err != nil {
		return domain.Config{}, false, err
	}
	return c, true, nil
}

// Save merges the password field into the activity's document, creating it if needed.
// PRE: c.Password has been validated
// POST: Document exists with c.Password; unrelated fields are preserved
func (s *MongoStore) Save(ctx context.Context, c domain.Config) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": c.Activity},
		bson.M{"$set": bson.M{"password": c.Password}},
		options.Update().SetUpsert(true),
	)
	return err
}
