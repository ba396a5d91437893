package activity

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rollcall/internal/adapters/storage"
	"rollcall/internal/domain/attendance"
)

// MongoStore implements Store over the "activities" document collection.
// Attendance commits use a multi-document transaction, which requires a replica set.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore creates a MongoStore on db's activities collection.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{client: client, coll: db.Collection(storage.ActivitiesCollection)}
}

// List retrieves every record document.
// PRE: none
// POST: Returns records ordered by _id
func (s *MongoStore) List(ctx context.Context) ([]attendance.Record, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var records []attendance.Record
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetByID retrieves one record document.
// PRE: id is non-empty
// POST: Returns the record or ErrNotFound
func (s *MongoStore) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	var r attendance.Record
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return attendance.Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return r, err
}

// Save upserts identity and schedule fields without touching the attendance map.
// PRE: r has been validated
// POST: Document exists with the given fields; attendance is created empty on insert
func (s *MongoStore) Save(ctx context.Context, r attendance.Record) error {
	update := bson.M{
		"$set": bson.M{
			"activity":        r.Activity,
			"dayIds":          nonNilInts(r.DayIDs),
			"specificDates":   nonNilStrings(r.SpecificDates),
			"verifiedClass":   r.VerifiedClass,
			"verifiedClassNo": r.VerifiedClassNo,
			"verifiedName":    r.VerifiedName,
			"sex":             r.Sex,
			"rawPhone":        r.RawPhone,
			"location":        r.Location,
			"time":            r.Time,
		},
		"$setOnInsert": bson.M{"attendance": bson.M{}},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": r.ID}, update, options.Update().SetUpsert(true))
	return err
}

// Delete removes a record document.
// PRE: id is non-empty
// POST: Document with given id is removed
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ApplyAttendance sets attendance.<date> on every entry's document inside one transaction.
// PRE: entries is non-empty; statuses are valid
// POST: All field updates commit together, or the transaction aborts
func (s *MongoStore) ApplyAttendance(ctx context.Context, date string, entries []attendance.Entry) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	field := "attendance." + date
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, e := range entries {
			res, err := s.coll.UpdateOne(sc,
				bson.M{"_id": e.RecordID},
				bson.M{"$set": bson.M{field: string(e.Status)}},
			)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, fmt.Errorf("%s: %w", e.RecordID, ErrNotFound)
			}
		}
		return nil, nil
	})
	return err
}
