// internal/app/store/caseassign/assignstore.go
package assignstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/casehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicate is returned when an insert collided with the unique
// (user_id, case_id) index: another writer granted one of the cases to
// the same user first.
var ErrDuplicate = errors.New("assignment already exists for user and case")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("case_assignments")}
}

// Create inserts a single assignment. Collisions with the unique
// compound index surface as ErrDuplicate.
func (s *Store) Create(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return a, ErrDuplicate
		}
		return a, err
	}
	return a, nil
}

// InsertBatch inserts a batch of assignments with an unordered write,
// returning the number actually inserted. When the only failures are
// duplicate-key collisions on the (user_id, case_id) index it returns
// the partial count together with ErrDuplicate so callers can detect
// the race and retry; any other error is returned as-is.
func (s *Store) InsertBatch(ctx context.Context, assigns []models.Assignment) (int, error) {
	if len(assigns) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, len(assigns))
	for i := range assigns {
		if assigns[i].ID.IsZero() {
			assigns[i].ID = primitive.NewObjectID()
		}
		if assigns[i].AssignedAt.IsZero() {
			assigns[i].AssignedAt = now
		}
		docs[i] = assigns[i]
	}

	res, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}
	if err == nil {
		return inserted, nil
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && allDupKeys(bwe) {
		return inserted, ErrDuplicate
	}
	return inserted, err
}

func allDupKeys(bwe mongo.BulkWriteException) bool {
	if len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}

// AssignedCaseIDs returns the case IDs the user currently holds.
func (s *Store) AssignedCaseIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"case_id": 1})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []struct {
		CaseID primitive.ObjectID `bson:"case_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.CaseID
	}
	return ids, nil
}

// CountByUser returns the number of assignments the user holds.
func (s *Store) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID})
}

// ExistsForUserCase reports whether the user already holds the case.
func (s *Store) ExistsForUserCase(ctx context.Context, userID, caseID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"user_id": userID, "case_id": caseID}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// ListByUser returns the user's assignments, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Assignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "assigned_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll returns every assignment.
func (s *Store) ListAll(ctx context.Context) ([]models.Assignment, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByUser removes all of a user's assignments. Returns the number deleted.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteAll removes every assignment. Returns the number deleted.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
