// internal/app/store/plans/planstore.go
package planstore

import (
	"context"
	"errors"
	"time"

	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/domain/planner"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned by Adapter when the addressed plan is not the
// caller's plan.
var ErrNotFound = errors.New("plan not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("plans")}
}

// FindOrCreate returns the user's plan, creating an empty one on first use.
func (s *Store) FindOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Plan, error) {
	now := time.Now().UTC()
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var p models.Plan
	err := s.c.FindOneAndUpdate(ctx, bson.M{"user_id": userID}, bson.M{
		"$setOnInsert": bson.M{
			"semesters":  bson.A{},
			"created_at": now,
			"updated_at": now,
		},
	}, opts).Decode(&p)
	if err != nil {
		return nil, err
	}
	if p.Semesters == nil {
		p.Semesters = []models.Semester{}
	}
	return &p, nil
}

// GetByUser loads the user's plan. Returns mongo.ErrNoDocuments if none exists.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.Plan, error) {
	var p models.Plan
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveSemesters replaces the semesters of plan id.
func (s *Store) SaveSemesters(ctx context.Context, id primitive.ObjectID, semesters []models.Semester) error {
	if semesters == nil {
		semesters = []models.Semester{}
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"semesters":  semesters,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteByUser removes the user's plan.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// RemoveCourseEverywhere pulls courseID out of every plan. Used when a
// course is deleted from the catalog.
func (s *Store) RemoveCourseEverywhere(ctx context.Context, courseID string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"semesters.courses.course_id": courseID},
		bson.M{
			"$pull": bson.M{"semesters.$[].courses": bson.M{"course_id": courseID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Adapter is the Mongo-backed planner.Storage for one user. When PlanID is
// set, Load fails with ErrNotFound unless it is the user's plan.
type Adapter struct {
	Store  *Store
	UserID primitive.ObjectID
	PlanID *primitive.ObjectID
}

var _ planner.Storage = (*Adapter)(nil)

func (a *Adapter) Load(ctx context.Context) (*models.Plan, error) {
	p, err := a.Store.FindOrCreate(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	if a.PlanID != nil && *a.PlanID != p.ID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (a *Adapter) Save(ctx context.Context, p *models.Plan) error {
	return a.Store.SaveSemesters(ctx, p.ID, p.Semesters)
}
