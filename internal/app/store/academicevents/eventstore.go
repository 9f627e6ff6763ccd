// internal/app/store/academicevents/eventstore.go
package eventstore

import (
	"context"
	"strings"
	"time"

	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("academic_events")}
}

func (s *Store) Create(ctx context.Context, e models.AcademicEvent) (models.AcademicEvent, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.Title = strings.TrimSpace(e.Title)
	e.StartDate = e.StartDate.UTC()
	e.EndDate = e.EndDate.UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.AcademicEvent{}, err
	}
	return e, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.AcademicEvent, error) {
	var e models.AcademicEvent
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return models.AcademicEvent{}, err
	}
	return e, nil
}

// ListRange returns events that overlap [from, to), ordered by start date.
// A zero from or to leaves that side open.
func (s *Store) ListRange(ctx context.Context, from, to time.Time) ([]models.AcademicEvent, error) {
	filter := bson.M{}
	if !to.IsZero() {
		filter["start_date"] = bson.M{"$lt": to.UTC()}
	}
	if !from.IsZero() {
		filter["end_date"] = bson.M{"$gte": from.UTC()}
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.AcademicEvent{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the editable fields of an event.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, e models.AcademicEvent) (models.AcademicEvent, error) {
	var out models.AcademicEvent
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"title":       strings.TrimSpace(e.Title),
		"description": e.Description,
		"start_date":  e.StartDate.UTC(),
		"end_date":    e.EndDate.UTC(),
		"category":    e.Category,
		"updated_at":  time.Now().UTC(),
	}}, opts).Decode(&out)
	if err != nil {
		return models.AcademicEvent{}, err
	}
	return out, nil
}

// Delete removes an event by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
