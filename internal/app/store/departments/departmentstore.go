// internal/app/store/departments/departmentstore.go
package departmentstore

import (
	"context"
	"errors"
	"time"

	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateDepartment = errors.New("a department with this code already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("departments")}
}

func (s *Store) Create(ctx context.Context, d models.Department) (models.Department, error) {
	now := time.Now().UTC()
	d.ID = primitive.NewObjectID()
	d.Code = normalize.Code(d.Code)
	d.Name = normalize.Name(d.Name)
	d.NameCI = normalize.NameCI(d.Name)
	d.College = normalize.Name(d.College)
	d.CreatedAt = now
	d.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Department{}, ErrDuplicateDepartment
		}
		return models.Department{}, err
	}
	return d, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Department, error) {
	var d models.Department
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return models.Department{}, err
	}
	return d, nil
}

// GetByCode looks a department up by its (uppercased) code.
func (s *Store) GetByCode(ctx context.Context, code string) (models.Department, error) {
	var d models.Department
	if err := s.c.FindOne(ctx, bson.M{"code": normalize.Code(code)}).Decode(&d); err != nil {
		return models.Department{}, err
	}
	return d, nil
}

// Exists reports whether an active department with id exists.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"_id": id, "active": true},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns departments ordered by college then name. activeOnly hides
// retired departments; college filters when non-empty.
func (s *Store) List(ctx context.Context, college string, activeOnly bool) ([]models.Department, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	if college != "" {
		filter["college"] = college
	}
	opts := options.Find().SetSort(bson.D{{Key: "college", Value: 1}, {Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Department{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update is a partial update of a department.
type Update struct {
	Code    *string
	Name    *string
	College *string
	Active  *bool
}

// Update modifies a department's mutable fields and returns the result.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (models.Department, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Code != nil {
		set["code"] = normalize.Code(*upd.Code)
	}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		set["name"] = name
		set["name_ci"] = normalize.NameCI(name)
	}
	if upd.College != nil {
		set["college"] = normalize.Name(*upd.College)
	}
	if upd.Active != nil {
		set["active"] = *upd.Active
	}

	var d models.Department
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&d)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Department{}, ErrDuplicateDepartment
		}
		return models.Department{}, err
	}
	return d, nil
}

// Upsert inserts or updates a department keyed by code. Used by catalog seeding.
func (s *Store) Upsert(ctx context.Context, d models.Department) (models.Department, error) {
	now := time.Now().UTC()
	code := normalize.Code(d.Code)
	name := normalize.Name(d.Name)
	var out models.Department
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, bson.M{"code": code}, bson.M{
		"$set": bson.M{
			"name":       name,
			"name_ci":    normalize.NameCI(name),
			"college":    normalize.Name(d.College),
			"active":     true,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}, opts).Decode(&out)
	return out, err
}

// Delete removes a department by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the number of departments matching filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
