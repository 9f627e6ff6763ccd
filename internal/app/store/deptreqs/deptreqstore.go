// internal/app/store/deptreqs/deptreqstore.go
package deptreqstore

import (
	"context"
	"errors"
	"time"

	"github.com/hwankr/courseplanner/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicate is returned when a department already has a table for the catalog year.
var ErrDuplicate = errors.New("a requirement table for this department and catalog year already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("department_requirements")}
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	College      string
	DepartmentID *primitive.ObjectID
	CatalogYear  int
}

// List returns tables ordered by college, department and newest catalog year first.
func (s *Store) List(ctx context.Context, f Filter) ([]models.DepartmentRequirement, error) {
	filter := bson.M{}
	if f.College != "" {
		filter["college"] = f.College
	}
	if f.DepartmentID != nil {
		filter["department_id"] = *f.DepartmentID
	}
	if f.CatalogYear > 0 {
		filter["catalog_year"] = f.CatalogYear
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "college", Value: 1},
		{Key: "department_id", Value: 1},
		{Key: "catalog_year", Value: -1},
	})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.DepartmentRequirement{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.DepartmentRequirement, error) {
	var d models.DepartmentRequirement
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return models.DepartmentRequirement{}, err
	}
	return d, nil
}

// Defaults returns the table that applies to a student of deptID who
// enrolled in year: the newest catalog year not after year, otherwise the
// oldest table on file. Returns mongo.ErrNoDocuments when the department
// has no table.
func (s *Store) Defaults(ctx context.Context, deptID primitive.ObjectID, year int) (models.DepartmentRequirement, error) {
	var d models.DepartmentRequirement
	if year > 0 {
		err := s.c.FindOne(ctx,
			bson.M{"department_id": deptID, "catalog_year": bson.M{"$lte": year}},
			options.FindOne().SetSort(bson.D{{Key: "catalog_year", Value: -1}}),
		).Decode(&d)
		if err == nil {
			return d, nil
		}
		if err != mongo.ErrNoDocuments {
			return models.DepartmentRequirement{}, err
		}
	}
	err := s.c.FindOne(ctx,
		bson.M{"department_id": deptID},
		options.FindOne().SetSort(bson.D{{Key: "catalog_year", Value: 1}}),
	).Decode(&d)
	if err != nil {
		return models.DepartmentRequirement{}, err
	}
	return d, nil
}

func (s *Store) Create(ctx context.Context, d models.DepartmentRequirement) (models.DepartmentRequirement, error) {
	now := time.Now().UTC()
	d.ID = primitive.NewObjectID()
	d.CreatedAt = now
	d.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		if wafflemongo.IsDup(err) {
			return models.DepartmentRequirement{}, ErrDuplicate
		}
		return models.DepartmentRequirement{}, err
	}
	return d, nil
}

// Update replaces the college, catalog year and per-major targets of id.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, d models.DepartmentRequirement) (models.DepartmentRequirement, error) {
	var out models.DepartmentRequirement
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"college":       d.College,
		"department_id": d.DepartmentID,
		"catalog_year":  d.CatalogYear,
		"single":        d.Single,
		"double":        d.Double,
		"minor":         d.Minor,
		"updated_at":    time.Now().UTC(),
	}}, opts).Decode(&out)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.DepartmentRequirement{}, ErrDuplicate
		}
		return models.DepartmentRequirement{}, err
	}
	return out, nil
}

// Upsert writes a table keyed by (department, catalog year). Used by catalog seeding.
func (s *Store) Upsert(ctx context.Context, d models.DepartmentRequirement) (models.DepartmentRequirement, error) {
	now := time.Now().UTC()
	var out models.DepartmentRequirement
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"department_id": d.DepartmentID, "catalog_year": d.CatalogYear},
		bson.M{
			"$set": bson.M{
				"college":    d.College,
				"single":     d.Single,
				"double":     d.Double,
				"minor":      d.Minor,
				"updated_at": now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		}, opts).Decode(&out)
	return out, err
}

// Delete removes a table by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByDepartment removes every table of deptID.
func (s *Store) DeleteByDepartment(ctx context.Context, deptID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"department_id": deptID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
