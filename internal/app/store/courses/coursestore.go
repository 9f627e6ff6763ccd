// internal/app/store/courses/coursestore.go
package coursestore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateCourse is returned when the same creator (or the official
// catalog) already has a course with the code.
var ErrDuplicateCourse = errors.New("a course with this code already exists")

// MaxList caps a single catalog listing.
const MaxList = 500

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("courses")}
}

func prepare(c *models.Course) {
	c.Code = normalize.Code(c.Code)
	c.Name = normalize.Name(c.Name)
	c.NameCI = normalize.NameCI(c.Name)
	c.Description = strings.TrimSpace(c.Description)
}

// Create inserts a course. CreatedBy nil creates an official course.
func (s *Store) Create(ctx context.Context, c models.Course) (models.Course, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	prepare(&c)
	c.Active = true
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Course{}, ErrDuplicateCourse
		}
		return models.Course{}, err
	}
	return c, nil
}

// GetByID loads any course. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Course, error) {
	var c models.Course
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return models.Course{}, err
	}
	return c, nil
}

// visibleTo matches official courses plus custom courses created by viewer.
func visibleTo(viewer *primitive.ObjectID) bson.M {
	official := bson.M{"created_by": nil}
	if viewer == nil {
		return official
	}
	return bson.M{"$or": bson.A{official, bson.M{"created_by": *viewer}}}
}

// ListFilter narrows a catalog listing. A nil Viewer lists only official courses.
type ListFilter struct {
	DepartmentID    *primitive.ObjectID
	IncludeCommon   bool // with DepartmentID, also list courses with no department
	Category        string
	Search          string
	Viewer          *primitive.ObjectID
	OnlyCustom      bool // only the viewer's own custom courses
	IncludeInactive bool
}

func (f ListFilter) bson() bson.M {
	and := bson.A{}
	if f.OnlyCustom && f.Viewer != nil {
		and = append(and, bson.M{"created_by": *f.Viewer})
	} else {
		and = append(and, visibleTo(f.Viewer))
	}
	if f.DepartmentID != nil {
		if f.IncludeCommon {
			and = append(and, bson.M{"$or": bson.A{
				bson.M{"department_id": *f.DepartmentID},
				bson.M{"department_id": nil},
			}})
		} else {
			and = append(and, bson.M{"department_id": *f.DepartmentID})
		}
	}
	if f.Category != "" {
		and = append(and, bson.M{"category": f.Category})
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"code": bson.M{"$regex": regexp.QuoteMeta(normalize.Code(q))}},
			bson.M{"name_ci": bson.M{"$regex": regexp.QuoteMeta(normalize.NameCI(q))}},
		}})
	}
	if !f.IncludeInactive {
		and = append(and, bson.M{"active": true})
	}
	return bson.M{"$and": and}
}

// List returns matching courses ordered by code, capped at MaxList.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Course, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "code", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(MaxList)
	cur, err := s.c.Find(ctx, f.bson(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Course{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Catalog loads the courses named by hex ids into a map keyed by hex id.
// Ids that are not ObjectIDs (guest custom courses) are ignored.
func (s *Store) Catalog(ctx context.Context, ids []string) (map[string]models.Course, error) {
	out := make(map[string]models.Course, len(ids))
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var c models.Course
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out[c.ID.Hex()] = c
	}
	return out, cur.Err()
}

// Update is a partial update of a course.
type Update struct {
	Code                *string
	Name                *string
	Credits             *int
	DepartmentID        *primitive.ObjectID
	ClearDepartment     bool
	Category            *string
	Semesters           []string
	RecommendedYear     *int
	RecommendedSemester *string
	Prerequisites       []primitive.ObjectID
	Description         *string
	Active              *bool
}

// Update applies upd and returns the updated course.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (models.Course, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	update := bson.M{"$set": set}
	if upd.Code != nil {
		set["code"] = normalize.Code(*upd.Code)
	}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		set["name"] = name
		set["name_ci"] = normalize.NameCI(name)
	}
	if upd.Credits != nil {
		set["credits"] = *upd.Credits
	}
	if upd.ClearDepartment {
		update["$unset"] = bson.M{"department_id": ""}
	} else if upd.DepartmentID != nil {
		set["department_id"] = *upd.DepartmentID
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Semesters != nil {
		set["semesters"] = upd.Semesters
	}
	if upd.RecommendedYear != nil {
		set["recommended_year"] = *upd.RecommendedYear
	}
	if upd.RecommendedSemester != nil {
		set["recommended_semester"] = *upd.RecommendedSemester
	}
	if upd.Prerequisites != nil {
		set["prerequisites"] = upd.Prerequisites
	}
	if upd.Description != nil {
		set["description"] = strings.TrimSpace(*upd.Description)
	}
	if upd.Active != nil {
		set["active"] = *upd.Active
	}

	var c models.Course
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Course{}, ErrDuplicateCourse
		}
		return models.Course{}, err
	}
	return c, nil
}

// Upsert inserts or replaces an official course keyed by code. Used by catalog seeding.
func (s *Store) Upsert(ctx context.Context, c models.Course) (models.Course, error) {
	now := time.Now().UTC()
	prepare(&c)
	set := bson.M{
		"name":          c.Name,
		"name_ci":       c.NameCI,
		"credits":       c.Credits,
		"department_id": c.DepartmentID,
		"category":      c.Category,
		"semesters":     c.Semesters,
		"description":   c.Description,
		"active":        true,
		"updated_at":    now,
	}
	if c.RecommendedYear > 0 {
		set["recommended_year"] = c.RecommendedYear
	}
	if c.RecommendedSemester != "" {
		set["recommended_semester"] = c.RecommendedSemester
	}
	var out models.Course
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, bson.M{"code": c.Code, "created_by": nil}, bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}, opts).Decode(&out)
	return out, err
}

// Delete removes a course by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByCreator removes every custom course owned by userID.
func (s *Store) DeleteByCreator(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"created_by": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByDepartment counts courses (official or custom) in deptID.
func (s *Store) CountByDepartment(ctx context.Context, deptID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"department_id": deptID})
}

// CountOfficial counts active official courses.
func (s *Store) CountOfficial(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"created_by": nil, "active": true})
}
