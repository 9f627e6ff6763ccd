// Package statistics provides aggregate, read-only views over plans for the
// statistics and admin overview endpoints. Results are memoized in a
// ttlcache under the "stats:" prefix.
package statistics

import (
	"context"

	"github.com/hwankr/courseplanner/internal/app/system/ttlcache"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CachePrefix is the key prefix of every memoized statistic.
const CachePrefix = "stats:"

// TopN caps the course ranking in department statistics.
const TopN = 20

// CourseCount is one row of a popularity ranking.
type CourseCount struct {
	CourseID   string  `json:"courseId" bson:"_id"`
	Code       string  `json:"code" bson:"code"`
	Name       string  `json:"name" bson:"name"`
	Category   string  `json:"category" bson:"category"`
	Credits    int     `json:"credits" bson:"credits"`
	Count      int64   `json:"count" bson:"count"`
	Percentage float64 `json:"percentage" bson:"-"`
}

// DepartmentStats summarizes the plans of a department's students.
type DepartmentStats struct {
	DepartmentID string        `json:"departmentId"`
	StudentCount int64         `json:"studentCount"`
	PlanCount    int64         `json:"planCount"`
	TopCourses   []CourseCount `json:"topCourses"`
}

// CourseStats summarizes how a course is placed across all plans.
type CourseStats struct {
	CourseID  string           `json:"courseId"`
	PlanCount int64            `json:"planCount"`
	ByStatus  map[string]int64 `json:"byStatus"`
	ByTerm    map[string]int64 `json:"byTerm"`
}

// Overview is the admin dashboard summary.
type Overview struct {
	Users           int64            `json:"users"`
	Students        int64            `json:"students"`
	Admins          int64            `json:"admins"`
	Onboarded       int64            `json:"onboarded"`
	Departments     int64            `json:"departments"`
	OfficialCourses int64            `json:"officialCourses"`
	CustomCourses   int64            `json:"customCourses"`
	Plans           int64            `json:"plans"`
	Feedback        map[string]int64 `json:"feedback"`
	PatchNotes      int64            `json:"patchNotes"`
}

// Service computes statistics.
type Service struct {
	db    *mongo.Database
	cache *ttlcache.Cache
}

// New creates a Service. A nil cache disables memoization.
func New(db *mongo.Database, cache *ttlcache.Cache) *Service {
	return &Service{db: db, cache: cache}
}

// Invalidate drops every memoized statistic.
func (s *Service) Invalidate() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.DeletePrefix(CachePrefix)
}

func cached[T any](s *Service, key string, load func() (T, error)) (T, error) {
	if s.cache == nil {
		return load()
	}
	return ttlcache.GetOrLoad(s.cache, CachePrefix+key, load)
}

// Department returns the statistics of deptID.
func (s *Service) Department(ctx context.Context, deptID primitive.ObjectID) (DepartmentStats, error) {
	return cached(s, "dept:"+deptID.Hex(), func() (DepartmentStats, error) {
		return s.department(ctx, deptID)
	})
}

func (s *Service) department(ctx context.Context, deptID primitive.ObjectID) (DepartmentStats, error) {
	out := DepartmentStats{DepartmentID: deptID.Hex(), TopCourses: []CourseCount{}}

	students, err := s.db.Collection("users").CountDocuments(ctx, bson.M{
		"role":          models.RoleStudent,
		"department_id": deptID,
	})
	if err != nil {
		return out, err
	}
	out.StudentCount = students

	// Plans joined to their owners, restricted to the department.
	deptPlans := []bson.M{
		{"$lookup": bson.M{
			"from":         "users",
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "user",
		}},
		{"$unwind": "$user"},
		{"$match": bson.M{"user.department_id": deptID, "user.role": models.RoleStudent}},
	}

	countPipe := append(append([]bson.M{}, deptPlans...), bson.M{"$count": "n"})
	cur, err := s.db.Collection("plans").Aggregate(ctx, countPipe)
	if err != nil {
		return out, err
	}
	var counted []struct {
		N int64 `bson:"n"`
	}
	if err := cur.All(ctx, &counted); err != nil {
		return out, err
	}
	if len(counted) > 0 {
		out.PlanCount = counted[0].N
	}
	if out.PlanCount == 0 {
		return out, nil
	}

	rankPipe := append(append([]bson.M{}, deptPlans...),
		bson.M{"$unwind": "$semesters"},
		bson.M{"$unwind": "$semesters.courses"},
		bson.M{"$match": bson.M{"semesters.courses.status": bson.M{"$ne": models.StatusFailed}}},
		bson.M{"$group": bson.M{"_id": "$semesters.courses.course_id", "count": bson.M{"$sum": 1}}},
		bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
		bson.M{"$limit": TopN},
		bson.M{"$addFields": bson.M{"oid": bson.M{"$convert": bson.M{
			"input": "$_id", "to": "objectId", "onError": nil, "onNull": nil,
		}}}},
		bson.M{"$lookup": bson.M{
			"from":         "courses",
			"localField":   "oid",
			"foreignField": "_id",
			"as":           "course",
		}},
		bson.M{"$unwind": "$course"},
		bson.M{"$project": bson.M{
			"count":    1,
			"code":     "$course.code",
			"name":     "$course.name",
			"category": "$course.category",
			"credits":  "$course.credits",
		}},
		bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "code", Value: 1}}},
	)
	cur, err = s.db.Collection("plans").Aggregate(ctx, rankPipe)
	if err != nil {
		return out, err
	}
	if err := cur.All(ctx, &out.TopCourses); err != nil {
		return out, err
	}
	for i := range out.TopCourses {
		out.TopCourses[i].Percentage = percent(out.TopCourses[i].Count, out.PlanCount)
	}
	return out, nil
}

// Course returns placement statistics of one course.
func (s *Service) Course(ctx context.Context, courseID primitive.ObjectID) (CourseStats, error) {
	return cached(s, "course:"+courseID.Hex(), func() (CourseStats, error) {
		return s.course(ctx, courseID.Hex())
	})
}

func (s *Service) course(ctx context.Context, courseID string) (CourseStats, error) {
	out := CourseStats{
		CourseID: courseID,
		ByStatus: make(map[string]int64, len(models.AllCourseStatuses)),
		ByTerm:   make(map[string]int64, len(models.AllTerms)),
	}
	for _, st := range models.AllCourseStatuses {
		out.ByStatus[st] = 0
	}
	for _, t := range models.AllTerms {
		out.ByTerm[t] = 0
	}

	pipe := []bson.M{
		{"$match": bson.M{"semesters.courses.course_id": courseID}},
		{"$unwind": "$semesters"},
		{"$unwind": "$semesters.courses"},
		{"$match": bson.M{"semesters.courses.course_id": courseID}},
		{"$group": bson.M{
			"_id":   bson.M{"status": "$semesters.courses.status", "term": "$semesters.term"},
			"count": bson.M{"$sum": 1},
		}},
	}
	cur, err := s.db.Collection("plans").Aggregate(ctx, pipe)
	if err != nil {
		return out, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			ID struct {
				Status string `bson:"status"`
				Term   string `bson:"term"`
			} `bson:"_id"`
			Count int64 `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return out, err
		}
		out.ByStatus[row.ID.Status] += row.Count
		out.ByTerm[row.ID.Term] += row.Count
		out.PlanCount += row.Count
	}
	return out, cur.Err()
}

// Overview returns the admin dashboard counts.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	return cached(s, "overview", func() (Overview, error) {
		return s.overview(ctx)
	})
}

func (s *Service) overview(ctx context.Context) (Overview, error) {
	var o Overview
	counts := []struct {
		coll   string
		filter bson.M
		dst    *int64
	}{
		{"users", bson.M{}, &o.Users},
		{"users", bson.M{"role": models.RoleStudent}, &o.Students},
		{"users", bson.M{"role": models.RoleAdmin}, &o.Admins},
		{"users", bson.M{"onboarding_completed": true}, &o.Onboarded},
		{"departments", bson.M{}, &o.Departments},
		{"courses", bson.M{"created_by": nil}, &o.OfficialCourses},
		{"courses", bson.M{"created_by": bson.M{"$ne": nil}}, &o.CustomCourses},
		{"plans", bson.M{}, &o.Plans},
		{"patch_notes", bson.M{}, &o.PatchNotes},
	}
	for _, c := range counts {
		n, err := s.db.Collection(c.coll).CountDocuments(ctx, c.filter)
		if err != nil {
			return o, err
		}
		*c.dst = n
	}

	o.Feedback = make(map[string]int64, len(models.AllFeedbackStatuses))
	for _, st := range models.AllFeedbackStatuses {
		n, err := s.db.Collection("feedback").CountDocuments(ctx, bson.M{"status": st})
		if err != nil {
			return o, err
		}
		o.Feedback[st] = n
	}
	return o, nil
}

func percent(n, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(int64(float64(n)*1000/float64(total)+0.5)) / 10
}
