// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/hwankr/courseplanner/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("departments", departmentsSchema())
	ensure("courses", coursesSchema())
	ensure("plans", plansSchema())
	ensure("graduation_requirements", graduationRequirementsSchema())
	ensure("department_requirements", departmentRequirementsSchema())
	ensure("feedback", feedbackSchema())
	ensure("patch_notes", patchNotesSchema())
	ensure("academic_events", academicEventsSchema())

	// Receipts, OAuth state and audit rows are written only by this app;
	// the collections just need to exist (transactions cannot create them).
	ensure("patch_note_reads", nil)
	ensure("oauth_states", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	intType  = bson.A{"int", "long"}
)

func enumOf(values []string) bson.M {
	a := make(bson.A, len(values))
	for i, v := range values {
		a[i] = v
	}
	return bson.M{"enum": a}
}

func credits() bson.M { return bson.M{"bsonType": intType, "minimum": 0, "maximum": 300} }

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "name", "role", "auth_method"},
			"properties": bson.M{
				"email":                 nonBlank,
				"name":                  nonBlank,
				"name_ci":               bson.M{"bsonType": "string"},
				"role":                  enumOf(models.AllRoles),
				"auth_method":           bson.M{"enum": bson.A{models.AuthPassword, models.AuthGoogle}},
				"major_type":            enumOf(models.AllMajorTypes),
				"department_id":         bson.M{"bsonType": bson.A{"objectId", "null"}},
				"failed_login_attempts": bson.M{"bsonType": intType, "minimum": 0},
			},
		},
	}
}

func departmentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"code", "name"},
			"properties": bson.M{
				"code":    nonBlank,
				"name":    nonBlank,
				"college": bson.M{"bsonType": "string"},
				"active":  bson.M{"bsonType": "bool"},
			},
		},
	}
}

func coursesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"code", "name", "credits", "category"},
			"properties": bson.M{
				"code":          nonBlank,
				"name":          nonBlank,
				"credits":       bson.M{"bsonType": intType, "minimum": 0, "maximum": 30},
				"category":      enumOf(models.AllCategories),
				"semesters":     bson.M{"bsonType": "array", "items": enumOf(models.AllTerms)},
				"department_id": bson.M{"bsonType": bson.A{"objectId", "null"}},
				"created_by":    bson.M{"bsonType": bson.A{"objectId", "null"}},
			},
		},
	}
}

func plansSchema() bson.M {
	plannedCourse := bson.M{
		"bsonType": "object",
		"required": bson.A{"course_id", "status"},
		"properties": bson.M{
			"course_id": nonBlank,
			"status":    enumOf(models.AllCourseStatuses),
		},
	}
	semester := bson.M{
		"bsonType": "object",
		"required": bson.A{"year", "term", "courses"},
		"properties": bson.M{
			"year":    bson.M{"bsonType": intType},
			"term":    enumOf(models.AllTerms),
			"courses": bson.M{"bsonType": "array", "items": plannedCourse},
		},
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "semesters"},
			"properties": bson.M{
				"user_id":   bson.M{"bsonType": "objectId"},
				"semesters": bson.M{"bsonType": "array", "items": semester},
			},
		},
	}
}

func graduationRequirementsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "major_type", "total_credits"},
			"properties": bson.M{
				"user_id":               bson.M{"bsonType": "objectId"},
				"major_type":            enumOf(models.AllMajorTypes),
				"total_credits":         credits(),
				"primary_major_credits": credits(),
				"general_credits":       credits(),
			},
		},
	}
}

func departmentRequirementsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"department_id", "catalog_year"},
			"properties": bson.M{
				"department_id": bson.M{"bsonType": "objectId"},
				"catalog_year":  bson.M{"bsonType": intType, "minimum": 1900},
			},
		},
	}
}

func feedbackSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "category", "content", "status"},
			"properties": bson.M{
				"user_id":  bson.M{"bsonType": "objectId"},
				"category": enumOf(models.AllFeedbackCategories),
				"content":  nonBlank,
				"status":   enumOf(models.AllFeedbackStatuses),
			},
		},
	}
}

func patchNotesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"version", "title", "published"},
			"properties": bson.M{
				"version":   nonBlank,
				"title":     nonBlank,
				"published": bson.M{"bsonType": "bool"},
			},
		},
	}
}

func academicEventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "start_date", "end_date", "category"},
			"properties": bson.M{
				"title":      nonBlank,
				"start_date": bson.M{"bsonType": "date"},
				"end_date":   bson.M{"bsonType": "date"},
				"category":   enumOf(models.AllEventCategories),
			},
		},
	}
}
