// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup and by the admin CLI. Each ensure* function
is idempotent. Errors are aggregated so every problem is visible and
startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"departments", ensureDepartments},
		{"courses", ensureCourses},
		{"plans", ensurePlans},
		{"graduation_requirements", ensureGraduationRequirements},
		{"department_requirements", ensureDepartmentRequirements},
		{"feedback", ensureFeedback},
		{"patch_notes", ensurePatchNotes},
		{"patch_note_reads", ensurePatchNoteReads},
		{"academic_events", ensureAcademicEvents},
		{"oauth_states", ensureOAuthStates},
		{"audit_events", ensureAuditEvents},
	}
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	existing := listIndexes(ctx, coll)

	for _, m := range models {
		var name string
		var unique bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = boolVal(m.Options.Unique)
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if boolVal(ex.Unique) == unique && (name == "" || ex.Name == name) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			// Same keys with a different name or uniqueness: drop and recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
			zap.L().Info("dropped index for recreate",
				zap.String("collection", coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name))
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Only Google accounts carry google_id.
		{
			Keys: bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_google_id").
				SetPartialFilterExpression(bson.M{"google_id": bson.M{"$type": "string"}}),
		},
		// Admin user list and last-admin counts.
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_role_nameci_id"),
		},
		// Department statistics and delete-guard lookups.
		{
			Keys:    bson.D{{Key: "department_id", Value: 1}},
			Options: options.Index().SetName("idx_users_department"),
		},
	})
}

func ensureDepartments(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("departments"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_departments_code"),
		},
		{
			Keys:    bson.D{{Key: "college", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_departments_college_nameci"),
		},
	})
}

func ensureCourses(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("courses"), []mongo.IndexModel{
		// Official courses (created_by null) share one namespace; each
		// student's custom courses get their own.
		{
			Keys:    bson.D{{Key: "code", Value: 1}, {Key: "created_by", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_courses_code_createdby"),
		},
		{
			Keys: bson.D{
				{Key: "department_id", Value: 1},
				{Key: "category", Value: 1},
				{Key: "code", Value: 1},
			},
			Options: options.Index().SetName("idx_courses_dept_category_code"),
		},
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}, {Key: "code", Value: 1}},
			Options: options.Index().SetName("idx_courses_createdby_code"),
		},
	})
}

func ensurePlans(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("plans"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_plans_user"),
		},
		// Course statistics: how many plans include a course.
		{
			Keys:    bson.D{{Key: "semesters.courses.course_id", Value: 1}},
			Options: options.Index().SetName("idx_plans_course"),
		},
	})
}

func ensureGraduationRequirements(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("graduation_requirements"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_gradreqs_user"),
		},
	})
}

func ensureDepartmentRequirements(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("department_requirements"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "department_id", Value: 1}, {Key: "catalog_year", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_deptreqs_dept_year"),
		},
		{
			Keys:    bson.D{{Key: "college", Value: 1}},
			Options: options.Index().SetName("idx_deptreqs_college"),
		},
	})
}

func ensureFeedback(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("feedback"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_feedback_user_created"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_feedback_status_created"),
		},
		{
			Keys:    bson.D{{Key: "admin_acknowledged", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_feedback_ack_created"),
		},
	})
}

func ensurePatchNotes(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("patch_notes"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "published", Value: 1}, {Key: "published_at", Value: -1}},
			Options: options.Index().SetName("idx_patchnotes_published_at"),
		},
	})
}

func ensurePatchNoteReads(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("patch_note_reads"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "patch_note_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_patchnotereads_user_note"),
		},
	})
}

func ensureAcademicEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("academic_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "start_date", Value: 1}, {Key: "end_date", Value: 1}},
			Options: options.Index().SetName("idx_academicevents_range"),
		},
	})
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("oauth_states"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauthstates_state"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_oauthstates_expires"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_created"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_created"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_created"),
		},
	})
}
