// internal/app/store/gradreqs/gradreqstore.go
package gradreqstore

import (
	"context"
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
	return &Store{c: db.Collection("graduation_requirements")}
}

// GetByUser loads the user's requirement. Returns mongo.ErrNoDocuments if
// the user has not set one yet.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.GraduationRequirement, error) {
	var g models.GraduationRequirement
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Upsert writes the major type, targets and offsets of g for userID,
// creating the document on first use.
func (s *Store) Upsert(ctx context.Context, userID primitive.ObjectID, g models.GraduationRequirement) (*models.GraduationRequirement, error) {
	now := time.Now().UTC()
	t, e := g.RequirementTargets, g.EarnedOffsets
	set := bson.M{
		"major_type":                   g.MajorType,
		"total_credits":                t.TotalCredits,
		"primary_major_credits":        t.PrimaryMajorCredits,
		"primary_major_required_min":   t.PrimaryMajorRequiredMin,
		"general_credits":              t.GeneralCredits,
		"secondary_major_credits":      t.SecondaryMajorCredits,
		"secondary_major_required_min": t.SecondaryMajorRequiredMin,
		"minor_credits":                t.MinorCredits,
		"minor_required_min":           t.MinorRequiredMin,

		"earned_total_credits":                  e.EarnedTotalCredits,
		"earned_primary_major_credits":          e.EarnedPrimaryMajorCredits,
		"earned_primary_major_required_credits": e.EarnedPrimaryMajorRequiredCredits,
		"earned_general_credits":                e.EarnedGeneralCredits,
		"earned_secondary_major_credits":        e.EarnedSecondaryMajorCredits,
		"earned_secondary_required_credits":     e.EarnedSecondaryRequiredCredits,
		"earned_minor_credits":                  e.EarnedMinorCredits,
		"earned_minor_required_credits":         e.EarnedMinorRequiredCredits,

		"updated_at": now,
	}

	var out models.GraduationRequirement
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, bson.M{"user_id": userID}, bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}, opts).Decode(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteByUser removes the user's requirement.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
