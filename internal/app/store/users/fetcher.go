package userstore

import (
	"context"

	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/app/system/timeouts"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher. The session manager calls it on
// every signed-in request so deletions and role, department or onboarding
// changes take effect immediately.
type Fetcher struct {
	users *mongo.Collection
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection("users")}
}

// FetchUser returns nil if the user is gone or any error occurs.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":                     1,
		"name":                    1,
		"email":                   1,
		"role":                    1,
		"department_id":           1,
		"secondary_department_id": 1,
		"major_type":              1,
		"onboarding_completed":    1,
	})
	if err := f.users.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&u); err != nil {
		return nil
	}
	su := SessionUser(u)
	return &su
}

// SessionUser converts a stored user into session claims.
func SessionUser(u models.User) auth.SessionUser {
	su := auth.SessionUser{
		ID:                  u.ID.Hex(),
		Name:                u.Name,
		Email:               u.Email,
		Role:                u.Role,
		MajorType:           u.MajorType,
		OnboardingCompleted: u.OnboardingCompleted,
	}
	if u.DepartmentID != nil {
		su.DepartmentID = u.DepartmentID.Hex()
	}
	if u.SecondaryDepartmentID != nil {
		su.SecondaryDepartmentID = u.SecondaryDepartmentID.Hex()
	}
	return su
}
