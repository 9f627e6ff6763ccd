package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/hwankr/courseplanner/internal/app/system/normalize"
	"github.com/hwankr/courseplanner/internal/app/system/paging"
	"github.com/hwankr/courseplanner/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrLastAdmin is returned when a change would leave no admin.
	ErrLastAdmin = errors.New("cannot remove the last admin")
	errBadRole   = errors.New(`role must be "student"|"admin"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Collection exposes the users collection to multi-collection writers.
func (s *Store) Collection() *mongo.Collection { return s.c }

// GetByID loads a user by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByGoogleID looks up a Google-linked user.
func (s *Store) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"google_id": googleID}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing fields. Role defaults to student.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = normalize.NameCI(u.Name)
	u.Email = normalize.Email(u.Email)
	if u.Role == "" {
		u.Role = models.RoleStudent
	}
	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	if u.AuthMethod == "" {
		u.AuthMethod = models.AuthPassword
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// LinkGoogle attaches a Google account id to an existing user.
func (s *Store) LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"google_id":  googleID,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// ProfileUpdate holds the self-service profile fields. Nil fields are left
// unchanged; ClearSecondary removes the secondary department.
type ProfileUpdate struct {
	Name                  *string
	DepartmentID          *primitive.ObjectID
	SecondaryDepartmentID *primitive.ObjectID
	ClearSecondary        bool
	MajorType             *string
	EnrollmentYear        *int
}

// UpdateProfile applies upd and returns the updated user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		set["name"] = name
		set["name_ci"] = normalize.NameCI(name)
	}
	if upd.DepartmentID != nil {
		set["department_id"] = *upd.DepartmentID
	}
	if upd.ClearSecondary {
		unset["secondary_department_id"] = ""
	} else if upd.SecondaryDepartmentID != nil {
		set["secondary_department_id"] = *upd.SecondaryDepartmentID
	}
	if upd.MajorType != nil {
		set["major_type"] = *upd.MajorType
	}
	if upd.EnrollmentYear != nil {
		set["enrollment_year"] = *upd.EnrollmentYear
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	var u models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Onboarding holds the profile written when onboarding completes.
type Onboarding struct {
	DepartmentID          primitive.ObjectID
	SecondaryDepartmentID *primitive.ObjectID
	MajorType             string
	EnrollmentYear        int
}

// CompleteOnboarding writes the profile and marks onboarding complete. It
// matches only users who have not completed onboarding and returns
// mongo.ErrNoDocuments otherwise.
func (s *Store) CompleteOnboarding(ctx context.Context, id primitive.ObjectID, ob Onboarding) error {
	set := bson.M{
		"department_id":        ob.DepartmentID,
		"major_type":           ob.MajorType,
		"enrollment_year":      ob.EnrollmentYear,
		"onboarding_completed": true,
		"updated_at":           time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if ob.SecondaryDepartmentID != nil {
		set["secondary_department_id"] = *ob.SecondaryDepartmentID
	} else {
		update["$unset"] = bson.M{"secondary_department_id": ""}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "onboarding_completed": bson.M{"$ne": true}}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetPassword stores a new bcrypt hash and clears any lockout.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"password_hash": hash, "failed_login_attempts": 0, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"locked_until": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// CountAdmins returns the number of admin users.
func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"role": models.RoleAdmin})
}

// CountByDepartment counts users whose primary or secondary department is deptID.
func (s *Store) CountByDepartment(ctx context.Context, deptID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"department_id": deptID},
		bson.M{"secondary_department_id": deptID},
	}})
}

// Count returns the total number of users.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// EnsureNotLastAdmin returns ErrLastAdmin when u is the only admin.
func (s *Store) EnsureNotLastAdmin(ctx context.Context, u *models.User) error {
	if !u.IsAdmin() {
		return nil
	}
	n, err := s.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// SetRole changes a user's role. Demoting the last admin returns ErrLastAdmin.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) (*models.User, error) {
	if !models.IsValidRole(role) {
		return nil, errBadRole
	}
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role == role {
		return u, nil
	}
	if err := s.EnsureNotLastAdmin(ctx, u); err != nil {
		return nil, err
	}

	var out models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}}, opts).Decode(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordLoginFailure increments the failure counter. Reaching maxFailures
// locks the account until now+lockout and resets the counter. Returns
// whether this failure locked the account.
func (s *Store) RecordLoginFailure(ctx context.Context, id primitive.ObjectID, maxFailures int, lockout time.Duration, now time.Time) (bool, error) {
	var u models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{"failed_login_attempts": 1}}, opts).Decode(&u)
	if err != nil {
		return false, err
	}
	if maxFailures <= 0 || u.FailedLoginAttempts < maxFailures {
		return false, nil
	}
	until := now.Add(lockout).UTC()
	_, err = s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"failed_login_attempts": 0,
		"locked_until":          until,
		"updated_at":            now.UTC(),
	}})
	return err == nil, err
}

// RecordLoginSuccess resets the failure counter and stamps last_login_at.
func (s *Store) RecordLoginSuccess(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"failed_login_attempts": 0, "last_login_at": now.UTC()},
		"$unset": bson.M{"locked_until": ""},
	})
	return err
}

// ListFilter narrows the admin user list.
type ListFilter struct {
	Role   string
	Search string // folded prefix of the name
}

// List returns one keyset page of users ordered by name.
func (s *Store) List(ctx context.Context, f ListFilter, ks paging.Keyset) (paging.Page[models.User], error) {
	base := bson.M{}
	if f.Role != "" {
		base["role"] = f.Role
	}
	if f.Search != "" {
		base["name_ci"] = bson.M{"$regex": "^" + regexQuote(normalize.NameCI(f.Search))}
	}

	cur, err := s.c.Find(ctx, ks.Filter(base, "name_ci"), ks.FindOptions("name_ci"))
	if err != nil {
		return paging.Page[models.User]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.User
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.User]{}, err
	}
	return paging.Finish(ks, rows,
		func(u models.User) string { return u.NameCI },
		func(u models.User) primitive.ObjectID { return u.ID }), nil
}

// Delete removes a single user document.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
