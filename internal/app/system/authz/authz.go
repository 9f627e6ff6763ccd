// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. This ensures callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in the token - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// CurrentUserID returns the signed-in user's id, or an Unauthorized error.
func CurrentUserID(r *http.Request) (primitive.ObjectID, error) {
	_, _, id, ok := UserCtx(r)
	if !ok {
		return primitive.NilObjectID, apperr.Unauthorized("Authentication required")
	}
	return id, nil
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// IsStudent reports whether the current request's user is a student.
func IsStudent(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleStudent
}

// UserDepartments returns the user's primary and secondary department ids.
// Either may be nil.
func UserDepartments(r *http.Request) (primary, secondary *primitive.ObjectID) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return nil, nil
	}
	return parseOID(user.DepartmentID), parseOID(user.SecondaryDepartmentID)
}

// CanSeeCourse reports whether the current user may read the course.
// Official courses are public; custom courses belong to their creator.
func CanSeeCourse(r *http.Request, c models.Course) bool {
	if c.IsOfficial() {
		return true
	}
	_, _, uid, ok := UserCtx(r)
	return ok && *c.CreatedBy == uid
}

// CanEditCourse reports whether the current user may change the course.
// Admins edit official courses; creators edit their own custom courses.
func CanEditCourse(r *http.Request, c models.Course) bool {
	if c.IsOfficial() {
		return IsAdmin(r)
	}
	_, _, uid, ok := UserCtx(r)
	return ok && *c.CreatedBy == uid
}

func parseOID(hex string) *primitive.ObjectID {
	if hex == "" {
		return nil
	}
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &oid
}
