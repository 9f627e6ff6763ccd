// Package onboarding tracks whether a signed-in user has finished setting
// up a profile, and guards the routes that need one.
package onboarding

import (
	"net/http"

	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/domain/models"
)

// Onboarding states.
const (
	NotStarted = "not_started"
	InProgress = "in_progress"
	Completed  = "completed"
)

// Error codes written by the guards.
const (
	CodeRequired  = "onboarding_required"
	CodeCompleted = "onboarding_completed"
)

// State returns the onboarding state of a stored user. A user with a
// department who has not completed onboarding is in progress.
func State(u models.User) string {
	return state(u.OnboardingCompleted, u.DepartmentID != nil)
}

// SessionState returns the onboarding state carried in session claims.
func SessionState(u *auth.SessionUser) string {
	if u == nil {
		return NotStarted
	}
	return state(u.OnboardingCompleted, u.DepartmentID != "")
}

func state(completed, hasDept bool) string {
	switch {
	case completed:
		return Completed
	case hasDept:
		return InProgress
	}
	return NotStarted
}

// Require lets the request through only for users who completed onboarding.
// It expects RequireSignedIn to have run.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := auth.CurrentUser(r)
		if SessionState(u) != Completed {
			jsonapi.Write(w, http.StatusForbidden, jsonapi.Envelope{
				Error: "Please complete onboarding first",
				Code:  CodeRequired,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireIncomplete rejects users who already completed onboarding.
func RequireIncomplete(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := auth.CurrentUser(r)
		if SessionState(u) == Completed {
			jsonapi.Write(w, http.StatusConflict, jsonapi.Envelope{
				Error: "Onboarding has already been completed",
				Code:  CodeCompleted,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
