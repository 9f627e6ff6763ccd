// Package jsonapi writes the response envelope every /api endpoint uses:
//
//	{ "success": bool, "data"?: any, "error"?: string, "message"?: string, "code"?: string }
package jsonapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/app/system/auth"
	"github.com/hwankr/courseplanner/internal/app/system/errtrack"
	"go.uber.org/zap"
)

// Envelope is the JSON response body.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// Write encodes env with the given status.
func Write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func OK(w http.ResponseWriter, data interface{}) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(w http.ResponseWriter, data interface{}) {
	Write(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Message writes a success envelope carrying data and a message.
func Message(w http.ResponseWriter, data interface{}, msg string) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: data, Message: msg})
}

// Status maps an error kind to its HTTP status.
func Status(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation, apperr.KindRule:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Reporter logs and tracks errors written through Fail.
type Reporter struct {
	Log     *zap.Logger
	Tracker *errtrack.Tracker
}

// Fail writes err. Classified errors are rendered with their message and
// code; anything else is logged, reported and rendered as a generic 500.
func (rp *Reporter) Fail(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Internal(err)
	}
	if !ae.Expected() {
		rp.report(r, ae)
	}
	Write(w, Status(ae.Kind), Envelope{Success: false, Error: ae.Message, Code: ae.Code})
}

func (rp *Reporter) report(r *http.Request, ae *apperr.Error) {
	if rp == nil {
		return
	}
	reqID := uuid.NewString()
	fields := []zap.Field{zap.Error(ae.Err), zap.String("request_id", reqID)}
	var person *errtrack.Person
	if r != nil {
		fields = append(fields, zap.String("method", r.Method), zap.String("path", r.URL.Path))
		if u, ok := auth.CurrentUser(r); ok {
			fields = append(fields, zap.String("user_id", u.ID))
			person = &errtrack.Person{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}
	if rp.Log != nil {
		rp.Log.Error("unhandled request error", fields...)
	}
	cause := ae.Err
	if cause == nil {
		cause = ae
	}
	rp.Tracker.Report(r, cause, person, map[string]interface{}{"request_id": reqID})
}

// RateLimited writes a 429 with a Retry-After header.
func RateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	Write(w, http.StatusTooManyRequests, Envelope{
		Success: false,
		Error:   "Too many requests. Please try again later.",
		Code:    "rate_limited",
	})
}
