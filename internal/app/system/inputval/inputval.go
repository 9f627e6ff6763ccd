// Package inputval validates request input with go-playground/validator.
// Field names in messages are the JSON names; messages come from the
// validator's English translations plus our custom tags.
package inputval

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/hwankr/courseplanner/internal/app/system/apperr"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

var (
	validate   *validator.Validate
	translator ut.Translator
)

// custom tags and their messages
var customTags = map[string]struct {
	fn  validator.Func
	msg string
}{
	"notblank":          {notBlank, "{0} cannot be blank"},
	"email_strict":      {func(fl validator.FieldLevel) bool { return IsValidEmail(fl.Field().String()) }, "{0} must be a valid email address"},
	"objectid":          {func(fl validator.FieldLevel) bool { return IsValidObjectID(fl.Field().String()) }, "{0} must be a valid id"},
	"category":          {stringIn(models.IsValidCategory), "{0} must be a valid course category"},
	"term":              {stringIn(models.IsValidTerm), "{0} must be one of spring, summer, fall, winter"},
	"course_status":     {stringIn(models.IsValidCourseStatus), "{0} must be one of planned, enrolled, completed, failed"},
	"grade":             {stringIn(models.IsValidGrade), "{0} must be a valid letter grade"},
	"major_type":        {stringIn(models.IsValidMajorType), "{0} must be one of single, double, minor"},
	"role":              {stringIn(models.IsValidRole), "{0} must be one of student, admin"},
	"feedback_category": {stringIn(models.IsValidFeedbackCategory), "{0} must be one of bug, feature, question, other"},
	"feedback_status":   {stringIn(models.IsValidFeedbackStatus), "{0} must be one of pending, in_progress, resolved, closed"},
	"event_category":    {stringIn(models.IsValidEventCategory), "{0} must be a valid event category"},
	"terms":             {allTerms, "{0} must only contain spring, summer, fall, winter"},
}

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	for tag, c := range customTags {
		_ = validate.RegisterValidation(tag, c.fn)
		RegisterCustomTranslation(tag, c.msg)
	}
}

// RegisterCustomTranslation sets the message for a custom tag. {0} is the
// field name and {1} the tag parameter.
func RegisterCustomTranslation(tag, text string) {
	_ = validate.RegisterTranslation(tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(tag, fe.Field(), fe.Param())
			if err != nil {
				return fe.Error()
			}
			return msg
		})
}

// RegisterStructValidation adds a struct-level rule for the given types.
func RegisterStructValidation(fn validator.StructLevelFunc, types ...interface{}) {
	validate.RegisterStructValidation(fn, types...)
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Result collects validation failures.
type Result struct {
	Errors []FieldError
}

func (r *Result) HasErrors() bool { return r != nil && len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if !r.HasErrors() {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Err returns an apperr validation error carrying the first message, or nil.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return apperr.Validation(r.First())
}

// Validate runs struct validation on v.
func Validate(v interface{}) *Result {
	res := &Result{}
	err := validate.Struct(v)
	if err == nil {
		return res
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fe.Translate(translator),
		})
	}
	return res
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields
// and oversized bodies, then validates it.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperr.Validation("Request body is required")
	}
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return apperr.Validation("Request body must contain a single JSON object")
	}
	return Validate(dst).Err()
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return apperr.Validation("Request body is required")
	case errors.As(err, &syntaxErr):
		return apperr.Validation("Request body contains malformed JSON")
	case errors.As(err, &typeErr):
		return apperr.Validation(fmt.Sprintf("%s has the wrong type", typeErr.Field))
	case errors.As(err, &maxErr):
		return apperr.Validation("Request body is too large")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return apperr.Validation("Unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field "))
	}
	return apperr.Validation("Invalid request body")
}

// IsValidObjectID reports whether s (trimmed) is a 24-char hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// ParseObjectID parses a hex id or returns a validation error naming field.
func ParseObjectID(field, s string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation(field + " must be a valid id")
	}
	return oid, nil
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func stringIn(ok func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		return ok(fl.Field().String())
	}
}

func allTerms(fl validator.FieldLevel) bool {
	terms, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, t := range terms {
		if !models.IsValidTerm(t) {
			return false
		}
	}
	return true
}
