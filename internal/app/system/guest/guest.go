// Package guest keeps the account-less planner state in signed cookies.
//
// Cookies:
//
//	guest-session     non-httpOnly flag the UI reads to know guest mode is on
//	guest-profile     department, secondary department, major type, enrollment year
//	guest-plans       semesters and placed courses, continued in guest-plans-1..5
//	guest-courses     guest custom courses
//	guest-graduation  graduation requirement
//
// Every cookie except guest-session is a gorilla session signed (and
// encrypted when a block key is configured) by securecookie. Profile,
// courses and graduation hold the JSON of the state; plans use a compact
// text form.
package guest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/hwankr/courseplanner/internal/app/system/jsonapi"
	"github.com/hwankr/courseplanner/internal/domain/models"
)

// Cookie names.
const (
	CookieSession     = "guest-session"
	CookieProfile     = "guest-profile"
	CookiePlans       = "guest-plans"
	CookieCourses     = "guest-courses"
	CookieGraduation  = "guest-graduation"
	valueKey          = "v"
	defaultMaxAgeDays = 30
	// Browsers drop cookies whose name and value exceed about 4KB.
	maxCookieBytes = 4000
)

// MaxCustomCourses caps guest custom courses so the cookie stays under the
// browser size limit.
const MaxCustomCourses = 20

// ErrTooLarge is returned when state no longer fits in a cookie.
var ErrTooLarge = errors.New("guest data is too large to store; sign up to keep planning")

// Profile is the guest equivalent of the onboarding profile.
type Profile struct {
	DepartmentID          string `json:"departmentId"`
	SecondaryDepartmentID string `json:"secondaryDepartmentId,omitempty"`
	MajorType             string `json:"majorType"`
	EnrollmentYear        int    `json:"enrollmentYear,omitempty"`
}

// Complete reports whether a department has been chosen.
func (p Profile) Complete() bool { return p.DepartmentID != "" }

// Store reads and writes guest cookies.
type Store struct {
	cookies *sessions.CookieStore
	secure  bool
	maxAge  int
}

// New creates a Store. key must be 32 or 64 bytes: the first 32 sign, the
// optional second 32 encrypt. An empty key generates a random signing key,
// which invalidates guest cookies on every restart.
func New(key []byte, secure bool) *Store {
	var hashKey, blockKey []byte
	switch len(key) {
	case 64:
		hashKey, blockKey = key[:32], key[32:]
	case 32:
		hashKey = key
	default:
		hashKey = securecookie.GenerateRandomKey(32)
	}

	codecs := securecookie.CodecsFromPairs(hashKey, blockKey)
	maxAge := defaultMaxAgeDays * 24 * int(time.Hour/time.Second)
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(maxAge)
		}
	}

	cs := &sessions.CookieStore{
		Codecs: codecs,
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   maxAge,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		},
	}
	return &Store{cookies: cs, secure: secure, maxAge: maxAge}
}

// load decodes the JSON value of cookie name into dst. A missing or
// tampered cookie reports false.
func (s *Store) load(r *http.Request, name string, dst interface{}) bool {
	sess, err := s.cookies.Get(r, name)
	if err != nil || sess.IsNew {
		return false
	}
	raw, ok := sess.Values[valueKey].(string)
	if !ok || raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}

func (s *Store) save(w http.ResponseWriter, r *http.Request, name string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	vals := map[interface{}]interface{}{valueKey: string(b)}
	if err := s.fits(name, vals); err != nil {
		return err
	}
	return s.write(w, r, name, vals)
}

// fits encodes vals the way the cookie store will and reports ErrTooLarge
// when the result would not survive in a browser.
func (s *Store) fits(name string, vals map[interface{}]interface{}) error {
	encoded, err := securecookie.EncodeMulti(name, vals, s.cookies.Codecs...)
	if err != nil {
		return sizeErr(err)
	}
	if len(name)+len(encoded) > maxCookieBytes {
		return ErrTooLarge
	}
	return nil
}

// write replaces the session values of cookie name and sets the cookie.
func (s *Store) write(w http.ResponseWriter, r *http.Request, name string, vals map[interface{}]interface{}) error {
	sess, _ := s.cookies.Get(r, name) // a decode error still yields a fresh session
	sess.Values = vals
	sess.Options.MaxAge = s.maxAge
	if err := sess.Save(r, w); err != nil {
		return sizeErr(err)
	}
	return nil
}

// sizeErr maps securecookie's length error onto ErrTooLarge. securecookie
// formats that error into a plain string, so it can only be matched by text.
func sizeErr(err error) error {
	if strings.Contains(err.Error(), "value is too long") {
		return ErrTooLarge
	}
	return err
}

func (s *Store) expire(w http.ResponseWriter, name string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: httpOnly,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Active reports whether the guest-session flag is set.
func Active(r *http.Request) bool {
	c, err := r.Cookie(CookieSession)
	return err == nil && c.Value == "1"
}

// Start sets the guest-session flag.
func (s *Store) Start(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieSession,
		Value:    "1",
		Path:     "/",
		MaxAge:   s.maxAge,
		HttpOnly: false,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear removes every guest cookie.
func (s *Store) Clear(w http.ResponseWriter) {
	s.expire(w, CookieSession, false)
	for _, name := range []string{CookieProfile, CookieCourses, CookieGraduation} {
		s.expire(w, name, true)
	}
	for i := 0; i < maxPlanChunks; i++ {
		s.expire(w, planChunkName(i), true)
	}
}

// Profile returns the saved profile.
func (s *Store) Profile(r *http.Request) (Profile, bool) {
	var p Profile
	if !s.load(r, CookieProfile, &p) {
		return Profile{}, false
	}
	return p, true
}

// SaveProfile stores p and turns guest mode on.
func (s *Store) SaveProfile(w http.ResponseWriter, r *http.Request, p Profile) error {
	if err := s.save(w, r, CookieProfile, p); err != nil {
		return err
	}
	s.Start(w)
	return nil
}

// Requirement returns the saved graduation requirement.
func (s *Store) Requirement(r *http.Request) (*models.GraduationRequirement, bool) {
	var g models.GraduationRequirement
	if !s.load(r, CookieGraduation, &g) {
		return nil, false
	}
	return &g, true
}

// SaveRequirement stores g.
func (s *Store) SaveRequirement(w http.ResponseWriter, r *http.Request, g models.GraduationRequirement) error {
	return s.save(w, r, CookieGraduation, g)
}

// guestCourse is the cookie form of a custom course.
type guestCourse struct {
	ID       string `json:"i"`
	Code     string `json:"c"`
	Name     string `json:"n"`
	Credits  int    `json:"r"`
	Category string `json:"k"`
}

// Courses returns the guest custom courses.
func (s *Store) Courses(r *http.Request) []GuestCourse {
	var raw []guestCourse
	if !s.load(r, CookieCourses, &raw) {
		return []GuestCourse{}
	}
	out := make([]GuestCourse, len(raw))
	for i, c := range raw {
		out[i] = GuestCourse(c)
	}
	return out
}

// SaveCourses stores the guest custom courses.
func (s *Store) SaveCourses(w http.ResponseWriter, r *http.Request, cs []GuestCourse) error {
	raw := make([]guestCourse, len(cs))
	for i, c := range cs {
		raw[i] = guestCourse(c)
	}
	return s.save(w, r, CookieCourses, raw)
}

// GuestCourse is a custom course created in guest mode. Its ID carries the
// "guest-" prefix so it never collides with catalog ids.
type GuestCourse struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Credits  int    `json:"credits"`
	Category string `json:"category"`
}

// Course converts a guest course into the catalog shape used by the planner.
func (c GuestCourse) Course() models.Course {
	return models.Course{
		Code:     c.Code,
		Name:     c.Name,
		Credits:  c.Credits,
		Category: c.Category,
		Active:   true,
	}
}

// RequireProfile rejects guest requests until a department has been chosen.
func (s *Store) RequireProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := s.Profile(r); !ok || !p.Complete() {
			jsonapi.Write(w, http.StatusForbidden, jsonapi.Envelope{
				Error: "Please choose a department first",
				Code:  "guest_profile_required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
