package guest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/hwankr/courseplanner/internal/domain/planner"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// A plan is stored as a compact text payload split across guest-plans,
// guest-plans-1, ... guest-plans-N. The first chunk records the chunk count;
// every chunk carries the same set id so chunks from different saves are
// never stitched together.
const (
	planChunkBytes = 1800
	maxPlanChunks  = 6
	chunkCountKey  = "n"
	chunkSetKey    = "s"
)

// Payload grammar:
//
//	plan     = semester *( ";" semester )
//	semester = year "." term ":" [ course *( "," course ) ]
//	course   = id "!" status [ "!" grade ]
//
// Known terms and statuses are written as their index digit. Catalog ids
// (24-char hex ObjectIDs) are written as "*" plus 16 chars of base64.
// Everything else is query-escaped.
const objectIDMark = "*"

var errBadPayload = errors.New("guest: malformed plan payload")

func planChunkName(i int) string {
	if i == 0 {
		return CookiePlans
	}
	return fmt.Sprintf("%s-%d", CookiePlans, i)
}

// Plan returns the guest plan, empty when none is saved or the stored plan
// cannot be read.
func (s *Store) Plan(r *http.Request) *models.Plan {
	p := &models.Plan{Semesters: []models.Semester{}}
	payload, ok := s.loadChunks(r)
	if !ok {
		return p
	}
	sems, err := decodePlan(payload)
	if err != nil {
		return p
	}
	p.Semesters = sems
	return p
}

// SavePlan stores p's semesters. It returns ErrTooLarge, writing nothing,
// when the plan does not fit in the available cookies.
func (s *Store) SavePlan(w http.ResponseWriter, r *http.Request, p *models.Plan) error {
	return s.saveChunks(w, r, encodePlan(p.Semesters))
}

func (s *Store) saveChunks(w http.ResponseWriter, r *http.Request, payload string) error {
	n := (len(payload) + planChunkBytes - 1) / planChunkBytes
	if n == 0 {
		n = 1
	}
	if n > maxPlanChunks {
		return ErrTooLarge
	}

	set := uuid.NewString()[:8]
	chunks := make([]map[interface{}]interface{}, n)
	for i := range chunks {
		end := (i + 1) * planChunkBytes
		if end > len(payload) {
			end = len(payload)
		}
		v := map[interface{}]interface{}{
			valueKey:    payload[i*planChunkBytes : end],
			chunkSetKey: set,
		}
		if i == 0 {
			v[chunkCountKey] = n
		}
		if err := s.fits(planChunkName(i), v); err != nil {
			return err
		}
		chunks[i] = v
	}

	for i, v := range chunks {
		if err := s.write(w, r, planChunkName(i), v); err != nil {
			return err
		}
	}
	for i := n; i < maxPlanChunks; i++ {
		name := planChunkName(i)
		if _, err := r.Cookie(name); err == nil {
			s.expire(w, name, true)
		}
	}
	return nil
}

func (s *Store) loadChunks(r *http.Request) (string, bool) {
	head, err := s.cookies.Get(r, CookiePlans)
	if err != nil || head.IsNew {
		return "", false
	}
	n, ok := head.Values[chunkCountKey].(int)
	if !ok || n < 1 || n > maxPlanChunks {
		return "", false
	}
	set, _ := head.Values[chunkSetKey].(string)

	var b strings.Builder
	for i := 0; i < n; i++ {
		sess := head
		if i > 0 {
			if sess, err = s.cookies.Get(r, planChunkName(i)); err != nil || sess.IsNew {
				return "", false
			}
		}
		if got, _ := sess.Values[chunkSetKey].(string); got != set {
			return "", false
		}
		part, ok := sess.Values[valueKey].(string)
		if !ok {
			return "", false
		}
		b.WriteString(part)
	}
	return b.String(), true
}

func encodePlan(sems []models.Semester) string {
	var b strings.Builder
	for i, sem := range sems {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.Itoa(sem.Year))
		b.WriteByte('.')
		b.WriteString(encodeEnum(sem.Term, models.AllTerms))
		b.WriteByte(':')
		for j, c := range sem.Courses {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(encodeID(c.CourseID))
			b.WriteByte('!')
			b.WriteString(encodeEnum(c.Status, models.AllCourseStatuses))
			if c.Grade != "" {
				b.WriteByte('!')
				b.WriteString(url.QueryEscape(c.Grade))
			}
		}
	}
	return b.String()
}

func decodePlan(payload string) ([]models.Semester, error) {
	sems := []models.Semester{}
	if payload == "" {
		return sems, nil
	}
	for _, rawSem := range strings.Split(payload, ";") {
		header, body, ok := strings.Cut(rawSem, ":")
		if !ok {
			return nil, errBadPayload
		}
		yearStr, termStr, ok := strings.Cut(header, ".")
		if !ok {
			return nil, errBadPayload
		}
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			return nil, errBadPayload
		}
		term, err := decodeEnum(termStr, models.AllTerms)
		if err != nil {
			return nil, err
		}
		sem := models.Semester{Year: year, Term: term, Courses: []models.PlannedCourse{}}
		if body != "" {
			for _, rawCourse := range strings.Split(body, ",") {
				c, err := decodeCourse(rawCourse)
				if err != nil {
					return nil, err
				}
				sem.Courses = append(sem.Courses, c)
			}
		}
		sems = append(sems, sem)
	}
	return sems, nil
}

func decodeCourse(raw string) (models.PlannedCourse, error) {
	parts := strings.Split(raw, "!")
	if len(parts) < 2 || len(parts) > 3 {
		return models.PlannedCourse{}, errBadPayload
	}
	id, err := decodeID(parts[0])
	if err != nil {
		return models.PlannedCourse{}, err
	}
	status, err := decodeEnum(parts[1], models.AllCourseStatuses)
	if err != nil {
		return models.PlannedCourse{}, err
	}
	c := models.PlannedCourse{CourseID: id, Status: status}
	if len(parts) == 3 {
		if c.Grade, err = url.QueryUnescape(parts[2]); err != nil {
			return models.PlannedCourse{}, errBadPayload
		}
	}
	return c, nil
}

func encodeID(id string) string {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil && oid.Hex() == id {
		return objectIDMark + base64.RawURLEncoding.EncodeToString(oid[:])
	}
	return url.QueryEscape(id)
}

func decodeID(raw string) (string, error) {
	if strings.HasPrefix(raw, objectIDMark) {
		b, err := base64.RawURLEncoding.DecodeString(raw[len(objectIDMark):])
		if err != nil || len(b) != len(primitive.ObjectID{}) {
			return "", errBadPayload
		}
		var oid primitive.ObjectID
		copy(oid[:], b)
		return oid.Hex(), nil
	}
	id, err := url.QueryUnescape(raw)
	if err != nil {
		return "", errBadPayload
	}
	return id, nil
}

// encodeEnum writes a known value as its single-digit index.
func encodeEnum(v string, known []string) string {
	for i, k := range known {
		if k == v {
			return strconv.Itoa(i)
		}
	}
	return url.QueryEscape(v)
}

func decodeEnum(raw string, known []string) (string, error) {
	if len(raw) == 1 && raw[0] >= '0' && raw[0] <= '9' {
		i := int(raw[0] - '0')
		if i >= len(known) {
			return "", errBadPayload
		}
		return known[i], nil
	}
	v, err := url.QueryUnescape(raw)
	if err != nil {
		return "", errBadPayload
	}
	return v, nil
}

// PlanStorage is the cookie-backed planner.Storage for one request.
type PlanStorage struct {
	store *Store
	w     http.ResponseWriter
	r     *http.Request
}

var _ planner.Storage = (*PlanStorage)(nil)

// PlanStorage returns the planner storage bound to this request/response.
func (s *Store) PlanStorage(w http.ResponseWriter, r *http.Request) *PlanStorage {
	return &PlanStorage{store: s, w: w, r: r}
}

func (ps *PlanStorage) Load(ctx context.Context) (*models.Plan, error) {
	return ps.store.Plan(ps.r), nil
}

func (ps *PlanStorage) Save(ctx context.Context, p *models.Plan) error {
	return ps.store.SavePlan(ps.w, ps.r, p)
}
