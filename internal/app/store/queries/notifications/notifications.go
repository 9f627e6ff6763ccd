// Package notifications merges unread feedback activity and unread patch
// notes into one bell-icon list.
package notifications

import (
	"context"
	"errors"
	"sort"
	"time"

	feedbackstore "github.com/hwankr/courseplanner/internal/app/store/feedback"
	patchnotestore "github.com/hwankr/courseplanner/internal/app/store/patchnotes"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Limit caps the merged list.
const Limit = 20

// Notification kinds.
const (
	KindFeedback      = "feedback"       // admin: new submission
	KindFeedbackReply = "feedback_reply" // student: admin replied
	KindPatchNote     = "patch_note"
)

// ErrUnknownKind is returned by MarkRead for an unrecognized kind.
var ErrUnknownKind = errors.New("unknown notification kind")

// Item is one entry in the list.
type Item struct {
	ID        string    `json:"id"`
	Kind      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// List is the response of Get.
type List struct {
	Items       []Item `json:"notifications"`
	UnreadCount int64  `json:"unreadCount"`
}

// Viewer identifies the caller.
type Viewer struct {
	UserID  primitive.ObjectID
	IsAdmin bool
}

// Service reads and clears notifications.
type Service struct {
	feedback *mongo.Collection
	notes    *patchnotestore.Store
	fb       *feedbackstore.Store
}

func New(db *mongo.Database) *Service {
	return &Service{
		feedback: db.Collection("feedback"),
		notes:    patchnotestore.New(db),
		fb:       feedbackstore.New(db),
	}
}

func (s *Service) feedbackFilter(v Viewer) bson.M {
	if v.IsAdmin {
		return bson.M{"admin_acknowledged": false}
	}
	return bson.M{
		"user_id":     v.UserID,
		"admin_reply": bson.M{"$exists": true, "$ne": ""},
		"reply_read":  false,
	}
}

// Get returns up to Limit unread items, newest first, and the total unread count.
func (s *Service) Get(ctx context.Context, v Viewer) (List, error) {
	filter := s.feedbackFilter(v)
	fbCount, err := s.feedback.CountDocuments(ctx, filter)
	if err != nil {
		return List{}, err
	}

	sortField := "created_at"
	if !v.IsAdmin {
		sortField = "replied_at"
	}
	cur, err := s.feedback.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: sortField, Value: -1}}).SetLimit(Limit))
	if err != nil {
		return List{}, err
	}
	var fbs []models.Feedback
	if err := cur.All(ctx, &fbs); err != nil {
		return List{}, err
	}

	notes, err := s.notes.ListPublished(ctx, 0)
	if err != nil {
		return List{}, err
	}
	read, err := s.notes.ReadIDs(ctx, v.UserID)
	if err != nil {
		return List{}, err
	}

	items := make([]Item, 0, len(fbs)+len(notes))
	for _, f := range fbs {
		items = append(items, feedbackItem(f, v.IsAdmin))
	}
	var noteCount int64
	for _, n := range notes {
		if read[n.ID] {
			continue
		}
		noteCount++
		at := n.CreatedAt
		if n.PublishedAt != nil {
			at = *n.PublishedAt
		}
		items = append(items, Item{
			ID:        n.ID.Hex(),
			Kind:      KindPatchNote,
			Title:     "v" + n.Version + " " + n.Title,
			Message:   "A new update has been released.",
			CreatedAt: at,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if len(items) > Limit {
		items = items[:Limit]
	}
	return List{Items: items, UnreadCount: fbCount + noteCount}, nil
}

func feedbackItem(f models.Feedback, admin bool) Item {
	if admin {
		return Item{
			ID:        f.ID.Hex(),
			Kind:      KindFeedback,
			Title:     "New feedback (" + f.Category + ")",
			Message:   preview(f.Content),
			CreatedAt: f.CreatedAt,
		}
	}
	at := f.UpdatedAt
	if f.RepliedAt != nil {
		at = *f.RepliedAt
	}
	return Item{
		ID:        f.ID.Hex(),
		Kind:      KindFeedbackReply,
		Title:     "Your feedback received a reply",
		Message:   preview(f.AdminReply),
		CreatedAt: at,
	}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= 80 {
		return s
	}
	return string(r[:80]) + "…"
}

// MarkRead clears one item. It reports whether the item was found.
func (s *Service) MarkRead(ctx context.Context, v Viewer, kind string, id primitive.ObjectID) (bool, error) {
	switch kind {
	case KindFeedback, KindFeedbackReply:
		if v.IsAdmin {
			return s.fb.Acknowledge(ctx, id)
		}
		return s.fb.MarkReplyRead(ctx, id, v.UserID)
	case KindPatchNote:
		ok, err := s.notes.IsPublished(ctx, id)
		if err != nil || !ok {
			return false, err
		}
		return true, s.notes.MarkRead(ctx, v.UserID, id)
	}
	return false, ErrUnknownKind
}

// MarkAllRead clears every item of the viewer.
func (s *Service) MarkAllRead(ctx context.Context, v Viewer) error {
	if v.IsAdmin {
		if _, err := s.fb.AcknowledgeAll(ctx); err != nil {
			return err
		}
	} else if _, err := s.fb.MarkAllRepliesRead(ctx, v.UserID); err != nil {
		return err
	}
	_, err := s.notes.MarkAllRead(ctx, v.UserID)
	return err
}
