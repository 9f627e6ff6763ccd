// internal/domain/models/feedback.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FeedbackBug      = "bug"
	FeedbackFeature  = "feature"
	FeedbackQuestion = "question"
	FeedbackOther    = "other"

	FeedbackPending    = "pending"
	FeedbackInProgress = "in_progress"
	FeedbackResolved   = "resolved"
	FeedbackClosed     = "closed"
)

var (
	AllFeedbackCategories = []string{FeedbackBug, FeedbackFeature, FeedbackQuestion, FeedbackOther}
	AllFeedbackStatuses   = []string{FeedbackPending, FeedbackInProgress, FeedbackResolved, FeedbackClosed}
)

// Feedback is a support ticket submitted by a user.
//
// AdminAcknowledged drives the admin notification; ReplyRead drives the
// submitter's notification once AdminReply is set.
type Feedback struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"user_id" json:"userId"`
	UserEmail         string             `bson:"user_email,omitempty" json:"userEmail,omitempty"`
	Category          string             `bson:"category" json:"category"`
	Content           string             `bson:"content" json:"content"`
	Status            string             `bson:"status" json:"status"`
	AdminAcknowledged bool               `bson:"admin_acknowledged" json:"adminAcknowledged"`
	AdminReply        string             `bson:"admin_reply,omitempty" json:"adminReply,omitempty"`
	RepliedAt         *time.Time         `bson:"replied_at,omitempty" json:"repliedAt,omitempty"`
	ReplyRead         bool               `bson:"reply_read" json:"replyRead"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func IsValidFeedbackCategory(v string) bool { return contains(AllFeedbackCategories, v) }
func IsValidFeedbackStatus(v string) bool   { return contains(AllFeedbackStatuses, v) }
