// internal/domain/models/patchnote.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PatchNote is an admin-authored changelog entry.
type PatchNote struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Version     string             `bson:"version" json:"version"`
	Title       string             `bson:"title" json:"title"`
	Content     string             `bson:"content" json:"content"`
	Published   bool               `bson:"published" json:"published"`
	PublishedAt *time.Time         `bson:"published_at,omitempty" json:"publishedAt,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"created_by,omitempty" json:"createdBy,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// PatchNoteRead is a per-user read receipt. (user_id, patch_note_id) is unique.
type PatchNoteRead struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	PatchNoteID primitive.ObjectID `bson:"patch_note_id" json:"patchNoteId"`
	ReadAt      time.Time          `bson:"read_at" json:"readAt"`
}
