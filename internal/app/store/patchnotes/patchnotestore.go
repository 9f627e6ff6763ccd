// internal/app/store/patchnotes/patchnotestore.go
package patchnotestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hwankr/courseplanner/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages patch notes and the per-user read receipts.
type Store struct {
	notes *mongo.Collection
	reads *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		notes: db.Collection("patch_notes"),
		reads: db.Collection("patch_note_reads"),
	}
}

// Create inserts a note. A published note gets published_at = now.
func (s *Store) Create(ctx context.Context, n models.PatchNote) (models.PatchNote, error) {
	now := time.Now().UTC()
	n.ID = primitive.NewObjectID()
	n.Version = strings.TrimSpace(n.Version)
	n.Title = strings.TrimSpace(n.Title)
	n.PublishedAt = nil
	if n.Published {
		n.PublishedAt = &now
	}
	n.CreatedAt = now
	n.UpdatedAt = now
	if _, err := s.notes.InsertOne(ctx, n); err != nil {
		return models.PatchNote{}, err
	}
	return n, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.PatchNote, error) {
	var n models.PatchNote
	if err := s.notes.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return models.PatchNote{}, err
	}
	return n, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.PatchNote, error) {
	cur, err := s.notes.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.PatchNote{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPublished returns published notes, newest first.
func (s *Store) ListPublished(ctx context.Context, limit int64) ([]models.PatchNote, error) {
	opts := options.Find().SetSort(bson.D{{Key: "published_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, bson.M{"published": true}, opts)
}

// ListAll returns drafts and published notes, newest first.
func (s *Store) ListAll(ctx context.Context) ([]models.PatchNote, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
}

// Update is a partial update of a note's text.
type Update struct {
	Version *string
	Title   *string
	Content *string
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (models.PatchNote, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Version != nil {
		set["version"] = strings.TrimSpace(*upd.Version)
	}
	if upd.Title != nil {
		set["title"] = strings.TrimSpace(*upd.Title)
	}
	if upd.Content != nil {
		set["content"] = *upd.Content
	}
	return s.findAndUpdate(ctx, id, bson.M{"$set": set})
}

// SetPublished publishes or unpublishes a note. Publishing stamps
// published_at; unpublishing clears it.
func (s *Store) SetPublished(ctx context.Context, id primitive.ObjectID, published bool) (models.PatchNote, error) {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"published": published, "published_at": now, "updated_at": now}}
	if !published {
		update = bson.M{
			"$set":   bson.M{"published": false, "updated_at": now},
			"$unset": bson.M{"published_at": ""},
		}
	}
	return s.findAndUpdate(ctx, id, update)
}

func (s *Store) findAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (models.PatchNote, error) {
	var n models.PatchNote
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.notes.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&n); err != nil {
		return models.PatchNote{}, err
	}
	return n, nil
}

// Delete removes a note and its read receipts.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.notes.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	if _, err := s.reads.DeleteMany(ctx, bson.M{"patch_note_id": id}); err != nil {
		return res.DeletedCount, err
	}
	return res.DeletedCount, nil
}

/* ------------------------------ read receipts ------------------------------ */

// IsPublished reports whether id names a published note.
func (s *Store) IsPublished(ctx context.Context, id primitive.ObjectID) (bool, error) {
	err := s.notes.FindOne(ctx, bson.M{"_id": id, "published": true},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return err == nil, err
}

// MarkRead records that userID has read noteID. Reading twice is not an error.
func (s *Store) MarkRead(ctx context.Context, userID, noteID primitive.ObjectID) error {
	_, err := s.reads.InsertOne(ctx, models.PatchNoteRead{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		PatchNoteID: noteID,
		ReadAt:      time.Now().UTC(),
	})
	if err != nil && wafflemongo.IsDup(err) {
		return nil
	}
	return err
}

// MarkAllRead records receipts for every published note. Receipts that
// already exist are skipped by an unordered insert whose duplicate-key
// errors are ignored. Returns the number of new receipts.
func (s *Store) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int, error) {
	cur, err := s.notes.Find(ctx, bson.M{"published": true}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, err
	}
	var ids []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &ids); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, len(ids))
	for i, row := range ids {
		docs[i] = models.PatchNoteRead{ID: primitive.NewObjectID(), UserID: userID, PatchNoteID: row.ID, ReadAt: now}
	}
	res, err := s.reads.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}
	if err != nil && !onlyDuplicates(err) {
		return inserted, err
	}
	if err != nil {
		inserted = len(docs) - duplicateCount(err)
	}
	return inserted, nil
}

// ReadIDs returns the set of note ids userID has read.
func (s *Store) ReadIDs(ctx context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	cur, err := s.reads.Find(ctx, bson.M{"user_id": userID}, options.Find().SetProjection(bson.M{"patch_note_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make(map[primitive.ObjectID]bool)
	for cur.Next(ctx) {
		var r models.PatchNoteRead
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out[r.PatchNoteID] = true
	}
	return out, cur.Err()
}

// DeleteReadsByUser removes every receipt of userID.
func (s *Store) DeleteReadsByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.reads.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func onlyDuplicates(err error) bool {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return wafflemongo.IsDup(err)
	}
	if bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}

func duplicateCount(err error) int {
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		return len(bwe.WriteErrors)
	}
	return 0
}
