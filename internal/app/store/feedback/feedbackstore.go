// internal/app/store/feedback/feedbackstore.go
package feedbackstore

import (
	"context"
	"time"

	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("feedback")}
}

// Create inserts a pending, unacknowledged feedback item.
func (s *Store) Create(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	now := time.Now().UTC()
	f.ID = primitive.NewObjectID()
	f.Status = models.FeedbackPending
	f.AdminAcknowledged = false
	f.AdminReply = ""
	f.RepliedAt = nil
	f.ReplyRead = false
	f.CreatedAt = now
	f.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, f); err != nil {
		return models.Feedback{}, err
	}
	return f, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Feedback, error) {
	var f models.Feedback
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return models.Feedback{}, err
	}
	return f, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Feedback, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Feedback{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// ListByUser returns a user's own feedback, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Feedback, error) {
	return s.find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(newestFirst).SetLimit(100))
}

// Filter narrows the admin list.
type Filter struct {
	Status   string
	Category string
}

// List returns one offset page of feedback plus the total match count.
func (s *Store) List(ctx context.Context, f Filter, limit, offset int64) ([]models.Feedback, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.find(ctx, filter, options.Find().SetSort(newestFirst).SetLimit(limit).SetSkip(offset))
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// AdminUpdate changes status and/or the admin reply. Setting a reply
// resets reply_read so the submitter is notified.
type AdminUpdate struct {
	Status *string
	Reply  *string
}

// Update applies an admin change and marks the item acknowledged.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd AdminUpdate) (models.Feedback, error) {
	now := time.Now().UTC()
	set := bson.M{"admin_acknowledged": true, "updated_at": now}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Reply != nil {
		set["admin_reply"] = *upd.Reply
		set["replied_at"] = now
		set["reply_read"] = false
	}
	var f models.Feedback
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&f); err != nil {
		return models.Feedback{}, err
	}
	return f, nil
}

// Acknowledge marks one item as seen by an admin. It reports whether the
// item was found.
func (s *Store) Acknowledge(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"admin_acknowledged": true}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// AcknowledgeAll marks every unacknowledged item as seen.
func (s *Store) AcknowledgeAll(ctx context.Context) (int64, error) {
	res, err := s.c.UpdateMany(ctx, bson.M{"admin_acknowledged": false}, bson.M{"$set": bson.M{"admin_acknowledged": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// MarkReplyRead marks the reply on one of userID's items as read. It
// reports whether a matching item was found.
func (s *Store) MarkReplyRead(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "user_id": userID}, bson.M{"$set": bson.M{"reply_read": true}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// MarkAllRepliesRead marks every unread reply of userID as read.
func (s *Store) MarkAllRepliesRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "admin_reply": bson.M{"$exists": true, "$ne": ""}, "reply_read": false},
		bson.M{"$set": bson.M{"reply_read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteByUser removes all feedback of userID.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByStatus returns the number of items per status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make(map[string]int64, len(models.AllFeedbackStatuses))
	for _, st := range models.AllFeedbackStatuses {
		out[st] = 0
	}
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
			N  int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}
