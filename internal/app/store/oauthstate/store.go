// internal/app/store/oauthstate/store.go
package oauthstate

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// State is a one-time OAuth2 state token. A TTL index on expires_at
// removes stale rows; CleanupExpired covers TTL monitor lag.
type State struct {
	State     string    `bson:"state"`
	ReturnURL string    `bson:"return_url,omitempty"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store manages OAuth2 state tokens in MongoDB.
type Store struct {
	c *mongo.Collection
}

// New creates a new OAuth state Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("oauth_states")}
}

// Save stores a state token until expiresAt.
func (s *Store) Save(ctx context.Context, state, returnURL string, expiresAt time.Time) error {
	_, err := s.c.InsertOne(ctx, State{
		State:     state,
		ReturnURL: returnURL,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// Consume deletes an unexpired state token and returns its return URL.
// ok is false for unknown, reused or expired tokens.
func (s *Store) Consume(ctx context.Context, state string) (returnURL string, ok bool, err error) {
	var st State
	err = s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return st.ReturnURL, true, nil
}

// CleanupExpired removes expired state tokens.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
