package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultTestURI is used when COURSEPLANNER_TEST_MONGO_URI is unset.
const DefaultTestURI = "mongodb://localhost:27017"

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error
)

func sharedClient() (*mongo.Client, error) {
	clientOnce.Do(func() {
		uri := os.Getenv("COURSEPLANNER_TEST_MONGO_URI")
		if uri == "" {
			uri = DefaultTestURI
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(2 * time.Second)
		c, err := mongo.Connect(ctx, opts)
		if err != nil {
			clientErr = err
			return
		}
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.Background())
			clientErr = err
			return
		}
		client = c
	})
	return client, clientErr
}

// SetupTestDB returns a fresh database for the test, dropped on cleanup.
// The test is skipped when no MongoDB server is reachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	c, err := sharedClient()
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	name := fmt.Sprintf("cp_test_%s_%d", sanitize(t.Name()), time.Now().UnixNano())
	if len(name) > 60 {
		name = name[len(name)-60:]
	}
	db := c.Database(name)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
	})
	return db
}

// TestClient returns the shared client, skipping the test when MongoDB is
// unavailable. Used by code that needs sessions (transactions).
func TestClient(t *testing.T) *mongo.Client {
	t.Helper()
	c, err := sharedClient()
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	return c
}

// TestContext returns a context with a generous timeout for test operations.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, s)
}

// UnreachableClient returns a client pointed at a port nothing listens on.
// Operations fail after a short server-selection timeout.
func UnreachableClient(t *testing.T) *mongo.Client {
	t.Helper()
	opts := options.Client().ApplyURI("mongodb://127.0.0.1:1").SetServerSelectionTimeout(200 * time.Millisecond)
	c, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		t.Fatalf("mongo.Connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Disconnect(context.Background()) })
	return c
}
