// Package testutil provides shared helpers for integration-style tests:
// a throwaway MongoDB database per test, data fixtures, and HTTP
// request/response helpers for handler tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testMongoURI is where tests look for a MongoDB instance. Override with
// PLANHUB_TEST_MONGO_URI when the local instance runs elsewhere.
const testMongoURI = "mongodb://localhost:27017"

// SetupTestDB connects to a local MongoDB instance and returns a unique,
// empty database for the calling test. The database is dropped and the
// client disconnected when the test finishes.
//
// Tests are skipped when no MongoDB instance is reachable, so the suite
// still passes on machines without one.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("PLANHUB_TEST_MONGO_URI")
	if uri == "" {
		uri = testMongoURI
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("skipping: cannot connect to MongoDB at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("skipping: MongoDB not reachable at %s: %v", uri, err)
	}

	name := fmt.Sprintf("planhub_test_%d", time.Now().UnixNano())
	db := client.Database(name)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return db
}

// TestContext returns a context with a generous timeout for test database
// operations. Always defer the returned cancel.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
