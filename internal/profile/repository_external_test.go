package profile

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// These run against real stores and are skipped unless one is configured:
// FIRESTORE_EMULATOR_HOST for Firestore, TEST_MONGODB_URI for MongoDB.

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	docs, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.NotNil(t, docs)
	assert.Empty(t, docs)

	p := &Profile{
		UID:        "uid-1",
		Email:      "jane@x.com",
		Name:       "Jane",
		Role:       RoleCoach,
		Specialty:  "Grief",
		CreatedAt:  "2024-03-09T14:05:07.123Z",
		IsVerified: true,
	}
	require.NoError(t, repo.Put(ctx, p))

	docs, err = repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "uid-1", docs[0]["uid"])
	assert.Equal(t, "coach", docs[0]["role"])
	assert.Equal(t, true, docs[0]["isVerified"])
	assert.Equal(t, "2024-03-09T14:05:07.123Z", docs[0]["createdAt"])
	_, hasStorageKey := docs[0]["_id"]
	assert.False(t, hasStorageKey)

	keys, err := repo.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"uid-1"}, keys)
}

func TestFirestoreRepository(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "coach-admin-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	collection := fmt.Sprintf("users_test_%d", time.Now().UnixNano())
	exerciseRepository(t, NewFirestoreRepository(client, collection))
}

func TestMongoRepository(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database(fmt.Sprintf("coach_admin_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() { _ = db.Drop(context.Background()) })
	exerciseRepository(t, NewMongoRepository(db, "users"))
}
