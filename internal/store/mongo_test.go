package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestNormalizeValue(t *testing.T) {
	when := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	oid := bson.NewObjectID()

	doc := normalizeDocument(bson.M{
		"_id":          oid.Hex(),
		"pendingTasks": bson.A{"a", "b"},
		"dateCreated":  bson.NewDateTimeFromTime(when),
		"ref":          oid,
		"nested":       bson.D{{Key: "n", Value: int32(3)}},
	})

	assert.Equal(t, oid.Hex(), doc["_id"])
	assert.Equal(t, []any{"a", "b"}, doc["pendingTasks"])
	assert.Equal(t, when, doc["dateCreated"])
	assert.Equal(t, oid.Hex(), doc["ref"])
	assert.Equal(t, map[string]any{"n": int64(3)}, doc["nested"])
}

func TestProjectionDocument(t *testing.T) {
	got := projectionDocument(Projection{"name": true, "_id": false})
	assert.Equal(t, bson.D{{Key: "_id", Value: 0}, {Key: "name", Value: 1}}, got)
}

func TestSetDocument_DropsID(t *testing.T) {
	got := setDocument(Document{"_id": "x", "name": "Ada"})
	assert.Equal(t, bson.M{"name": "Ada"}, got)
}

func TestValidObjectID(t *testing.T) {
	assert.NoError(t, validObjectID(bson.NewObjectID().Hex()))
	assert.ErrorIs(t, validObjectID("123"), ErrInvalidID)
}

// The tests below need a running MongoDB. Set MONGO_TEST_URI to run them.

func setupMongo(t *testing.T) *MongoStore {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set; skipping integration test")
	}

	ctx := context.Background()
	s, err := NewMongo(ctx, uri, "mp3_test")
	require.NoError(t, err)

	require.NoError(t, s.Drop(ctx))
	require.NoError(t, s.CreateIndexes(ctx))

	t.Cleanup(func() {
		_ = s.Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestMongoStore_Integration(t *testing.T) {
	s := setupMongo(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, CollectionUsers, Document{
		"name":         "Ada",
		"email":        "ada@example.com",
		"pendingTasks": []string{},
		"dateCreated":  time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = s.Insert(ctx, CollectionUsers, Document{
		"name":         "Other",
		"email":        "ada@example.com",
		"pendingTasks": []string{},
		"dateCreated":  time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	doc, err := s.FindByID(ctx, CollectionUsers, id, Projection{"name": true})
	require.NoError(t, err)
	assert.Equal(t, Document{"_id": id, "name": "Ada"}, doc)

	require.NoError(t, s.Update(ctx, CollectionUsers, id, Document{"pendingTasks": []string{"t1"}}))
	doc, err = s.FindByID(ctx, CollectionUsers, id, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"t1"}, doc["pendingTasks"])

	require.NoError(t, s.AddToSet(ctx, CollectionUsers, id, "pendingTasks", "t2"))
	require.NoError(t, s.AddToSet(ctx, CollectionUsers, id, "pendingTasks", "t1"))
	require.NoError(t, s.Pull(ctx, CollectionUsers, id, "pendingTasks", "t1"))
	doc, err = s.FindByID(ctx, CollectionUsers, id, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"t2"}, doc["pendingTasks"])
	assert.ErrorIs(t, s.Pull(ctx, CollectionUsers, "000000000000000000000000", "pendingTasks", "t1"), ErrNotFound)
	assert.ErrorIs(t, s.AddToSet(ctx, CollectionUsers, id, "email", "x"), ErrUnsupportedQuery)

	deadline := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, name := range []string{"b", "a"} {
		_, err := s.Insert(ctx, CollectionTasks, Document{
			"name":             name,
			"description":      "",
			"deadline":         deadline,
			"completed":        false,
			"assignedUser":     id,
			"assignedUserName": "Ada",
			"dateCreated":      time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	docs, err := s.Find(ctx, CollectionTasks, Query{
		Filter: Filter{"deadline": map[string]any{"$gte": "2029-12-31"}},
		Sort:   []SortField{{Field: "name"}},
		Limit:  1,
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0]["name"])
	assert.Equal(t, deadline, docs[0]["deadline"])

	n, err := s.UpdateMany(ctx, CollectionTasks, Filter{"assignedUser": id}, Document{"assignedUser": "", "assignedUserName": "unassigned"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := s.Count(ctx, CollectionTasks, Filter{"assignedUser": ""})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, s.Delete(ctx, CollectionUsers, id))
	assert.ErrorIs(t, s.Delete(ctx, CollectionUsers, id), ErrNotFound)
	_, err = s.FindByID(ctx, CollectionUsers, "zz", nil)
	assert.ErrorIs(t, err, ErrInvalidID)
}
