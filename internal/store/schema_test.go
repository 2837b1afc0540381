package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
	}{
		{"date only", "2030-01-01"},
		{"rfc3339", "2030-01-01T00:00:00Z"},
		{"rfc3339 offset", "2030-01-01T02:00:00+02:00"},
		{"local date-time", "2030-01-01T00:00:00"},
		{"milliseconds", float64(want.UnixMilli())},
		{"int64 milliseconds", want.UnixMilli()},
		{"time", want.In(time.FixedZone("x", 3600))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %v", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	for _, bad := range []any{"tomorrow", "", true, nil, []any{}} {
		_, err := ParseTimestamp(bad)
		assert.Error(t, err, "input %v", bad)
	}
}

func TestCastFilter_DateFields(t *testing.T) {
	sch := schemas[CollectionTasks]

	cast, err := castFilter(sch, Filter{
		"name":     "x",
		"deadline": map[string]any{"$gte": "2030-01-01", "$in": []any{"2030-01-02"}},
		"$or": []any{
			map[string]any{"dateCreated": "2029-12-31"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "x", cast["name"])

	ops := cast["deadline"].(map[string]any)
	assert.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), ops["$gte"])
	assert.Equal(t, []any{time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)}, ops["$in"])

	branch := cast["$or"].([]any)[0].(map[string]any)
	assert.Equal(t, time.Date(2029, 12, 31, 0, 0, 0, 0, time.UTC), branch["dateCreated"])
}

func TestCastFilter_Errors(t *testing.T) {
	sch := schemas[CollectionTasks]

	_, err := castFilter(sch, Filter{"deadline": "not a date"})
	assert.ErrorIs(t, err, ErrUnsupportedQuery)

	_, err = castFilter(sch, Filter{"$and": map[string]any{}})
	assert.ErrorIs(t, err, ErrUnsupportedQuery)
}

func TestProjection_Inclusive(t *testing.T) {
	assert.True(t, Projection{"name": true}.Inclusive())
	assert.True(t, Projection{"name": true, "_id": false}.Inclusive())
	assert.False(t, Projection{"email": false}.Inclusive())
	assert.False(t, Projection{"_id": false}.Inclusive())
	assert.True(t, Projection{"_id": true}.Inclusive())
}

func TestProjection_Apply(t *testing.T) {
	doc := Document{"_id": "1", "name": "Ada", "email": "a@x"}

	assert.Equal(t, doc, Projection(nil).Apply(doc))
	assert.Equal(t, Document{"_id": "1", "name": "Ada"}, Projection{"name": true}.Apply(doc))
	assert.Equal(t, Document{"name": "Ada"}, Projection{"name": true, "_id": false}.Apply(doc))
	assert.Equal(t, Document{"_id": "1", "name": "Ada"}, Projection{"email": false}.Apply(doc))
	assert.Equal(t, Document{"name": "Ada", "email": "a@x"}, Projection{"_id": false}.Apply(doc))
}

func TestListField(t *testing.T) {
	f, err := listField(CollectionUsers, "pendingTasks")
	require.NoError(t, err)
	assert.Equal(t, "pending_tasks", f.column)

	_, err = listField(CollectionUsers, "email")
	assert.ErrorIs(t, err, ErrUnsupportedQuery)

	_, err = listField(CollectionTasks, "pendingTasks")
	assert.ErrorIs(t, err, ErrUnsupportedQuery)

	_, err = listField("projects", "pendingTasks")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}
