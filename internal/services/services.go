// Package services keeps User.pendingTasks and the task assignment fields
// consistent across every create, replace and delete.
//
// Each operation is a sequence of single document writes with no transaction
// spanning them. Replaying a replace request drives the affected documents
// back to a consistent state.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/shuweic/mp3/internal/query"
	"github.com/shuweic/mp3/internal/store"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrAssignedUserNotFound = errors.New("assignedUser not found")
	ErrEmailExists          = errors.New("email already exists")
)

type documentReader interface {
	Get(ctx context.Context, id string, projection store.Projection) (store.Document, error)
	List(ctx context.Context, q store.Query) ([]store.Document, error)
	Count(ctx context.Context, filter store.Filter) (int64, error)
}

// reader implements the read side shared by both resources.
type reader struct {
	repo     documentReader
	notFound error
}

// Get returns one document restricted by projection.
func (r reader) Get(ctx context.Context, id string, projection store.Projection) (store.Document, error) {
	doc, err := r.repo.Get(ctx, id, projection)
	if err != nil {
		return nil, mapNotFound(err, r.notFound)
	}
	return doc, nil
}

// List runs q. An explicit limit of zero returns an empty list without
// touching the store.
func (r reader) List(ctx context.Context, q *query.Query) ([]store.Document, error) {
	if q.ZeroLimit() {
		return []store.Document{}, nil
	}
	docs, err := r.repo.List(ctx, q.Store())
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []store.Document{}
	}
	return docs, nil
}

// Count counts the documents matching filter.
func (r reader) Count(ctx context.Context, filter store.Filter) (int64, error) {
	return r.repo.Count(ctx, filter)
}

func mapNotFound(err, sentinel error) error {
	if errors.Is(err, store.ErrNotFound) {
		return sentinel
	}
	return err
}

// isMissing reports lookups that resolve to no document.
func isMissing(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
