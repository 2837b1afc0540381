// Package store is the document store adapter used by the repositories.
//
// Two backends implement Store: MongoStore on the official MongoDB driver and
// SQLStore on gorm (postgres, mysql, sqlite). Both speak the same filter
// vocabulary, a subset of MongoDB query documents.
package store

import (
	"context"
	"errors"
)

// Collection names.
const (
	CollectionUsers = "users"
	CollectionTasks = "tasks"
)

// IDField is the document key holding the store generated identifier.
const IDField = "_id"

var (
	ErrNotFound          = errors.New("store: document not found")
	ErrInvalidID         = errors.New("store: invalid id format")
	ErrDuplicateKey      = errors.New("store: duplicate key")
	ErrUnsupportedQuery  = errors.New("store: unsupported query")
	ErrUnknownCollection = errors.New("store: unknown collection")
)

// Document is a stored entity. Values are normalized: ids are strings,
// timestamps are UTC time.Time and lists are []any.
type Document map[string]any

// Filter is a query document: field equality, comparison operators and
// $and/$or/$nor combinators.
type Filter map[string]any

// SortField orders results by one field.
type SortField struct {
	Field string
	Desc  bool
}

// Projection selects (true) or drops (false) fields.
type Projection map[string]bool

// Query describes a find operation. A zero Limit means no limit.
type Query struct {
	Filter     Filter
	Sort       []SortField
	Projection Projection
	Skip       int64
	Limit      int64
}

// Store is the set of operations the application needs from a document database.
type Store interface {
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	FindByID(ctx context.Context, collection, id string, projection Projection) (Document, error)
	Find(ctx context.Context, collection string, q Query) ([]Document, error)
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	Update(ctx context.Context, collection, id string, patch Document) error
	UpdateMany(ctx context.Context, collection string, filter Filter, patch Document) (int64, error)
	// AddToSet appends value to a list field unless it is already present.
	AddToSet(ctx context.Context, collection, id, field, value string) error
	// Pull removes every occurrence of value from a list field.
	Pull(ctx context.Context, collection, id, field, value string) error
	Delete(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Inclusive reports whether the projection lists the fields to keep rather
// than the fields to drop. _id alone does not decide the mode unless it is
// the only entry.
func (p Projection) Inclusive() bool {
	for field, keep := range p {
		if field == IDField {
			continue
		}
		return keep
	}
	return p[IDField]
}

// Apply returns a copy of doc restricted by the projection. _id is kept
// unless explicitly excluded.
func (p Projection) Apply(doc Document) Document {
	if len(p) == 0 {
		return doc
	}

	out := make(Document, len(doc))
	if p.Inclusive() {
		for field, keep := range p {
			if !keep {
				continue
			}
			if v, ok := doc[field]; ok {
				out[field] = v
			}
		}
		if keepID, listed := p[IDField]; !listed || keepID {
			if v, ok := doc[IDField]; ok {
				out[IDField] = v
			}
		}
		return out
	}

	for field, v := range doc {
		if keep, listed := p[field]; listed && !keep {
			continue
		}
		out[field] = v
	}
	return out
}
