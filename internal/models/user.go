package models

import (
	"fmt"
	"time"

	"github.com/shuweic/mp3/internal/store"
)

// User owns a denormalized list of the ids of its pending tasks.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PendingTasks []string  `json:"pendingTasks"`
	DateCreated  time.Time `json:"dateCreated"`
}

// Document returns the stored form of the user without its id.
func (u *User) Document() store.Document {
	pending := u.PendingTasks
	if pending == nil {
		pending = []string{}
	}
	return store.Document{
		"name":         u.Name,
		"email":        u.Email,
		"pendingTasks": pending,
		"dateCreated":  u.DateCreated,
	}
}

// HasPending reports whether taskID is in the pending list.
func (u *User) HasPending(taskID string) bool {
	for _, id := range u.PendingTasks {
		if id == taskID {
			return true
		}
	}
	return false
}

// UserFromDocument decodes a stored user.
func UserFromDocument(doc store.Document) (*User, error) {
	u := &User{}
	var err error
	if u.ID, err = stringField(doc, store.IDField); err != nil {
		return nil, err
	}
	if u.Name, err = stringField(doc, "name"); err != nil {
		return nil, err
	}
	if u.Email, err = stringField(doc, "email"); err != nil {
		return nil, err
	}
	if u.PendingTasks, err = stringListField(doc, "pendingTasks"); err != nil {
		return nil, err
	}
	if u.DateCreated, err = timeField(doc, "dateCreated"); err != nil {
		return nil, err
	}
	return u, nil
}

// UniqueIDs removes duplicates while keeping the first occurrence order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))

	for _, id := range ids {
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}

	return result
}

func stringField(doc store.Document, key string) (string, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %s: expected string, got %T", key, v)
	}
	return s, nil
}

func boolField(doc store.Document, key string) (bool, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %s: expected bool, got %T", key, v)
	}
	return b, nil
}

func timeField(doc store.Document, key string) (time.Time, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return time.Time{}, nil
	}
	t, err := store.ParseTimestamp(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", key, err)
	}
	return t, nil
}

func stringListField(doc store.Document, key string) ([]string, error) {
	switch list := doc[key].(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string{}, list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field %s: expected string items, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %s: expected list, got %T", key, doc[key])
	}
}
