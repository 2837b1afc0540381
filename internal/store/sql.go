package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRecord struct {
	ID           string                      `gorm:"primaryKey;size:36"`
	Name         string                      `gorm:"type:varchar(255);not null"`
	Email        string                      `gorm:"type:varchar(255);uniqueIndex;not null"`
	PendingTasks datatypes.JSONSlice[string] `gorm:"not null"`
	DateCreated  time.Time                   `gorm:"not null"`
}

func (userRecord) TableName() string { return CollectionUsers }

func (r userRecord) document() Document {
	pending := make([]any, len(r.PendingTasks))
	for i, id := range r.PendingTasks {
		pending[i] = id
	}
	return Document{
		IDField:        r.ID,
		"name":         r.Name,
		"email":        r.Email,
		"pendingTasks": pending,
		"dateCreated":  r.DateCreated.UTC(),
	}
}

type taskRecord struct {
	ID               string    `gorm:"primaryKey;size:36"`
	Name             string    `gorm:"type:varchar(255);not null"`
	Description      string    `gorm:"type:text"`
	Deadline         time.Time `gorm:"not null"`
	Completed        bool      `gorm:"not null"`
	AssignedUser     string    `gorm:"type:varchar(36);index:idx_tasks_assignment"`
	AssignedUserName string    `gorm:"type:varchar(255)"`
	DateCreated      time.Time `gorm:"not null"`
}

func (taskRecord) TableName() string { return CollectionTasks }

func (r taskRecord) document() Document {
	return Document{
		IDField:            r.ID,
		"name":             r.Name,
		"description":      r.Description,
		"deadline":         r.Deadline.UTC(),
		"completed":        r.Completed,
		"assignedUser":     r.AssignedUser,
		"assignedUserName": r.AssignedUserName,
		"dateCreated":      r.DateCreated.UTC(),
	}
}

type record interface {
	userRecord | taskRecord
	document() Document
}

// SQLStore implements Store on a relational database through gorm. Each
// collection is a table; identifiers are UUID strings.
type SQLStore struct {
	db *gorm.DB
}

// NewSQL wraps an open gorm connection. Open it with TranslateError enabled
// so unique violations surface as ErrDuplicateKey.
func NewSQL(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates or updates the users and tasks tables.
func (s *SQLStore) Migrate() error {
	if err := s.db.AutoMigrate(&userRecord{}, &taskRecord{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *SQLStore) model(collection string) (any, schema, error) {
	sch, err := schemaFor(collection)
	if err != nil {
		return nil, nil, err
	}
	switch collection {
	case CollectionUsers:
		return &userRecord{}, sch, nil
	default:
		return &taskRecord{}, sch, nil
	}
}

func (s *SQLStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	if _, err := schemaFor(collection); err != nil {
		return "", err
	}

	id := uuid.NewString()
	var err error
	switch collection {
	case CollectionUsers:
		var rec userRecord
		rec, err = newUserRecord(id, doc)
		if err == nil {
			err = s.db.WithContext(ctx).Create(&rec).Error
		}
	default:
		var rec taskRecord
		rec, err = newTaskRecord(id, doc)
		if err == nil {
			err = s.db.WithContext(ctx).Create(&rec).Error
		}
	}
	if err != nil {
		return "", sqlError(err)
	}
	return id, nil
}

func (s *SQLStore) FindByID(ctx context.Context, collection, id string, projection Projection) (Document, error) {
	model, _, err := s.model(collection)
	if err != nil {
		return nil, err
	}
	if err := validUUID(id); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Model(model).Where("id = ?", id)

	var doc Document
	switch collection {
	case CollectionUsers:
		doc, err = takeDocument[userRecord](tx)
	default:
		doc, err = takeDocument[taskRecord](tx)
	}
	if err != nil {
		return nil, sqlError(err)
	}
	return projection.Apply(doc), nil
}

func (s *SQLStore) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	model, sch, err := s.model(collection)
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Model(model)
	if tx, err = applyFilter(tx, sch, q.Filter); err != nil {
		return nil, err
	}
	for _, sf := range q.Sort {
		f, ok := sch[sf.Field]
		if !ok || f.kind == kindList {
			return nil, fmt.Errorf("%w: cannot sort by %q", ErrUnsupportedQuery, sf.Field)
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: f.column}, Desc: sf.Desc})
	}
	tx = tx.Scopes(paginate(q.Skip, q.Limit))

	var docs []Document
	switch collection {
	case CollectionUsers:
		docs, err = findDocuments[userRecord](tx)
	default:
		docs, err = findDocuments[taskRecord](tx)
	}
	if err != nil {
		return nil, sqlError(err)
	}

	for i := range docs {
		docs[i] = q.Projection.Apply(docs[i])
	}
	return docs, nil
}

func (s *SQLStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	model, sch, err := s.model(collection)
	if err != nil {
		return 0, err
	}

	tx := s.db.WithContext(ctx).Model(model)
	if tx, err = applyFilter(tx, sch, filter); err != nil {
		return 0, err
	}

	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, sqlError(err)
	}
	return n, nil
}

func (s *SQLStore) Update(ctx context.Context, collection, id string, patch Document) error {
	model, sch, err := s.model(collection)
	if err != nil {
		return err
	}
	if err := validUUID(id); err != nil {
		return err
	}
	columns, err := columnPatch(sch, patch)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return sqlError(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Some drivers report zero affected rows when the values did not change.
	var n int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return sqlError(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) UpdateMany(ctx context.Context, collection string, filter Filter, patch Document) (int64, error) {
	model, sch, err := s.model(collection)
	if err != nil {
		return 0, err
	}
	columns, err := columnPatch(sch, patch)
	if err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		return 0, nil
	}

	tx := s.db.WithContext(ctx).Model(model)
	if len(filter) == 0 {
		tx = tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	} else if tx, err = applyFilter(tx, sch, filter); err != nil {
		return 0, err
	}

	res := tx.Updates(columns)
	if res.Error != nil {
		return 0, sqlError(res.Error)
	}
	return res.RowsAffected, nil
}

func (s *SQLStore) AddToSet(ctx context.Context, collection, id, field, value string) error {
	return s.updateList(ctx, collection, id, field, func(list datatypes.JSONSlice[string]) (datatypes.JSONSlice[string], bool) {
		for _, v := range list {
			if v == value {
				return list, false
			}
		}
		return append(list, value), true
	})
}

func (s *SQLStore) Pull(ctx context.Context, collection, id, field, value string) error {
	return s.updateList(ctx, collection, id, field, func(list datatypes.JSONSlice[string]) (datatypes.JSONSlice[string], bool) {
		kept := make(datatypes.JSONSlice[string], 0, len(list))
		for _, v := range list {
			if v != value {
				kept = append(kept, v)
			}
		}
		return kept, len(kept) != len(list)
	})
}

// updateList edits a JSON list column under a row lock so concurrent edits
// of the same row do not overwrite each other.
func (s *SQLStore) updateList(ctx context.Context, collection, id, name string,
	edit func(datatypes.JSONSlice[string]) (datatypes.JSONSlice[string], bool)) error {
	model, _, err := s.model(collection)
	if err != nil {
		return err
	}
	f, err := listField(collection, name)
	if err != nil {
		return err
	}
	if err := validUUID(id); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row struct {
			List datatypes.JSONSlice[string]
		}
		err := tx.Model(model).
			Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Select(f.column+" AS list").
			Where("id = ?", id).
			Take(&row).Error
		if err != nil {
			return err
		}

		list, changed := edit(row.List)
		if !changed {
			return nil
		}
		return tx.Model(model).Where("id = ?", id).Update(f.column, list).Error
	})
	if err != nil {
		return sqlError(err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, collection, id string) error {
	model, _, err := s.model(collection)
	if err != nil {
		return err
	}
	if err := validUUID(id); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return sqlError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// paginate applies skip/limit; a zero limit leaves the result unbounded.
// MySQL rejects OFFSET without LIMIT, so a skip alone gets the largest limit.
func paginate(skip, limit int64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if skip > 0 {
			db = db.Offset(int(skip))
			if limit == 0 {
				db = db.Limit(math.MaxInt)
			}
		}
		if limit > 0 {
			db = db.Limit(int(limit))
		}
		return db
	}
}

func takeDocument[R record](tx *gorm.DB) (Document, error) {
	var row R
	if err := tx.Take(&row).Error; err != nil {
		return nil, err
	}
	return row.document(), nil
}

func findDocuments[R record](tx *gorm.DB) ([]Document, error) {
	var rows []R
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]Document, len(rows))
	for i, row := range rows {
		docs[i] = row.document()
	}
	return docs, nil
}

func validUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

func sqlError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	default:
		return err
	}
}

// isUniqueViolation catches drivers that do not implement gorm's error
// translation.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

func newUserRecord(id string, doc Document) (userRecord, error) {
	rec := userRecord{ID: id, PendingTasks: datatypes.JSONSlice[string]{}}
	var err error
	if rec.Name, err = stringValue(doc, "name"); err != nil {
		return rec, err
	}
	if rec.Email, err = stringValue(doc, "email"); err != nil {
		return rec, err
	}
	if v, ok := doc["pendingTasks"]; ok && v != nil {
		list, err := stringList(v)
		if err != nil {
			return rec, err
		}
		rec.PendingTasks = list
	}
	if rec.DateCreated, err = timeValue(doc, "dateCreated"); err != nil {
		return rec, err
	}
	return rec, nil
}

func newTaskRecord(id string, doc Document) (taskRecord, error) {
	rec := taskRecord{ID: id}
	var err error
	if rec.Name, err = stringValue(doc, "name"); err != nil {
		return rec, err
	}
	if rec.Description, err = stringValue(doc, "description"); err != nil {
		return rec, err
	}
	if rec.Deadline, err = timeValue(doc, "deadline"); err != nil {
		return rec, err
	}
	if v, ok := doc["completed"]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return rec, fmt.Errorf("store: completed must be a boolean, got %T", v)
		}
		rec.Completed = b
	}
	if rec.AssignedUser, err = stringValue(doc, "assignedUser"); err != nil {
		return rec, err
	}
	if rec.AssignedUserName, err = stringValue(doc, "assignedUserName"); err != nil {
		return rec, err
	}
	if rec.DateCreated, err = timeValue(doc, "dateCreated"); err != nil {
		return rec, err
	}
	return rec, nil
}

// columnPatch maps document fields to column values with the types the
// records use.
func columnPatch(sch schema, patch Document) (map[string]any, error) {
	columns := make(map[string]any, len(patch))
	for key, v := range patch {
		if key == IDField {
			continue
		}
		f, ok := sch[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrUnsupportedQuery, key)
		}
		switch f.kind {
		case kindList:
			list, err := stringList(v)
			if err != nil {
				return nil, err
			}
			columns[f.column] = list
		case kindTime:
			t, err := ParseTimestamp(v)
			if err != nil {
				return nil, err
			}
			columns[f.column] = t
		default:
			columns[f.column] = v
		}
	}
	return columns, nil
}

func stringValue(doc Document, key string) (string, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("store: %s must be a string, got %T", key, v)
	}
	return s, nil
}

func timeValue(doc Document, key string) (time.Time, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return time.Time{}, fmt.Errorf("store: %s is required", key)
	}
	return ParseTimestamp(v)
}

func stringList(v any) (datatypes.JSONSlice[string], error) {
	switch list := v.(type) {
	case nil:
		return datatypes.JSONSlice[string]{}, nil
	case []string:
		out := make(datatypes.JSONSlice[string], len(list))
		copy(out, list)
		return out, nil
	case []any:
		out := make(datatypes.JSONSlice[string], 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("store: list items must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("store: expected a list, got %T", v)
	}
}
