package repository

import (
	"context"
	"fmt"

	"github.com/shuweic/mp3/internal/models"
	"github.com/shuweic/mp3/internal/store"
)

// DocumentUserRepository is a store.Store implementation of UserRepository
type DocumentUserRepository struct {
	db store.Store
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db store.Store) UserRepository {
	return &DocumentUserRepository{db: db}
}

func (r *DocumentUserRepository) Create(ctx context.Context, user *models.User) error {
	id, err := r.db.Insert(ctx, store.CollectionUsers, user.Document())
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

func (r *DocumentUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	doc, err := r.db.FindByID(ctx, store.CollectionUsers, id, nil)
	if err != nil {
		return nil, err
	}
	user, err := models.UserFromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	return user, nil
}

func (r *DocumentUserRepository) Save(ctx context.Context, user *models.User) error {
	doc := user.Document()
	delete(doc, "dateCreated")
	return r.db.Update(ctx, store.CollectionUsers, user.ID, doc)
}

func (r *DocumentUserRepository) SetPendingTasks(ctx context.Context, user *models.User) error {
	return r.db.Update(ctx, store.CollectionUsers, user.ID, store.Document{
		"pendingTasks": user.Document()["pendingTasks"],
	})
}

func (r *DocumentUserRepository) AddPending(ctx context.Context, userID, taskID string) error {
	return r.db.AddToSet(ctx, store.CollectionUsers, userID, "pendingTasks", taskID)
}

func (r *DocumentUserRepository) RemovePending(ctx context.Context, userID, taskID string) error {
	return r.db.Pull(ctx, store.CollectionUsers, userID, "pendingTasks", taskID)
}

func (r *DocumentUserRepository) Delete(ctx context.Context, id string) error {
	return r.db.Delete(ctx, store.CollectionUsers, id)
}

func (r *DocumentUserRepository) Get(ctx context.Context, id string, projection store.Projection) (store.Document, error) {
	return r.db.FindByID(ctx, store.CollectionUsers, id, projection)
}

func (r *DocumentUserRepository) List(ctx context.Context, q store.Query) ([]store.Document, error) {
	return r.db.Find(ctx, store.CollectionUsers, q)
}

func (r *DocumentUserRepository) Count(ctx context.Context, filter store.Filter) (int64, error) {
	return r.db.Count(ctx, store.CollectionUsers, filter)
}
