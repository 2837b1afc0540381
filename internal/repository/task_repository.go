package repository

import (
	"context"
	"fmt"

	"github.com/shuweic/mp3/internal/models"
	"github.com/shuweic/mp3/internal/store"
)

// DocumentTaskRepository is a store.Store implementation of TaskRepository
type DocumentTaskRepository struct {
	db store.Store
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db store.Store) TaskRepository {
	return &DocumentTaskRepository{db: db}
}

func (r *DocumentTaskRepository) Create(ctx context.Context, task *models.Task) error {
	id, err := r.db.Insert(ctx, store.CollectionTasks, task.Document())
	if err != nil {
		return err
	}
	task.ID = id
	return nil
}

func (r *DocumentTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	doc, err := r.db.FindByID(ctx, store.CollectionTasks, id, nil)
	if err != nil {
		return nil, err
	}
	task, err := models.TaskFromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return task, nil
}

func (r *DocumentTaskRepository) Save(ctx context.Context, task *models.Task) error {
	doc := task.Document()
	delete(doc, "dateCreated")
	return r.db.Update(ctx, store.CollectionTasks, task.ID, doc)
}

func (r *DocumentTaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.Delete(ctx, store.CollectionTasks, id)
}

func (r *DocumentTaskRepository) Get(ctx context.Context, id string, projection store.Projection) (store.Document, error) {
	return r.db.FindByID(ctx, store.CollectionTasks, id, projection)
}

func (r *DocumentTaskRepository) List(ctx context.Context, q store.Query) ([]store.Document, error) {
	return r.db.Find(ctx, store.CollectionTasks, q)
}

func (r *DocumentTaskRepository) Count(ctx context.Context, filter store.Filter) (int64, error) {
	return r.db.Count(ctx, store.CollectionTasks, filter)
}

func (r *DocumentTaskRepository) FindPendingByAssignee(ctx context.Context, userID string) ([]*models.Task, error) {
	docs, err := r.db.Find(ctx, store.CollectionTasks, store.Query{
		Filter: store.Filter{"assignedUser": userID, "completed": false},
		Sort:   []store.SortField{{Field: "dateCreated"}, {Field: store.IDField}},
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]*models.Task, 0, len(docs))
	for _, doc := range docs {
		task, err := models.TaskFromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (r *DocumentTaskRepository) UnassignMany(ctx context.Context, filter store.Filter) (int64, error) {
	return r.db.UpdateMany(ctx, store.CollectionTasks, filter, models.UnassignedPatch())
}
