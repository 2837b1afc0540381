package repository

import (
	"context"

	"github.com/shuweic/mp3/internal/models"
	"github.com/shuweic/mp3/internal/store"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create inserts the user and sets its ID
	Create(ctx context.Context, user *models.User) error

	// FindByID loads a full user
	FindByID(ctx context.Context, id string) (*models.User, error)

	// Save overwrites name, email and pendingTasks
	Save(ctx context.Context, user *models.User) error

	// SetPendingTasks overwrites only pendingTasks
	SetPendingTasks(ctx context.Context, user *models.User) error

	// AddPending atomically appends taskID to pendingTasks unless present
	AddPending(ctx context.Context, userID, taskID string) error

	// RemovePending atomically drops taskID from pendingTasks
	RemovePending(ctx context.Context, userID, taskID string) error

	// Delete removes a user
	Delete(ctx context.Context, id string) error

	// Get returns the stored document restricted by projection
	Get(ctx context.Context, id string, projection store.Projection) (store.Document, error)

	// List runs a translated list query
	List(ctx context.Context, q store.Query) ([]store.Document, error)

	// Count counts users matching filter
	Count(ctx context.Context, filter store.Filter) (int64, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts the task and sets its ID
	Create(ctx context.Context, task *models.Task) error

	// FindByID loads a full task
	FindByID(ctx context.Context, id string) (*models.Task, error)

	// Save overwrites every mutable field of the task
	Save(ctx context.Context, task *models.Task) error

	// Delete removes a task
	Delete(ctx context.Context, id string) error

	// Get returns the stored document restricted by projection
	Get(ctx context.Context, id string, projection store.Projection) (store.Document, error)

	// List runs a translated list query
	List(ctx context.Context, q store.Query) ([]store.Document, error)

	// Count counts tasks matching filter
	Count(ctx context.Context, filter store.Filter) (int64, error)

	// FindPendingByAssignee lists incomplete tasks assigned to userID, oldest first
	FindPendingByAssignee(ctx context.Context, userID string) ([]*models.Task, error)

	// UnassignMany resets every task matching filter to the unassigned sentinel
	UnassignMany(ctx context.Context, filter store.Filter) (int64, error)
}
