package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shuweic/mp3/internal/dto"
	"github.com/shuweic/mp3/internal/models"
	"github.com/shuweic/mp3/internal/repository"
	"github.com/shuweic/mp3/internal/store"
)

// UserService handles user business logic
type UserService struct {
	reader
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, taskRepo repository.TaskRepository) *UserService {
	return &UserService{
		reader:   reader{repo: userRepo, notFound: ErrUserNotFound},
		userRepo: userRepo,
		taskRepo: taskRepo,
	}
}

// CreateUser inserts a user. Tasks are not touched.
func (s *UserService) CreateUser(ctx context.Context, p *dto.UserPayload) (*models.User, error) {
	if err := p.Validate(dto.ModeCreate); err != nil {
		return nil, err
	}

	user := &models.User{DateCreated: now()}
	p.Apply(user)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ReplaceUser overwrites a user and reconciles the tasks named in the old and
// new pendingTasks. The stored pendingTasks is then rebuilt from the tasks
// actually assigned to the user: the requested order first, followed by any
// other incomplete task assigned to the user, oldest first.
func (s *UserService) ReplaceUser(ctx context.Context, id string, p *dto.UserPayload) (*models.User, error) {
	if err := p.Validate(dto.ModeReplace); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}

	oldPending := user.PendingTasks
	p.Apply(user)
	requested := user.PendingTasks

	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to update user: %w", mapNotFound(err, ErrUserNotFound))
	}

	if removed := difference(oldPending, requested); len(removed) > 0 {
		_, err := s.taskRepo.UnassignMany(ctx, store.Filter{
			store.IDField:  store.Filter{"$in": removed},
			"assignedUser": user.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to unassign tasks: %w", err)
		}
	}

	for _, taskID := range requested {
		if err := s.claimTask(ctx, user, taskID); err != nil {
			return nil, err
		}
	}

	if err := s.rebuildPending(ctx, user, requested); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser unassigns the user's incomplete tasks and removes the user.
// Completed tasks keep their historical assignment.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return mapNotFound(err, ErrUserNotFound)
	}

	if _, err := s.taskRepo.UnassignMany(ctx, store.Filter{
		"assignedUser": user.ID,
		"completed":    false,
	}); err != nil {
		return fmt.Errorf("failed to unassign tasks: %w", err)
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", mapNotFound(err, ErrUserNotFound))
	}
	return nil
}

// claimTask assigns taskID to user, taking it away from its previous
// assignee. Missing tasks are skipped.
func (s *UserService) claimTask(ctx context.Context, user *models.User, taskID string) error {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if isMissing(err) {
			return nil
		}
		return fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	if prevID := task.AssignedUser; prevID != "" && prevID != user.ID {
		if err := s.userRepo.RemovePending(ctx, prevID, task.ID); err != nil && !isMissing(err) {
			return fmt.Errorf("failed to remove pending task: %w", err)
		}
	}

	task.AssignTo(user)
	if err := s.taskRepo.Save(ctx, task); err != nil && !isMissing(err) {
		return fmt.Errorf("failed to assign task %s: %w", taskID, err)
	}
	return nil
}

// rebuildPending derives user.PendingTasks from the incomplete tasks assigned
// to the user and refreshes their assignedUserName snapshot.
func (s *UserService) rebuildPending(ctx context.Context, user *models.User, requested []string) error {
	tasks, err := s.taskRepo.FindPendingByAssignee(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load pending tasks: %w", err)
	}

	assigned := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		assigned[task.ID] = struct{}{}
		if task.AssignedUserName != user.Name {
			task.AssignTo(user)
			if err := s.taskRepo.Save(ctx, task); err != nil && !isMissing(err) {
				return fmt.Errorf("failed to refresh task %s: %w", task.ID, err)
			}
		}
	}

	pending := make([]string, 0, len(tasks))
	for _, id := range requested {
		if _, ok := assigned[id]; ok {
			pending = append(pending, id)
			delete(assigned, id)
		}
	}
	for _, task := range tasks {
		if _, ok := assigned[task.ID]; ok {
			pending = append(pending, task.ID)
		}
	}

	if equalIDs(pending, requested) {
		return nil
	}
	user.PendingTasks = pending
	if err := s.userRepo.SetPendingTasks(ctx, user); err != nil {
		return fmt.Errorf("failed to update pending tasks: %w", err)
	}
	return nil
}

// difference returns the ids of a that are not in b.
func difference(a, b []string) []string {
	keep := make(map[string]struct{}, len(b))
	for _, id := range b {
		keep[id] = struct{}{}
	}
	var out []string
	for _, id := range a {
		if _, ok := keep[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
