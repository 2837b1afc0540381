package services

import (
	"context"
	"fmt"

	"github.com/shuweic/mp3/internal/dto"
	"github.com/shuweic/mp3/internal/models"
	"github.com/shuweic/mp3/internal/repository"
)

// TaskService handles task business logic
type TaskService struct {
	reader
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository) *TaskService {
	return &TaskService{
		reader:   reader{repo: taskRepo, notFound: ErrTaskNotFound},
		taskRepo: taskRepo,
		userRepo: userRepo,
	}
}

// CreateTask inserts a task. The assignee is resolved before the insert so a
// bad assignedUser leaves nothing behind.
func (s *TaskService) CreateTask(ctx context.Context, p *dto.TaskPayload) (*models.Task, error) {
	if err := p.Validate(dto.ModeCreate); err != nil {
		return nil, err
	}

	task := &models.Task{DateCreated: now()}
	p.Apply(task)

	var assignee *models.User
	if task.AssignedUser != "" {
		u, err := s.assignee(ctx, task.AssignedUser)
		if err != nil {
			return nil, err
		}
		assignee = u
		task.AssignTo(assignee)
	} else {
		task.Unassign()
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if assignee != nil && task.Pending() {
		if err := s.userRepo.AddPending(ctx, assignee.ID, task.ID); err != nil {
			return nil, fmt.Errorf("failed to add pending task: %w", err)
		}
	}

	return task, nil
}

// ReplaceTask overwrites a task and moves its id between pendingTasks lists
// as the assignment or completion changes.
func (s *TaskService) ReplaceTask(ctx context.Context, id string, p *dto.TaskPayload) (*models.Task, error) {
	if err := p.Validate(dto.ModeReplace); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrTaskNotFound)
	}

	oldAssigned := task.AssignedUser
	p.Apply(task)

	var newUser *models.User
	if task.AssignedUser != "" {
		if newUser, err = s.assignee(ctx, task.AssignedUser); err != nil {
			return nil, err
		}
	}

	// The same assignee is handled below, together with completion changes.
	if oldAssigned != "" && oldAssigned != task.AssignedUser {
		if err := s.userRepo.RemovePending(ctx, oldAssigned, task.ID); err != nil && !isMissing(err) {
			return nil, fmt.Errorf("failed to remove pending task: %w", err)
		}
	}

	if newUser != nil {
		task.AssignTo(newUser)
		update := s.userRepo.RemovePending
		if task.Pending() {
			update = s.userRepo.AddPending
		}
		if err := update(ctx, newUser.ID, task.ID); err != nil && !isMissing(err) {
			return nil, fmt.Errorf("failed to update pending tasks: %w", err)
		}
	} else {
		task.Unassign()
	}

	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", mapNotFound(err, ErrTaskNotFound))
	}

	return task, nil
}

// DeleteTask removes a task and drops it from its assignee's pendingTasks.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return mapNotFound(err, ErrTaskNotFound)
	}

	if task.AssignedUser != "" {
		if err := s.userRepo.RemovePending(ctx, task.AssignedUser, task.ID); err != nil && !isMissing(err) {
			return fmt.Errorf("failed to remove pending task: %w", err)
		}
	}

	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", mapNotFound(err, ErrTaskNotFound))
	}
	return nil
}

func (s *TaskService) assignee(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if isMissing(err) {
			return nil, ErrAssignedUserNotFound
		}
		return nil, fmt.Errorf("failed to load assignee: %w", err)
	}
	return user, nil
}
