package dto

import (
	"strings"
	"time"

	"github.com/shuweic/mp3/internal/models"
	"github.com/shuweic/mp3/internal/store"
)

// TaskPayload is the body of POST and PUT /api/tasks. assignedUserName is
// derived by the server and ignored here.
type TaskPayload struct {
	Name         *string
	Description  *string
	Deadline     *time.Time
	Completed    *bool
	AssignedUser string

	deadlinePresent bool
}

func NewTaskPayload(body map[string]any) (*TaskPayload, error) {
	p := &TaskPayload{}
	var err error
	if p.Name, err = optionalString(body, "name"); err != nil {
		return nil, err
	}
	if p.Description, err = optionalString(body, "description"); err != nil {
		return nil, err
	}
	if p.Completed, err = optionalBool(body, "completed"); err != nil {
		return nil, err
	}

	assigned, err := optionalString(body, "assignedUser")
	if err != nil {
		return nil, err
	}
	if assigned != nil {
		p.AssignedUser = strings.TrimSpace(*assigned)
	}

	if v, ok := body["deadline"]; ok && v != nil {
		p.deadlinePresent = true
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			p.deadlinePresent = false
		} else {
			deadline, err := store.ParseTimestamp(v)
			if err != nil {
				return nil, invalidField("deadline", "deadline must be a valid date")
			}
			p.Deadline = &deadline
		}
	}
	return p, nil
}

func (p *TaskPayload) Validate(mode Mode) error {
	if mode == ModeReplace {
		if p.Name == nil || !p.deadlinePresent {
			return invalidField("name", "name and deadline are required for replacement")
		}
		if blank(p.Name) {
			return invalidField("name", "name cannot be empty")
		}
		return nil
	}

	if blank(p.Name) {
		return invalidField("name", "name is required")
	}
	if !p.deadlinePresent {
		return invalidField("deadline", "deadline is required")
	}
	return nil
}

// Apply overwrites every client controlled field of t. Omitted optional
// fields revert to their defaults. The assignment snapshot is left to the
// caller.
func (p *TaskPayload) Apply(t *models.Task) {
	t.Name = *p.Name
	t.Description = ""
	if p.Description != nil {
		t.Description = *p.Description
	}
	t.Deadline = *p.Deadline
	t.Completed = p.Completed != nil && *p.Completed
	t.AssignedUser = p.AssignedUser
}
