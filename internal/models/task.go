package models

import (
	"time"

	"github.com/shuweic/mp3/internal/store"
)

// UnassignedName is the assignedUserName of a task with no assignee.
const UnassignedName = "unassigned"

type Task struct {
	ID               string    `json:"_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Deadline         time.Time `json:"deadline"`
	Completed        bool      `json:"completed"`
	AssignedUser     string    `json:"assignedUser"`
	AssignedUserName string    `json:"assignedUserName"`
	DateCreated      time.Time `json:"dateCreated"`
}

// Document returns the stored form of the task without its id.
func (t *Task) Document() store.Document {
	return store.Document{
		"name":             t.Name,
		"description":      t.Description,
		"deadline":         t.Deadline,
		"completed":        t.Completed,
		"assignedUser":     t.AssignedUser,
		"assignedUserName": t.AssignedUserName,
		"dateCreated":      t.DateCreated,
	}
}

// Pending reports whether the task belongs in its assignee's pendingTasks.
func (t *Task) Pending() bool {
	return t.AssignedUser != "" && !t.Completed
}

// AssignTo records u as the assignee and snapshots its name.
func (t *Task) AssignTo(u *User) {
	t.AssignedUser = u.ID
	t.AssignedUserName = u.Name
}

// Unassign resets the assignment to the unassigned sentinel.
func (t *Task) Unassign() {
	t.AssignedUser = ""
	t.AssignedUserName = UnassignedName
}

// UnassignedPatch is the update applied to tasks losing their assignee.
func UnassignedPatch() store.Document {
	return store.Document{
		"assignedUser":     "",
		"assignedUserName": UnassignedName,
	}
}

// TaskFromDocument decodes a stored task.
func TaskFromDocument(doc store.Document) (*Task, error) {
	t := &Task{}
	var err error
	if t.ID, err = stringField(doc, store.IDField); err != nil {
		return nil, err
	}
	if t.Name, err = stringField(doc, "name"); err != nil {
		return nil, err
	}
	if t.Description, err = stringField(doc, "description"); err != nil {
		return nil, err
	}
	if t.Deadline, err = timeField(doc, "deadline"); err != nil {
		return nil, err
	}
	if t.Completed, err = boolField(doc, "completed"); err != nil {
		return nil, err
	}
	if t.AssignedUser, err = stringField(doc, "assignedUser"); err != nil {
		return nil, err
	}
	if t.AssignedUserName, err = stringField(doc, "assignedUserName"); err != nil {
		return nil, err
	}
	if t.DateCreated, err = timeField(doc, "dateCreated"); err != nil {
		return nil, err
	}
	if t.AssignedUser == "" && t.AssignedUserName == "" {
		t.AssignedUserName = UnassignedName
	}
	return t, nil
}
