package dto

import (
	"github.com/shuweic/mp3/internal/models"
)

// UserPayload is the body of POST and PUT /api/users.
type UserPayload struct {
	Name         *string
	Email        *string
	PendingTasks []string
}

// NewUserPayload reads a decoded request body. Unknown keys, _id and
// dateCreated are ignored.
func NewUserPayload(body map[string]any) (*UserPayload, error) {
	p := &UserPayload{}
	var err error
	if p.Name, err = optionalString(body, "name"); err != nil {
		return nil, err
	}
	if p.Email, err = optionalString(body, "email"); err != nil {
		return nil, err
	}
	if p.PendingTasks, _, err = optionalStringList(body, "pendingTasks"); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *UserPayload) Validate(mode Mode) error {
	if mode == ModeReplace {
		if p.Name == nil || p.Email == nil {
			return invalidField("name", "name and email are required for replacement")
		}
		if blank(p.Name) {
			return invalidField("name", "name cannot be empty")
		}
		if blank(p.Email) {
			return invalidField("email", "email cannot be empty")
		}
		return nil
	}

	if blank(p.Name) {
		return invalidField("name", "name is required")
	}
	if blank(p.Email) {
		return invalidField("email", "email is required")
	}
	return nil
}

// Apply overwrites the client controlled fields of u.
func (p *UserPayload) Apply(u *models.User) {
	u.Name = *p.Name
	u.Email = *p.Email
	u.PendingTasks = models.UniqueIDs(p.PendingTasks)
}
