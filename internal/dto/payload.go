package dto

import (
	"fmt"
	"strings"
)

// Mode selects the validation rules for a payload.
type Mode int

const (
	ModeCreate Mode = iota
	ModeReplace
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidField(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Response is the envelope of every API response.
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func optionalString(body map[string]any, key string) (*string, error) {
	v, ok := body[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, invalidField(key, "%s must be a string", key)
	}
	return &s, nil
}

func optionalBool(body map[string]any, key string) (*bool, error) {
	v, ok := body[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch b := v.(type) {
	case bool:
		return &b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			t := true
			return &t, nil
		case "false":
			f := false
			return &f, nil
		}
	}
	return nil, invalidField(key, "%s must be a boolean", key)
}

func optionalStringList(body map[string]any, key string) ([]string, bool, error) {
	v, ok := body[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	switch list := v.(type) {
	case string:
		if strings.TrimSpace(list) == "" {
			return []string{}, true, nil
		}
		return []string{strings.TrimSpace(list)}, true, nil
	case []string:
		return append([]string{}, list...), true, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, true, invalidField(key, "%s must be a list of ids", key)
			}
			out = append(out, s)
		}
		return out, true, nil
	default:
		return nil, true, invalidField(key, "%s must be a list of ids", key)
	}
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
