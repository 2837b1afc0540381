package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindBool
	kindTime
	kindList
)

type field struct {
	column string
	kind   fieldKind
}

type schema map[string]field

// Persisted layout of both collections, keyed by document field.
var schemas = map[string]schema{
	CollectionUsers: {
		IDField:        {column: "id", kind: kindString},
		"name":         {column: "name", kind: kindString},
		"email":        {column: "email", kind: kindString},
		"pendingTasks": {column: "pending_tasks", kind: kindList},
		"dateCreated":  {column: "date_created", kind: kindTime},
	},
	CollectionTasks: {
		IDField:            {column: "id", kind: kindString},
		"name":             {column: "name", kind: kindString},
		"description":      {column: "description", kind: kindString},
		"deadline":         {column: "deadline", kind: kindTime},
		"completed":        {column: "completed", kind: kindBool},
		"assignedUser":     {column: "assigned_user", kind: kindString},
		"assignedUserName": {column: "assigned_user_name", kind: kindString},
		"dateCreated":      {column: "date_created", kind: kindTime},
	},
}

func schemaFor(collection string) (schema, error) {
	s, ok := schemas[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return s, nil
}

func listField(collection, name string) (field, error) {
	sch, err := schemaFor(collection)
	if err != nil {
		return field{}, err
	}
	f, ok := sch[name]
	if !ok || f.kind != kindList {
		return field{}, fmt.Errorf("%w: %q is not a list field", ErrUnsupportedQuery, name)
	}
	return f, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp converts the value forms accepted for date fields: time.Time,
// date or date-time strings and numbers of milliseconds since the epoch.
func ParseTimestamp(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), nil
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid timestamp %q", val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return time.Time{}, fmt.Errorf("invalid timestamp %v", val)
		}
		return time.UnixMilli(int64(val)).UTC(), nil
	case int:
		return time.UnixMilli(int64(val)).UTC(), nil
	case int64:
		return time.UnixMilli(val).UTC(), nil
	case json.Number:
		ms, err := val.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", val.String())
		}
		return time.UnixMilli(ms).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("invalid timestamp of type %T", v)
	}
}

// castFilter returns a copy of filter with values of date fields converted to
// time.Time, so that string dates compare against stored timestamps.
func castFilter(s schema, filter Filter) (Filter, error) {
	out := make(Filter, len(filter))
	for key, val := range filter {
		switch key {
		case "$and", "$or", "$nor":
			list, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s expects an array", ErrUnsupportedQuery, key)
			}
			cast := make([]any, len(list))
			for i, item := range list {
				sub, ok := asMap(item)
				if !ok {
					return nil, fmt.Errorf("%w: %s expects an array of objects", ErrUnsupportedQuery, key)
				}
				c, err := castFilter(s, sub)
				if err != nil {
					return nil, err
				}
				cast[i] = map[string]any(c)
			}
			out[key] = cast
		default:
			f, known := s[key]
			if !known || f.kind != kindTime {
				out[key] = val
				continue
			}
			c, err := castTimeCondition(val)
			if err != nil {
				return nil, err
			}
			out[key] = c
		}
	}
	return out, nil
}

func castTimeCondition(val any) (any, error) {
	ops, ok := asMap(val)
	if !ok || !isOperatorDocument(ops) {
		return castTimeValue(val)
	}
	cast := make(map[string]any, len(ops))
	for op, operand := range ops {
		switch op {
		case "$in", "$nin":
			list, ok := operand.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s expects an array", ErrUnsupportedQuery, op)
			}
			values := make([]any, len(list))
			for i, item := range list {
				v, err := castTimeValue(item)
				if err != nil {
					return nil, err
				}
				values[i] = v
			}
			cast[op] = values
		case "$exists":
			cast[op] = operand
		default:
			v, err := castTimeValue(operand)
			if err != nil {
				return nil, err
			}
			cast[op] = v
		}
	}
	return cast, nil
}

func castTimeValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	t, err := ParseTimestamp(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedQuery, err)
	}
	return t, nil
}

func isOperatorDocument(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for key := range m {
		if !strings.HasPrefix(key, "$") {
			return false
		}
	}
	return true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Filter:
		return m, true
	case Document:
		return m, true
	default:
		return nil, false
	}
}
