// Package query turns the list endpoint parameters (where, sort, select, skip,
// limit, count) into a store query.
package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/shuweic/mp3/internal/store"
)

// DefaultTaskLimit caps task listings that do not name a limit.
const DefaultTaskLimit int64 = 100

// Error is a rejected query parameter.
type Error struct {
	Param   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func invalid(param, format string, args ...any) *Error {
	return &Error{Param: param, Message: fmt.Sprintf(format, args...)}
}

// Query is the parsed form of the list parameters. A nil Limit means the
// caller asked for no limit.
type Query struct {
	Filter     store.Filter
	Sort       []store.SortField
	Projection store.Projection
	Skip       int64
	Limit      *int64
	CountOnly  bool
}

// ZeroLimit reports whether the client explicitly asked for no documents.
func (q *Query) ZeroLimit() bool {
	return q.Limit != nil && *q.Limit == 0
}

// Store converts q into the descriptor understood by store.Store.
func (q *Query) Store() store.Query {
	sq := store.Query{
		Filter:     q.Filter,
		Sort:       q.Sort,
		Projection: q.Projection,
		Skip:       q.Skip,
	}
	if q.Limit != nil {
		sq.Limit = *q.Limit
	}
	return sq
}

// Parse validates the parameters for a listing of collection.
func Parse(values url.Values, collection string) (*Query, error) {
	q := &Query{Filter: store.Filter{}}

	if raw := values.Get("where"); raw != "" {
		filter, err := parseWhere(raw)
		if err != nil {
			return nil, err
		}
		q.Filter = filter
	}

	if raw := values.Get("sort"); raw != "" {
		sort, err := parseSort(raw)
		if err != nil {
			return nil, err
		}
		q.Sort = sort
	}

	projection, err := ParseProjection(values)
	if err != nil {
		return nil, err
	}
	q.Projection = projection

	if raw := values.Get("skip"); raw != "" {
		skip, err := parseCount("skip", raw)
		if err != nil {
			return nil, err
		}
		q.Skip = skip
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := parseCount("limit", raw)
		if err != nil {
			return nil, err
		}
		q.Limit = &limit
	} else if collection == store.CollectionTasks {
		limit := DefaultTaskLimit
		q.Limit = &limit
	}

	q.CountOnly = values.Get("count") == "true"
	if q.CountOnly && len(q.Projection) > 0 {
		return nil, invalid("select", "select cannot be combined with count=true")
	}

	return q, nil
}

// ParseProjection reads only the select parameter.
func ParseProjection(values url.Values) (store.Projection, error) {
	raw := values.Get("select")
	if raw == "" {
		return nil, nil
	}

	pairs, err := orderedObject("select", raw)
	if err != nil {
		return nil, err
	}

	projection := make(store.Projection, len(pairs))
	for _, p := range pairs {
		keep, ok := inclusion(p.value)
		if !ok {
			return nil, invalid("select", "select value for %q must be 1, 0, true or false", p.key)
		}
		projection[p.key] = keep
	}

	var include, exclude bool
	for field, keep := range projection {
		if field == store.IDField {
			continue
		}
		if keep {
			include = true
		} else {
			exclude = true
		}
	}
	if include && exclude {
		return nil, invalid("select", "select cannot mix inclusion and exclusion")
	}

	return projection, nil
}

func parseWhere(raw string) (store.Filter, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, invalid("where", "Invalid JSON in 'where' parameter")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, invalid("where", "'where' parameter must be a JSON object")
	}
	return store.Filter(obj), nil
}

func parseSort(raw string) ([]store.SortField, error) {
	pairs, err := orderedObject("sort", raw)
	if err != nil {
		return nil, err
	}

	sort := make([]store.SortField, 0, len(pairs))
	for _, p := range pairs {
		desc, ok := direction(p.value)
		if !ok {
			return nil, invalid("sort", "sort direction for %q must be 1 or -1", p.key)
		}
		sort = append(sort, store.SortField{Field: p.key, Desc: desc})
	}
	return sort, nil
}

func parseCount(param, raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, invalid(param, "'%s' parameter must be an integer", param)
	}
	if n < 0 {
		return 0, invalid(param, "'%s' parameter must be a non-negative integer", param)
	}
	return n, nil
}

func direction(v any) (desc bool, ok bool) {
	switch d := v.(type) {
	case float64:
		switch d {
		case 1:
			return false, true
		case -1:
			return true, true
		}
	case string:
		switch strings.ToLower(d) {
		case "asc", "ascending":
			return false, true
		case "desc", "descending":
			return true, true
		}
	}
	return false, false
}

func inclusion(v any) (keep bool, ok bool) {
	switch i := v.(type) {
	case bool:
		return i, true
	case float64:
		switch i {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return false, false
}

type pair struct {
	key   string
	value any
}

// orderedObject decodes a flat JSON object keeping its key order. Later
// duplicates overwrite earlier values in place.
func orderedObject(param, raw string) ([]pair, error) {
	badJSON := invalid(param, "Invalid JSON in '%s' parameter", param)

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	tok, err := dec.Token()
	if err != nil {
		return nil, badJSON
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, invalid(param, "'%s' parameter must be a JSON object", param)
	}

	var pairs []pair
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, badJSON
		}
		key, ok := tok.(string)
		if !ok {
			return nil, badJSON
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, badJSON
		}
		if i, seen := index[key]; seen {
			pairs[i].value = value
			continue
		}
		index[key] = len(pairs)
		pairs = append(pairs, pair{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, badJSON
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, badJSON
	}
	return pairs, nil
}
