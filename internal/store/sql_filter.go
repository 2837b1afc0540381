package store

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// applyFilter adds the WHERE clause for filter to tx.
func applyFilter(tx *gorm.DB, sch schema, filter Filter) (*gorm.DB, error) {
	if len(filter) == 0 {
		return tx, nil
	}
	exprs, err := filterExpressions(sch, filter)
	if err != nil {
		return nil, err
	}
	if len(exprs) == 0 {
		return tx, nil
	}
	return tx.Clauses(clause.Where{Exprs: exprs}), nil
}

// filterExpressions translates a query document into gorm clause expressions.
// Keys are visited in sorted order so the generated SQL is stable.
func filterExpressions(sch schema, filter map[string]any) ([]clause.Expression, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	exprs := make([]clause.Expression, 0, len(keys))
	for _, key := range keys {
		val := filter[key]

		switch key {
		case "$and", "$or", "$nor":
			expr, err := combinator(sch, key, val)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, expr)
			continue
		}

		if strings.HasPrefix(key, "$") {
			return nil, fmt.Errorf("%w: operator %s", ErrUnsupportedQuery, key)
		}
		f, ok := sch[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrUnsupportedQuery, key)
		}
		if f.kind == kindList {
			return nil, fmt.Errorf("%w: cannot filter on %q", ErrUnsupportedQuery, key)
		}
		col := clause.Column{Name: f.column}

		if ops, ok := asMap(val); ok {
			if !isOperatorDocument(ops) {
				return nil, fmt.Errorf("%w: embedded document match on %q", ErrUnsupportedQuery, key)
			}
			opExprs, err := operatorExpressions(col, f, ops)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, opExprs...)
			continue
		}

		v, err := castValue(f, val)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, clause.Eq{Column: col, Value: v})
	}
	return exprs, nil
}

func combinator(sch schema, op string, val any) (clause.Expression, error) {
	list, ok := val.([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("%w: %s expects a non-empty array", ErrUnsupportedQuery, op)
	}

	branches := make([]clause.Expression, 0, len(list))
	for _, item := range list {
		sub, ok := asMap(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects an array of objects", ErrUnsupportedQuery, op)
		}
		exprs, err := filterExpressions(sch, sub)
		if err != nil {
			return nil, err
		}
		if len(exprs) == 0 {
			branches = append(branches, clause.Expr{SQL: "1 = 1"})
			continue
		}
		branches = append(branches, clause.And(exprs...))
	}

	switch op {
	case "$and":
		return clause.And(branches...), nil
	case "$or":
		return clause.Or(branches...), nil
	default:
		return clause.Not(clause.Or(branches...)), nil
	}
}

func operatorExpressions(col clause.Column, f field, ops map[string]any) ([]clause.Expression, error) {
	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)

	exprs := make([]clause.Expression, 0, len(names))
	for _, op := range names {
		operand := ops[op]

		switch op {
		case "$in", "$nin":
			values, err := castList(f, operand)
			if err != nil {
				return nil, err
			}
			in := clause.IN{Column: col, Values: values}
			if op == "$nin" {
				exprs = append(exprs, clause.Not(in))
			} else {
				exprs = append(exprs, in)
			}
			continue
		case "$exists":
			exists, ok := operand.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: $exists expects a boolean", ErrUnsupportedQuery)
			}
			if !exists {
				exprs = append(exprs, clause.Expr{SQL: "1 = 0"})
			}
			continue
		}

		v, err := castValue(f, operand)
		if err != nil {
			return nil, err
		}
		switch op {
		case "$eq":
			exprs = append(exprs, clause.Eq{Column: col, Value: v})
		case "$ne":
			exprs = append(exprs, clause.Neq{Column: col, Value: v})
		case "$gt":
			exprs = append(exprs, clause.Gt{Column: col, Value: v})
		case "$gte":
			exprs = append(exprs, clause.Gte{Column: col, Value: v})
		case "$lt":
			exprs = append(exprs, clause.Lt{Column: col, Value: v})
		case "$lte":
			exprs = append(exprs, clause.Lte{Column: col, Value: v})
		default:
			return nil, fmt.Errorf("%w: operator %s", ErrUnsupportedQuery, op)
		}
	}
	return exprs, nil
}

func castList(f field, operand any) ([]any, error) {
	list, ok := operand.([]any)
	if !ok {
		if strs, isStrings := operand.([]string); isStrings {
			list = make([]any, len(strs))
			for i, s := range strs {
				list[i] = s
			}
		} else {
			return nil, fmt.Errorf("%w: expected an array", ErrUnsupportedQuery)
		}
	}

	values := make([]any, len(list))
	for i, item := range list {
		v, err := castValue(f, item)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func castValue(f field, v any) (any, error) {
	if f.kind == kindTime && v != nil {
		return castTimeValue(v)
	}
	if _, isMap := asMap(v); isMap {
		return nil, fmt.Errorf("%w: document values are not supported", ErrUnsupportedQuery)
	}
	if _, isList := v.([]any); isList {
		return nil, fmt.Errorf("%w: array values are not supported", ErrUnsupportedQuery)
	}
	return v, nil
}
