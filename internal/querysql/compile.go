// Package querysql compiles queryir queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/quotedesk/internal/queryir"
)

// SQLCompiler compiles queryir to parameterized SQL for SQLite.
//
// Every query ends with ORDER BY ..., id ASC COLLATE BINARY so results are
// deterministic. Values are always bound as ? parameters, never interpolated;
// names are validated as plain identifiers before they reach the SQL text.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to SQL and its parameters.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if res := queryir.Validate(q); !res.Valid {
		return "", nil, fmt.Errorf("invalid query: %s", strings.Join(res.Problems, "; "))
	}
	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	cols := "*"
	if len(q.Fields) > 0 {
		cols = strings.Join(q.Fields, ", ")
	}

	var where string
	var params []any
	if q.Filter != nil {
		sql, p, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where = " WHERE " + sql
		params = p
	}

	return fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", cols, q.From, where, c.stableOrderKey(q)), params, nil
}

// stableOrderKey returns the ORDER BY list with id as the final tiebreaker.
func (c *SQLCompiler) stableOrderKey(q queryir.Select) string {
	var keys []string
	for _, f := range q.OrderBy {
		if f == "id" {
			continue
		}
		keys = append(keys, f+" ASC")
	}
	keys = append(keys, "id ASC COLLATE BINARY")
	return strings.Join(keys, ", ")
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		param, err := valueToParam(pred.Value)
		if err != nil {
			return "", nil, err
		}
		return pred.Field + " = ?", []any{param}, nil
	case *queryir.Equals:
		return c.compilePredicate(*pred)
	case queryir.In:
		if len(pred.Values) == 0 {
			return "1 = 0", nil, nil
		}
		params := make([]any, 0, len(pred.Values))
		for _, v := range pred.Values {
			param, err := valueToParam(v)
			if err != nil {
				return "", nil, err
			}
			params = append(params, param)
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(params)), ", ")
		return fmt.Sprintf("%s IN (%s)", pred.Field, marks), params, nil
	case *queryir.In:
		return c.compilePredicate(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func valueToParam(v queryir.Value) (any, error) {
	switch val := v.(type) {
	case queryir.String:
		return string(val), nil
	case queryir.Int:
		return int64(val), nil
	case queryir.Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
