package queryir

import (
	"fmt"
	"regexp"
)

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdent reports whether s is a safe collection or field name.
func IsIdent(s string) bool {
	return identRE.MatchString(s)
}

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

// Validate checks names and predicate shapes. Names end up in SQL text, so
// anything that is not a plain identifier is rejected.
//
// Validate is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.query(q)
	return ValidationResult{Valid: len(v.problems) == 0, Problems: v.problems}
}

type validator struct {
	problems []string
}

func (v *validator) add(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) ident(kind, name string) {
	if !IsIdent(name) {
		v.add("invalid %s name %q", kind, name)
	}
}

func (v *validator) query(q Query) {
	switch query := q.(type) {
	case Select:
		v.sel(query)
	case *Select:
		if query == nil {
			v.add("nil query")
			return
		}
		v.sel(*query)
	case nil:
		v.add("nil query")
	default:
		v.add("unknown query type %T", q)
	}
}

func (v *validator) sel(s Select) {
	v.ident("collection", s.From)
	for _, f := range s.Fields {
		v.ident("field", f)
	}
	for _, f := range s.OrderBy {
		v.ident("order", f)
	}
	if s.Filter != nil {
		v.predicate(s.Filter)
	}
}

func (v *validator) predicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.ident("field", pred.Field)
		v.value(pred.Field, pred.Value)
	case *Equals:
		v.predicate(*pred)
	case In:
		v.ident("field", pred.Field)
		for _, val := range pred.Values {
			v.value(pred.Field, val)
		}
	case *In:
		v.predicate(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.predicate(sub)
		}
	case *And:
		v.predicate(*pred)
	default:
		v.add("unknown predicate type %T", p)
	}
}

func (v *validator) value(field string, val Value) {
	switch val.(type) {
	case String, Int, Bool:
	case nil:
		v.add("field %q compared to nil", field)
	default:
		v.add("field %q has unknown value type %T", field, val)
	}
}
