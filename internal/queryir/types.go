package queryir

// Query is a sealed read query.
type Query interface {
	queryNode()
}

// Predicate is a sealed filter condition.
type Predicate interface {
	predicateNode()
}

// Value is a sealed literal usable in predicates.
type Value interface {
	valueNode()
}

// String is a text literal.
type String string

// Int is an integer literal.
type Int int64

// Bool is a boolean literal.
type Bool bool

func (String) valueNode() {}
func (Int) valueNode()    {}
func (Bool) valueNode()   {}

// Select reads Fields from the collection From.
//
//	Select{
//	  From:   "quotation_requests",
//	  Fields: []string{"id", "item", "quote"},
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "procurement_task", Value: String("PR-1")},
//	    Equals{Field: "vendor", Value: String("V1")},
//	  }},
//	}
//
// An empty Fields list selects every column. OrderBy lists ascending sort
// keys; the id column is always appended as the last key.
type Select struct {
	From    string
	Fields  []string
	Filter  Predicate
	OrderBy []string
}

func (Select) queryNode() {}

// Equals matches documents whose field equals Value.
type Equals struct {
	Field string
	Value Value
}

func (Equals) predicateNode() {}

// In matches documents whose field equals any of Values.
// An empty Values list matches nothing.
type In struct {
	Field  string
	Values []Value
}

func (In) predicateNode() {}

// And matches documents satisfying every predicate. An empty And matches
// everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Strings converts text values for use in In.
func Strings[S ~string](vals ...S) []Value {
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = String(v)
	}
	return out
}

// Where builds a Select filtered by the conjunction of preds.
func Where(from string, preds ...Predicate) Select {
	sel := Select{From: from}
	switch len(preds) {
	case 0:
	case 1:
		sel.Filter = preds[0]
	default:
		sel.Filter = And{Predicates: preds}
	}
	return sel
}
