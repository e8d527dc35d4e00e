// Package queryir is a small query representation for reading document
// collections: ordered selects filtered by equality and membership.
//
// Query, Predicate and Value are sealed interfaces using the marker method
// pattern, so backends can switch over them exhaustively:
//
//	switch q := query.(type) {
//	case Select:
//	    // the only query kind
//	}
//
// The representation is deliberately narrow:
//   - Select(from, fields, filter, order) over one collection
//   - Predicates: Equals, In, And
//   - Values: String, Int, Bool (no floats, no NULL)
//
// Every compiled query must carry a stable order; backends append the
// document id as the final tiebreaker.
package queryir
