package entities

// PredicateOp enumerates the predicate shapes the catalog store must satisfy.
type PredicateOp string

const (
	OpEq       PredicateOp = "eq"       // field equality
	OpGte      PredicateOp = "gte"      // inclusive lower bound
	OpLte      PredicateOp = "lte"      // inclusive upper bound
	OpContains PredicateOp = "contains" // case-insensitive substring
	OpHas      PredicateOp = "has"      // array membership
	OpAnd      PredicateOp = "and"      // all sub-predicates match
	OpOr       PredicateOp = "or"       // any sub-predicate matches
)

// Predicate is one node of a store-query filter tree. Leaf predicates carry
// Field and Value; OpAnd/OpOr carry Sub and ignore Field/Value.
type Predicate struct {
	Op    PredicateOp `json:"op"`
	Field string      `json:"field,omitempty"`
	Value interface{} `json:"value,omitempty"`
	Sub   []Predicate `json:"sub,omitempty"`
}

// StoreQuery is the compiled filter handed to the catalog store.
// Top-level predicates are AND-combined.
type StoreQuery struct {
	Where []Predicate `json:"where"`
}

// Eq builds an equality predicate.
func Eq(field string, value interface{}) Predicate {
	return Predicate{Op: OpEq, Field: field, Value: value}
}

// Gte builds an inclusive lower-bound predicate.
func Gte(field string, value interface{}) Predicate {
	return Predicate{Op: OpGte, Field: field, Value: value}
}

// Lte builds an inclusive upper-bound predicate.
func Lte(field string, value interface{}) Predicate {
	return Predicate{Op: OpLte, Field: field, Value: value}
}

// Contains builds a case-insensitive substring predicate.
func Contains(field, value string) Predicate {
	return Predicate{Op: OpContains, Field: field, Value: value}
}

// Has builds an array-membership predicate.
func Has(field, value string) Predicate {
	return Predicate{Op: OpHas, Field: field, Value: value}
}

// And combines predicates so that all must match.
func And(sub ...Predicate) Predicate {
	return Predicate{Op: OpAnd, Sub: sub}
}

// Or combines predicates so that any may match.
func Or(sub ...Predicate) Predicate {
	return Predicate{Op: OpOr, Sub: sub}
}
