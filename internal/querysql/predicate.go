package querysql

// Predicate is a node in a WHERE clause tree.
//
// Implementations: Equals, Contains, Compare, And, Or.
type Predicate interface {
	predicate()
}

// Equals matches rows where Field equals Value.
type Equals struct {
	Field string
	Value any
}

// Contains matches rows where Field contains Substring (LIKE '%s%').
// LIKE wildcards inside Substring are escaped and match literally.
type Contains struct {
	Field     string
	Substring string
}

// Compare matches rows where Field Op Value, for Op one of <, <=, >, >=.
type Compare struct {
	Field string
	Op    string
	Value any
}

// And is the conjunction of its predicates. An empty And is always true.
type And struct {
	Predicates []Predicate
}

// Or is the disjunction of its predicates. An empty Or is always false.
type Or struct {
	Predicates []Predicate
}

func (Equals) predicate()   {}
func (Contains) predicate() {}
func (Compare) predicate()  {}
func (And) predicate()      {}
func (Or) predicate()       {}
