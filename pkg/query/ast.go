package query

// Op is one of the DSL's comparison operators (spec.md §4.3).
type Op string

const (
	OpEq        Op = "="
	OpNe        Op = "!="
	OpLike      Op = "~"
	OpNotLike   Op = "!~"
	OpGe        Op = ">="
	OpGt        Op = ">"
	OpLe        Op = "<="
	OpLt        Op = "<"
)

// Constraint is one '&'-separated term of a Query: either a Filter
// (field + operator + value list) or a FullText term (value list
// matched against every string column).
type Constraint struct {
	IsFullText bool

	Field  string
	Op     Op
	Values []string // OR'd together
}

// Query is the parsed form of a q= parameter: Constraints are AND'd.
type Query struct {
	Constraints []Constraint
}
