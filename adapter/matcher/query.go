package matcher

// Numeric representations of supported logic operators.
const (
	And uint8 = iota
	Or
	Not
)

// Numeric representations of supported field operators.
const (
	Eq uint8 = iota
	Ne
	Exists
	Lt
	Lte
	Gt
	Gte
	In
	Nin
	NotCond
)

// LogicOp stores a logic operator (and, or, not) and its children, which can be
// either a set of rules or a nested set of LogicOps.
type LogicOp struct {
	Type  uint8
	Rules []FieldRule
	Sub   []LogicOp
}

// FieldRule stores a set of conditions used to match a given document field.
type FieldRule struct {
	Addr  []string
	Conds []Cond
}

// Cond stores a single operation on a document field (such as $gt, $in).
// For NotCond, Sub holds the negated conditions.
type Cond struct {
	Op  uint8
	Val any
	Sub []Cond
}
