package query

// Operator is a binary comparison operator of a predicate leaf.
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
)

func (op Operator) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	default:
		return "?"
	}
}

type PredicateKind int

const (
	PredicateComparison PredicateKind = iota
	PredicateAnd
	PredicateOr
	PredicateNot
	PredicateIsNull
	PredicateIsNotNull
)

// Predicate is a boolean expression tree over backing columns. Leaf values
// are always emitted as bound parameters by the backend generators, never
// interpolated into statement text.
type Predicate struct {
	Kind PredicateKind
	// Qualifier holds the object name for columns of a joined object;
	// empty for columns of the statement's target object
	Qualifier string
	Column    string
	Operator  Operator
	Value     interface{}
	Children  []*Predicate
}

func Compare(column string, op Operator, value interface{}) *Predicate {
	return &Predicate{Kind: PredicateComparison, Column: column, Operator: op, Value: value}
}

func CompareQualified(qualifier string, column string, op Operator, value interface{}) *Predicate {
	return &Predicate{Kind: PredicateComparison, Qualifier: qualifier, Column: column, Operator: op, Value: value}
}

func IsNull(column string) *Predicate {
	return &Predicate{Kind: PredicateIsNull, Column: column}
}

func IsNotNull(column string) *Predicate {
	return &Predicate{Kind: PredicateIsNotNull, Column: column}
}

// And conjoins predicates, ignoring nil inputs. A single surviving child
// is returned as-is.
func And(predicates ...*Predicate) *Predicate {
	return compose(PredicateAnd, predicates)
}

// Or disjoins predicates, ignoring nil inputs.
func Or(predicates ...*Predicate) *Predicate {
	return compose(PredicateOr, predicates)
}

func Not(predicate *Predicate) *Predicate {
	if predicate == nil {
		return nil
	}
	return &Predicate{Kind: PredicateNot, Children: []*Predicate{predicate}}
}

func compose(kind PredicateKind, predicates []*Predicate) *Predicate {
	children := make([]*Predicate, 0, len(predicates))
	for _, predicate := range predicates {
		if predicate != nil {
			children = append(children, predicate)
		}
	}
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	default:
		return &Predicate{Kind: kind, Children: children}
	}
}
