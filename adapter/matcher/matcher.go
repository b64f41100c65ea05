// Package matcher contains the default implementation of [domain.Matcher]
// using a basic mongo-like filter syntax.
package matcher

import (
	"strings"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Matcher implements [domain.Matcher].
type Matcher struct {
	comparer       domain.Comparer
	fieldNavigator domain.FieldNavigator
}

// NewMatcher returns a new implementation of [domain.Matcher].
func NewMatcher(options ...Option) domain.Matcher {
	m := &Matcher{
		comparer:       comparer.NewComparer(),
		fieldNavigator: fieldnavigator.NewFieldNavigator(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Compile implements [domain.Matcher]. A nil filter matches everything.
func (m *Matcher) Compile(filter domain.Document) (domain.Query, error) {
	if filter == nil {
		return &query{m: m, root: LogicOp{Type: And}}, nil
	}
	root, err := m.compileDoc(filter)
	if err != nil {
		return nil, err
	}
	return &query{m: m, root: root}, nil
}

func (m *Matcher) compileDoc(filter domain.Document) (LogicOp, error) {
	lo := LogicOp{Type: And}
	for key, value := range filter.Iter() {
		if !strings.HasPrefix(key, "$") {
			rule, err := m.makeFieldRule(key, value)
			if err != nil {
				return lo, err
			}
			lo.Rules = append(lo.Rules, rule)
			continue
		}

		switch key {
		case "$and", "$or":
			typ := And
			if key == "$or" {
				typ = Or
			}
			sub, err := m.makeLogicOp(typ, key, value)
			if err != nil {
				return lo, err
			}
			lo.Sub = append(lo.Sub, sub)
		case "$not":
			d, ok := value.(domain.Document)
			if !ok {
				return lo, domain.ErrOperatorArg{Operator: key, Want: "document", Actual: value}
			}
			sub, err := m.compileDoc(d)
			if err != nil {
				return lo, err
			}
			lo.Sub = append(lo.Sub, LogicOp{Type: Not, Sub: []LogicOp{sub}})
		default:
			return lo, domain.ErrUnknownOperator{Operator: key}
		}
	}
	return lo, nil
}

func (m *Matcher) makeLogicOp(typ uint8, name string, v any) (LogicOp, error) {
	lo := LogicOp{Type: typ}
	l, ok := v.(domain.List)
	if !ok {
		return lo, domain.ErrOperatorArg{Operator: name, Want: "array", Actual: v}
	}
	lo.Sub = make([]LogicOp, 0, l.Len())
	for item := range l.Values() {
		d, ok := item.(domain.Document)
		if !ok {
			return lo, domain.ErrOperatorArg{Operator: name, Want: "array of documents", Actual: item}
		}
		sub, err := m.compileDoc(d)
		if err != nil {
			return lo, err
		}
		lo.Sub = append(lo.Sub, sub)
	}
	return lo, nil
}

func (m *Matcher) makeFieldRule(field string, v any) (FieldRule, error) {
	addr, err := m.fieldNavigator.GetAddress(field)
	if err != nil {
		return FieldRule{}, err
	}
	if d, ok := v.(domain.Document); ok && m.isOperatorDoc(d) {
		conds, err := m.makeConds(d)
		return FieldRule{Addr: addr, Conds: conds}, err
	}
	return FieldRule{Addr: addr, Conds: []Cond{{Op: Eq, Val: v}}}, nil
}

// isOperatorDoc reports whether the first key of d is an operator. Plain
// documents are matched by equality.
func (m *Matcher) isOperatorDoc(d domain.Document) bool {
	for k := range d.Iter() {
		return strings.HasPrefix(k, "$")
	}
	return false
}

func (m *Matcher) makeConds(d domain.Document) ([]Cond, error) {
	conds := make([]Cond, 0, d.Len())
	for k, v := range d.Iter() {
		cond, err := m.makeCond(k, v)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func (m *Matcher) makeCond(k string, v any) (Cond, error) {
	switch k {
	case "$eq":
		return Cond{Op: Eq, Val: v}, nil
	case "$ne":
		return Cond{Op: Ne, Val: v}, nil
	case "$lt":
		return Cond{Op: Lt, Val: v}, nil
	case "$lte":
		return Cond{Op: Lte, Val: v}, nil
	case "$gt":
		return Cond{Op: Gt, Val: v}, nil
	case "$gte":
		return Cond{Op: Gte, Val: v}, nil
	case "$in", "$nin":
		l, ok := v.(domain.List)
		if !ok {
			return Cond{}, domain.ErrOperatorArg{Operator: k, Want: "array", Actual: v}
		}
		op := In
		if k == "$nin" {
			op = Nin
		}
		return Cond{Op: op, Val: l}, nil
	case "$exists":
		return m.makeExists(v)
	case "$not":
		d, ok := v.(domain.Document)
		if !ok || !m.isOperatorDoc(d) {
			return Cond{}, domain.ErrOperatorArg{Operator: k, Want: "operator document", Actual: v}
		}
		sub, err := m.makeConds(d)
		return Cond{Op: NotCond, Sub: sub}, err
	default:
		return Cond{}, domain.ErrUnknownOperator{Operator: k}
	}
}

// makeExists accepts booleans and numbers, any non-zero number meaning true.
func (m *Matcher) makeExists(v any) (Cond, error) {
	switch t := v.(type) {
	case bool:
		return Cond{Op: Exists, Val: t}, nil
	case int64:
		return Cond{Op: Exists, Val: t != 0}, nil
	case float64:
		return Cond{Op: Exists, Val: t != 0}, nil
	default:
		return Cond{}, domain.ErrOperatorArg{Operator: "$exists", Want: "boolean", Actual: v}
	}
}

type query struct {
	m    *Matcher
	root LogicOp
}

// Match implements [domain.Query].
func (q *query) Match(doc domain.Document) (bool, error) {
	return q.m.matchLogicOp(doc, q.root)
}

func (m *Matcher) matchLogicOp(doc domain.Document, lo LogicOp) (bool, error) {
	switch lo.Type {
	case And:
		for _, rule := range lo.Rules {
			if ok, err := m.matchRule(doc, rule); err != nil || !ok {
				return false, err
			}
		}
		for _, sub := range lo.Sub {
			if ok, err := m.matchLogicOp(doc, sub); err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case Or:
		for _, sub := range lo.Sub {
			if ok, err := m.matchLogicOp(doc, sub); err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case Not:
		ok, err := m.matchLogicOp(doc, lo.Sub[0])
		return !ok && err == nil, err
	default:
		return false, nil
	}
}

func (m *Matcher) matchRule(doc domain.Document, rule FieldRule) (bool, error) {
	values := m.fieldNavigator.GetField(doc, rule.Addr...)
	return m.matchConds(values, rule.Conds)
}

func (m *Matcher) matchConds(values []any, conds []Cond) (bool, error) {
	for _, cond := range conds {
		if ok, err := m.matchCond(values, cond); err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) matchCond(values []any, cond Cond) (bool, error) {
	switch cond.Op {
	case Eq:
		return m.eq(values, cond.Val)
	case Ne:
		ok, err := m.eq(values, cond.Val)
		return !ok && err == nil, err
	case Lt:
		return m.order(values, cond.Val, func(c int) bool { return c < 0 })
	case Lte:
		return m.order(values, cond.Val, func(c int) bool { return c <= 0 })
	case Gt:
		return m.order(values, cond.Val, func(c int) bool { return c > 0 })
	case Gte:
		return m.order(values, cond.Val, func(c int) bool { return c >= 0 })
	case In:
		return m.in(values, cond.Val.(domain.List))
	case Nin:
		ok, err := m.in(values, cond.Val.(domain.List))
		return !ok && err == nil, err
	case Exists:
		return (len(values) > 0) == cond.Val.(bool), nil
	case NotCond:
		ok, err := m.matchConds(values, cond.Sub)
		return !ok && err == nil, err
	default:
		return false, nil
	}
}

// eq matches if any value, or any element of an array value, equals want.
// A null want also matches an unset field.
func (m *Matcher) eq(values []any, want any) (bool, error) {
	if want == nil && len(values) == 0 {
		return true, nil
	}
	for _, v := range values {
		c, err := m.comparer.Compare(v, want)
		if err != nil || c == 0 {
			return err == nil, err
		}
		l, ok := v.(domain.List)
		if !ok {
			continue
		}
		for item := range l.Values() {
			c, err := m.comparer.Compare(item, want)
			if err != nil || c == 0 {
				return err == nil, err
			}
		}
	}
	return false, nil
}

// order matches if any comparable value, or element of an array value,
// satisfies test. Values of other kinds never match.
func (m *Matcher) order(values []any, bound any, test func(int) bool) (bool, error) {
	check := func(v any) (bool, error) {
		if !m.comparer.Comparable(v, bound) {
			return false, nil
		}
		c, err := m.comparer.Compare(v, bound)
		return err == nil && test(c), err
	}
	for _, v := range values {
		if ok, err := check(v); err != nil || ok {
			return ok, err
		}
		l, isList := v.(domain.List)
		if !isList {
			continue
		}
		for item := range l.Values() {
			if ok, err := check(item); err != nil || ok {
				return ok, err
			}
		}
	}
	return false, nil
}

func (m *Matcher) in(values []any, candidates domain.List) (bool, error) {
	for c := range candidates.Values() {
		if ok, err := m.eq(values, c); err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}
