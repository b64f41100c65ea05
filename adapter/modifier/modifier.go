// Package modifier contains a [domain.Modifier] implementation to apply changes
// to a doc based on a mongo-like API.
package modifier

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/data"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

var (
	// ErrMixedOperators is returned when user provides an update query with
	// mixed use of normal fields and dollar fields.
	ErrMixedOperators = fmt.Errorf("%w: cannot mix modifiers and normal fields", domain.ErrEngine)
	// ErrNonObject is returned when a modifier value passed by user is not
	// an object.
	ErrNonObject = fmt.Errorf("%w: modifier value must be an object", domain.ErrEngine)
)

// ErrModFieldType is returned when a modification function runs on a document
// field of a type that is not accepted.
type ErrModFieldType struct {
	Mod    string
	Want   string
	Actual any
}

// Error implements [error].
func (e ErrModFieldType) Error() string {
	return fmt.Sprintf("%s: %s expects %s field, got %T", domain.ErrEngine, e.Mod, e.Want, e.Actual)
}

func (e ErrModFieldType) Unwrap() error { return domain.ErrEngine }

// ErrModArgType is returned when a modification function is called with an
// argument of a type that is not accepted.
type ErrModArgType struct {
	Mod    string
	Want   string
	Actual any
}

// Error implements [error].
func (e ErrModArgType) Error() string {
	return fmt.Sprintf("%s: %s expects %s arg, got %T", domain.ErrEngine, e.Mod, e.Want, e.Actual)
}

func (e ErrModArgType) Unwrap() error { return domain.ErrEngine }

type modFunc func(*data.D, []string, any) error

// Modifier implements [domain.Modifier].
type Modifier struct {
	comparer       domain.Comparer
	fieldNavigator domain.FieldNavigator
	mods           map[string]modFunc
}

// NewModifier returns a new implementation of [domain.Modifier].
func NewModifier(options ...Option) domain.Modifier {
	m := &Modifier{
		comparer:       comparer.NewComparer(),
		fieldNavigator: fieldnavigator.NewFieldNavigator(),
	}
	for _, option := range options {
		option(m)
	}

	m.mods = map[string]modFunc{
		"$set":   m.set,
		"$unset": m.unset,
		"$inc":   m.inc,
		"$push":  m.push,
		"$max":   m.max,
		"$min":   m.min,
	}

	return m
}

// Modify implements [domain.Modifier]. An update without dollar fields
// replaces every field but _id.
func (m *Modifier) Modify(obj domain.Document, mod domain.Document) (domain.Document, error) {
	doc, ok := obj.(*data.D)
	if !ok {
		return nil, domain.ErrNotDocument
	}
	if mod == nil {
		return nil, ErrNonObject
	}

	replace, err := m.isReplacement(mod)
	if err != nil {
		return nil, err
	}

	var res *data.D
	if replace {
		res, err = m.replaceMod(doc, mod)
	} else {
		res, err = m.dollarMod(doc, mod)
	}
	if err != nil {
		return nil, err
	}

	if err := m.checkID(doc, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Modifier) isReplacement(mod domain.Document) (bool, error) {
	dollarFields, total := 0, 0
	for k := range mod.Iter() {
		total++
		if strings.HasPrefix(k, "$") {
			dollarFields++
		}
		if dollarFields != 0 && dollarFields != total {
			return false, ErrMixedOperators
		}
	}
	return dollarFields == 0, nil
}

func (m *Modifier) checkID(before, after *data.D) error {
	oldID, hadID := before.Get("_id")
	newID, hasID := after.Get("_id")
	if hadID != hasID {
		return domain.ErrCannotModifyID
	}
	if !hadID {
		return nil
	}
	c, err := m.comparer.Compare(oldID, newID)
	if err != nil {
		return err
	}
	if c != 0 {
		return domain.ErrCannotModifyID
	}
	return nil
}

func (m *Modifier) replaceMod(obj *data.D, mod domain.Document) (*data.D, error) {
	res := data.NewD()
	id, hasID := obj.Get("_id")
	if hasID {
		res.Set("_id", id)
	}
	for k, v := range mod.Iter() {
		if k != "_id" {
			res.Set(k, data.Clone(v))
			continue
		}
		if !hasID {
			return nil, domain.ErrCannotModifyID
		}
		c, err := m.comparer.Compare(v, id)
		if err != nil {
			return nil, err
		}
		if c != 0 {
			return nil, domain.ErrCannotModifyID
		}
	}
	return res, nil
}

func (m *Modifier) dollarMod(obj *data.D, mod domain.Document) (*data.D, error) {
	res := data.Clone(obj).(*data.D)

	for modName, arg := range mod.Iter() {
		fn, ok := m.mods[modName]
		if !ok {
			return nil, domain.ErrUnknownOperator{Operator: modName}
		}
		d, ok := arg.(domain.Document)
		if !ok {
			return nil, ErrNonObject
		}
		for key, v := range d.Iter() {
			addr, err := m.fieldNavigator.GetAddress(key)
			if err != nil {
				return nil, err
			}
			if err := fn(res, addr, v); err != nil {
				return nil, fmt.Errorf("modifying field %q: %w", key, err)
			}
		}
	}
	return res, nil
}

// parent returns the document holding the last part of addr. If create is
// set, missing documents along the way are added.
func (m *Modifier) parent(mod string, obj *data.D, addr []string, create bool) (*data.D, error) {
	cur := obj
	for _, part := range addr[:len(addr)-1] {
		v, ok := cur.Get(part)
		if !ok {
			if !create {
				return nil, nil
			}
			next := data.NewD()
			cur.Set(part, next)
			cur = next
			continue
		}
		next, ok := v.(*data.D)
		if !ok {
			return nil, ErrModFieldType{Mod: mod, Want: "document", Actual: v}
		}
		cur = next
	}
	return cur, nil
}

func (m *Modifier) set(obj *data.D, addr []string, arg any) error {
	p, err := m.parent("$set", obj, addr, true)
	if err != nil {
		return err
	}
	p.Set(addr[len(addr)-1], data.Clone(arg))
	return nil
}

func (m *Modifier) unset(obj *data.D, addr []string, _ any) error {
	p, err := m.parent("$unset", obj, addr, false)
	if err != nil || p == nil {
		return err
	}
	p.Unset(addr[len(addr)-1])
	return nil
}

func (m *Modifier) inc(obj *data.D, addr []string, arg any) error {
	switch arg.(type) {
	case int64, float64:
	default:
		return ErrModArgType{Mod: "$inc", Want: "number", Actual: arg}
	}
	p, err := m.parent("$inc", obj, addr, true)
	if err != nil {
		return err
	}
	field := addr[len(addr)-1]
	value, ok := p.Get(field)
	if !ok {
		p.Set(field, arg)
		return nil
	}
	sum, err := m.add(value, arg)
	if err != nil {
		return err
	}
	p.Set(field, sum)
	return nil
}

// add keeps integer sums as integers unless they overflow.
func (m *Modifier) add(value, arg any) (any, error) {
	a, aInt := value.(int64)
	b, bInt := arg.(int64)
	if aInt && bInt {
		s := a + b
		if (s > a) == (b > 0) {
			return s, nil
		}
	}
	x, ok := m.asNumber(value)
	if !ok {
		return nil, ErrModFieldType{Mod: "$inc", Want: "number", Actual: value}
	}
	y, _ := m.asNumber(arg)
	f, _ := x.Add(x, y).Float64()
	return f, nil
}

func (m *Modifier) asNumber(v any) (*big.Float, bool) {
	switch n := v.(type) {
	case int64:
		return new(big.Float).SetInt64(n), true
	case float64:
		if math.IsNaN(n) {
			return nil, false
		}
		return big.NewFloat(n), true
	default:
		return nil, false
	}
}

func (m *Modifier) push(obj *data.D, addr []string, arg any) error {
	p, err := m.parent("$push", obj, addr, true)
	if err != nil {
		return err
	}
	field := addr[len(addr)-1]
	value, ok := p.Get(field)
	if !ok || value == nil {
		p.Set(field, data.NewA(data.Clone(arg)))
		return nil
	}
	array, ok := value.(*data.A)
	if !ok {
		return ErrModFieldType{Mod: "$push", Want: "array", Actual: value}
	}
	array.Push(data.Clone(arg))
	return nil
}

func (m *Modifier) max(obj *data.D, addr []string, arg any) error {
	return m.bound("$max", obj, addr, arg, 1)
}

func (m *Modifier) min(obj *data.D, addr []string, arg any) error {
	return m.bound("$min", obj, addr, arg, -1)
}

func (m *Modifier) bound(mod string, obj *data.D, addr []string, arg any, want int) error {
	p, err := m.parent(mod, obj, addr, true)
	if err != nil {
		return err
	}
	field := addr[len(addr)-1]
	value, ok := p.Get(field)
	if !ok {
		p.Set(field, data.Clone(arg))
		return nil
	}
	c, err := m.comparer.Compare(arg, value)
	if err != nil {
		return err
	}
	if c == want {
		p.Set(field, data.Clone(arg))
	}
	return nil
}
