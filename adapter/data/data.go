// Package data holds the engine-native representation of documents and
// arrays, plus the conversions between it and bson.
//
// Scalars are stored as plain Go values: nil, int64, float64, bool, string and
// [primitive.ObjectID]. Documents and arrays are pointers, so two references
// to the same *D observe each other's mutations.
package data

import (
	"fmt"
	"iter"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// D is an ordered document. Setting an existing key keeps its position.
type D struct {
	keys []string
	vals map[string]any
}

// NewD returns an empty document.
func NewD() *D {
	return &D{vals: map[string]any{}}
}

// Get implements [domain.Document].
func (d *D) Get(key string) (any, bool) {
	v, ok := d.vals[key]
	return v, ok
}

// Set stores v under key.
func (d *D) Set(key string, v any) {
	if _, ok := d.vals[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.vals[key] = v
}

// Unset removes key. It reports whether the key was set.
func (d *D) Unset(key string) bool {
	if _, ok := d.vals[key]; !ok {
		return false
	}
	delete(d.vals, key)
	d.keys = slices.DeleteFunc(d.keys, func(k string) bool { return k == key })
	return true
}

// Iter implements [domain.Document].
func (d *D) Iter() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range d.keys {
			if !yield(k, d.vals[k]) {
				return
			}
		}
	}
}

// Keys returns a copy of the keys in document order.
func (d *D) Keys() []string {
	return slices.Clone(d.keys)
}

// Len implements [domain.Document].
func (d *D) Len() int {
	return len(d.keys)
}

// A is an array.
type A struct {
	items []any
}

// NewA returns an array holding items.
func NewA(items ...any) *A {
	return &A{items: items}
}

// Index implements [domain.List].
func (a *A) Index(i int) any {
	return a.items[i]
}

// Values implements [domain.List].
func (a *A) Values() iter.Seq[any] {
	return slices.Values(a.items)
}

// Len implements [domain.List].
func (a *A) Len() int {
	return len(a.items)
}

// Push appends v.
func (a *A) Push(v any) {
	a.items = append(a.items, v)
}

// Kind returns the kind of a native value.
func Kind(v any) (domain.Kind, error) {
	switch v.(type) {
	case nil:
		return domain.KindNull, nil
	case int64:
		return domain.KindInt, nil
	case float64:
		return domain.KindDouble, nil
	case bool:
		return domain.KindBoolean, nil
	case string:
		return domain.KindString, nil
	case primitive.ObjectID:
		return domain.KindObjectID, nil
	case *A:
		return domain.KindArray, nil
	case *D:
		return domain.KindDocument, nil
	default:
		return 0, domain.ErrUnsupportedType{Type: fmt.Sprintf("%T", v)}
	}
}

// Clone returns a deep copy of a native value.
func Clone(v any) any {
	switch t := v.(type) {
	case *D:
		res := &D{keys: slices.Clone(t.keys), vals: make(map[string]any, len(t.vals))}
		for k, val := range t.vals {
			res.vals[k] = Clone(val)
		}
		return res
	case *A:
		res := &A{items: make([]any, len(t.items))}
		for i, val := range t.items {
			res.items[i] = Clone(val)
		}
		return res
	default:
		return v
	}
}

// FromBSON converts a decoded bson value into its native form. Numbers of
// other widths are widened to int64 and float64.
func FromBSON(v any) (any, error) {
	switch t := v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return nil, nil
	case int32:
		return int64(t), nil
	case int64, float64, bool, string, primitive.ObjectID:
		return t, nil
	case bson.D:
		d := NewD()
		for _, e := range t {
			val, err := FromBSON(e.Value)
			if err != nil {
				return nil, err
			}
			d.Set(e.Key, val)
		}
		return d, nil
	case bson.A:
		a := &A{items: make([]any, 0, len(t))}
		for _, e := range t {
			val, err := FromBSON(e)
			if err != nil {
				return nil, err
			}
			a.Push(val)
		}
		return a, nil
	default:
		return nil, domain.ErrUnsupportedType{Type: fmt.Sprintf("%T", v)}
	}
}

// ToBSON converts a native value into a value accepted by the bson encoders.
func ToBSON(v any) any {
	switch t := v.(type) {
	case *D:
		res := make(bson.D, 0, len(t.keys))
		for k, val := range t.Iter() {
			res = append(res, bson.E{Key: k, Value: ToBSON(val)})
		}
		return res
	case *A:
		res := make(bson.A, 0, len(t.items))
		for _, val := range t.items {
			res = append(res, ToBSON(val))
		}
		return res
	default:
		return v
	}
}
