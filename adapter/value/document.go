package value

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Document is an ordered mapping from keys to values. Setting a key that is
// already present replaces its value in place.
type Document struct {
	eng domain.ValueEngine
	h   domain.Handle
}

// NewDocument returns an empty document.
func NewDocument(eng domain.ValueEngine) (Document, error) {
	h, err := eng.MakeDocument()
	if err != nil {
		return Document{}, err
	}
	return Document{eng: eng, h: h}, nil
}

// Value returns the document as a [Value].
func (d Document) Value() Value { return Value(d) }

// Handle returns the underlying engine handle.
func (d Document) Handle() domain.Handle { return d.h }

// Set stores a copy of v under key.
func (d Document) Set(key string, v Value) error {
	if err := Value(d).check(); err != nil {
		return err
	}
	if err := v.check(); err != nil {
		return err
	}
	return d.eng.DocumentSet(d.h, key, v.h)
}

// Get returns the value under key. The bool is false if key is not set.
func (d Document) Get(key string) (Value, bool, error) {
	if err := Value(d).check(); err != nil {
		return Value{}, false, err
	}
	h, ok, err := d.eng.DocumentGet(d.h, key)
	if err != nil || !ok {
		return Value{}, false, err
	}
	return Wrap(d.eng, h), true, nil
}

// Len returns the number of keys.
func (d Document) Len() (int, error) {
	if err := Value(d).check(); err != nil {
		return 0, err
	}
	return d.eng.DocumentLen(d.h)
}

// Iter returns an iterator over the pairs of the document as they are now.
func (d Document) Iter() (*DocumentIter, error) {
	if err := Value(d).check(); err != nil {
		return nil, err
	}
	h, err := d.eng.DocumentIter(d.h)
	if err != nil {
		return nil, err
	}
	return &DocumentIter{eng: d.eng, h: h}, nil
}

// DocumentIter is a forward-only iterator over the pairs of a [Document].
type DocumentIter struct {
	eng domain.ValueEngine
	h   domain.Handle
}

// Next returns the next pair. The bool is false once every pair was read.
func (it *DocumentIter) Next() (string, Value, bool, error) {
	k, h, ok, err := it.eng.DocumentIterNext(it.h)
	if err != nil || !ok {
		return "", Value{}, false, err
	}
	return k, Wrap(it.eng, h), true, nil
}

// Array is an append-only sequence of values.
type Array struct {
	eng domain.ValueEngine
	h   domain.Handle
}

// NewArray returns an empty array.
func NewArray(eng domain.ValueEngine) (Array, error) {
	h, err := eng.MakeArray()
	if err != nil {
		return Array{}, err
	}
	return Array{eng: eng, h: h}, nil
}

// Value returns the array as a [Value].
func (a Array) Value() Value { return Value(a) }

// Handle returns the underlying engine handle.
func (a Array) Handle() domain.Handle { return a.h }

// Push appends a copy of v.
func (a Array) Push(v Value) error {
	if err := Value(a).check(); err != nil {
		return err
	}
	if err := v.check(); err != nil {
		return err
	}
	return a.eng.ArrayPush(a.h, v.h)
}

// Get returns the element at i. The bool is false if i is out of range.
func (a Array) Get(i int) (Value, bool, error) {
	if err := Value(a).check(); err != nil {
		return Value{}, false, err
	}
	h, ok, err := a.eng.ArrayGet(a.h, i)
	if err != nil || !ok {
		return Value{}, false, err
	}
	return Wrap(a.eng, h), true, nil
}

// Len returns the number of elements.
func (a Array) Len() (int, error) {
	if err := Value(a).check(); err != nil {
		return 0, err
	}
	return a.eng.ArrayLen(a.h)
}

// ObjectID is an engine minted identifier.
type ObjectID struct {
	eng domain.ValueEngine
	h   domain.Handle
}

// Value returns the id as a [Value].
func (o ObjectID) Value() Value { return Value(o) }

// Handle returns the underlying engine handle.
func (o ObjectID) Handle() domain.Handle { return o.h }

// Primitive returns the raw object id.
func (o ObjectID) Primitive() (primitive.ObjectID, error) {
	if err := Value(o).check(); err != nil {
		return primitive.NilObjectID, err
	}
	return o.eng.ObjectID(o.h)
}

// Hex returns the canonical 24 character hex form.
func (o ObjectID) Hex() (string, error) {
	id, err := o.Primitive()
	if err != nil {
		return "", err
	}
	return id.Hex(), nil
}

// Equal reports whether both ids have the same hex form. Ids that cannot be
// read are never equal.
func (o ObjectID) Equal(other ObjectID) bool {
	a, err := o.Hex()
	if err != nil {
		return false
	}
	b, err := other.Hex()
	return err == nil && a == b
}
