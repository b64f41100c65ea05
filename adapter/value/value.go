// Package value contains the session side of the value model: typed views
// over engine handles and the conversions between them and plain Go values.
//
// Views never cache what they point to. Every read asks the engine, which
// also rejects handles whose connection was closed.
package value

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Value is a view of a single engine value of any kind. The zero Value holds
// no handle and every method on it fails with [domain.ErrNilValue].
type Value struct {
	eng domain.ValueEngine
	h   domain.Handle
}

// Wrap returns a view of an existing handle.
func Wrap(eng domain.ValueEngine, h domain.Handle) Value {
	return Value{eng: eng, h: h}
}

// Handle returns the underlying engine handle.
func (v Value) Handle() domain.Handle {
	return v.h
}

func (v Value) check() error {
	if v.eng == nil || v.h == nil {
		return domain.ErrNilValue
	}
	return nil
}

// Kind returns the tag of the value as reported by the engine.
func (v Value) Kind() (domain.Kind, error) {
	if err := v.check(); err != nil {
		return 0, err
	}
	return v.eng.Kind(v.h)
}

// IsNull reports whether the value is Null.
func (v Value) IsNull() (bool, error) {
	k, err := v.Kind()
	return k == domain.KindNull, err
}

// AsInt returns the value of an Int.
func (v Value) AsInt() (int64, error) {
	if err := v.check(); err != nil {
		return 0, err
	}
	return v.eng.Int(v.h)
}

// AsDouble returns the value of a Double.
func (v Value) AsDouble() (float64, error) {
	if err := v.check(); err != nil {
		return 0, err
	}
	return v.eng.Double(v.h)
}

// AsBool returns the value of a Boolean.
func (v Value) AsBool() (bool, error) {
	if err := v.check(); err != nil {
		return false, err
	}
	return v.eng.Bool(v.h)
}

// AsString returns the value of a String.
func (v Value) AsString() (string, error) {
	if err := v.check(); err != nil {
		return "", err
	}
	return v.eng.String(v.h)
}

func (v Value) expect(want domain.Kind) error {
	got, err := v.Kind()
	if err != nil {
		return err
	}
	if got != want {
		return domain.ErrWrongKind{Want: want, Got: got}
	}
	return nil
}

// AsDocument returns a Document view of the same handle.
func (v Value) AsDocument() (Document, error) {
	if err := v.expect(domain.KindDocument); err != nil {
		return Document{}, err
	}
	return Document(v), nil
}

// AsArray returns an Array view of the same handle.
func (v Value) AsArray() (Array, error) {
	if err := v.expect(domain.KindArray); err != nil {
		return Array{}, err
	}
	return Array(v), nil
}

// AsObjectID returns an ObjectID view of the same handle.
func (v Value) AsObjectID() (ObjectID, error) {
	if err := v.expect(domain.KindObjectID); err != nil {
		return ObjectID{}, err
	}
	return ObjectID(v), nil
}

// String implements [fmt.Stringer] for debugging. Scalars are printed, other
// kinds only show their tag.
func (v Value) String() string {
	k, err := v.Kind()
	if err != nil {
		return fmt.Sprintf("Value(%v)", err)
	}
	switch k {
	case domain.KindNull:
		return "null"
	case domain.KindInt:
		i, _ := v.AsInt()
		return fmt.Sprint(i)
	case domain.KindDouble:
		f, _ := v.AsDouble()
		return fmt.Sprint(f)
	case domain.KindBoolean:
		b, _ := v.AsBool()
		return fmt.Sprint(b)
	case domain.KindString:
		s, _ := v.AsString()
		return fmt.Sprintf("%q", s)
	case domain.KindObjectID:
		id, _ := v.eng.ObjectID(v.h)
		return fmt.Sprintf("ObjectId(%q)", id.Hex())
	default:
		return k.String()
	}
}

func made(eng domain.ValueEngine, h domain.Handle, err error) (Value, error) {
	if err != nil {
		return Value{}, err
	}
	return Wrap(eng, h), nil
}

// MakeNull returns a new Null value.
func MakeNull(eng domain.ValueEngine) (Value, error) {
	h, err := eng.MakeNull()
	return made(eng, h, err)
}

// MakeInt returns a new Int value.
func MakeInt(eng domain.ValueEngine, i int64) (Value, error) {
	h, err := eng.MakeInt(i)
	return made(eng, h, err)
}

// MakeDouble returns a new Double value.
func MakeDouble(eng domain.ValueEngine, f float64) (Value, error) {
	h, err := eng.MakeDouble(f)
	return made(eng, h, err)
}

// MakeBool returns a new Boolean value.
func MakeBool(eng domain.ValueEngine, b bool) (Value, error) {
	h, err := eng.MakeBool(b)
	return made(eng, h, err)
}

// MakeString returns a new String value.
func MakeString(eng domain.ValueEngine, s string) (Value, error) {
	h, err := eng.MakeString(s)
	return made(eng, h, err)
}

// ObjectIDFrom wraps an existing object id.
func ObjectIDFrom(eng domain.ValueEngine, id primitive.ObjectID) (ObjectID, error) {
	h, err := eng.ObjectIDFrom(id)
	if err != nil {
		return ObjectID{}, err
	}
	return ObjectID{eng: eng, h: h}, nil
}

// MakeObjectID mints a new object id.
func MakeObjectID(eng domain.ValueEngine) (ObjectID, error) {
	h, err := eng.MakeObjectID()
	if err != nil {
		return ObjectID{}, err
	}
	return ObjectID{eng: eng, h: h}, nil
}
