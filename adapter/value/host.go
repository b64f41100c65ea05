package value

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-reflect"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// shape is the classification of a host value. Every reflect kind maps to
// exactly one shape.
type shape uint8

const (
	shapeUnsupported shape = iota
	shapeNull
	shapeInt
	shapeUint
	shapeFloat
	shapeBool
	shapeString
	shapeObjectID
	shapeView
	shapeOrdered
	shapeList
	shapeMap
	shapeStruct
	shapeIndirect
)

var (
	objectIDType = reflect.TypeOf(primitive.ObjectID{})
	orderedType  = reflect.TypeOf(bson.D{})
	timeType     = reflect.TypeOf(time.Time{})
)

func classify(r reflect.Value) shape {
	switch r.Kind() {
	case reflect.Invalid:
		return shapeNull
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return shapeInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return shapeUint
	case reflect.Float32, reflect.Float64:
		return shapeFloat
	case reflect.Bool:
		return shapeBool
	case reflect.String:
		return shapeString
	case reflect.Array:
		if r.Type() == objectIDType {
			return shapeObjectID
		}
		return shapeList
	case reflect.Slice:
		if r.Type() == orderedType {
			return shapeOrdered
		}
		return shapeList
	case reflect.Map:
		if r.Type().Key().Kind() != reflect.String {
			return shapeUnsupported
		}
		return shapeMap
	case reflect.Struct:
		if r.Type() == timeType {
			return shapeUnsupported
		}
		if isView(r.Interface()) {
			return shapeView
		}
		return shapeStruct
	case reflect.Ptr, reflect.Interface:
		return shapeIndirect
	default:
		// Complex64, Complex128, Chan, Func, UnsafePointer
		return shapeUnsupported
	}
}

func isView(v any) bool {
	switch v.(type) {
	case Value, Document, Array, ObjectID:
		return true
	default:
		return false
	}
}

// FromHost converts a Go value into an engine value.
//
// Integers become Int, floats become Double, maps with string keys and
// structs become Documents, and slices and arrays become Arrays. Map keys are
// sorted; bson.D keeps its order. Views over engine values are returned as
// they are. Values reachable from themselves fail with
// [domain.ErrCyclicValue] and every other shape with
// [domain.ErrUnsupportedType].
func FromHost(eng domain.ValueEngine, v any) (Value, error) {
	c := converter{eng: eng, visiting: make(map[uintptr]struct{})}
	return c.convert(reflect.ValueNoEscapeOf(v))
}

type converter struct {
	eng domain.ValueEngine
	// visiting holds the addresses of the containers on the current path.
	visiting map[uintptr]struct{}
}

func (c *converter) enter(r reflect.Value) (func(), error) {
	if r.IsNil() {
		return func() {}, nil
	}
	p := r.Pointer()
	if _, ok := c.visiting[p]; ok {
		return nil, domain.ErrCyclicValue
	}
	c.visiting[p] = struct{}{}
	return func() { delete(c.visiting, p) }, nil
}

func (c *converter) convert(r reflect.Value) (Value, error) {
	switch classify(r) {
	case shapeNull:
		return MakeNull(c.eng)
	case shapeInt:
		return MakeInt(c.eng, r.Int())
	case shapeUint:
		u := r.Uint()
		if u > math.MaxInt64 {
			return Value{}, domain.ErrUnsupportedType{Type: fmt.Sprintf("%s above MaxInt64", r.Type())}
		}
		return MakeInt(c.eng, int64(u))
	case shapeFloat:
		return MakeDouble(c.eng, r.Float())
	case shapeBool:
		return MakeBool(c.eng, r.Bool())
	case shapeString:
		return MakeString(c.eng, r.String())
	case shapeObjectID:
		id, err := ObjectIDFrom(c.eng, r.Interface().(primitive.ObjectID))
		return id.Value(), err
	case shapeView:
		return c.view(r.Interface())
	case shapeOrdered:
		return c.ordered(r)
	case shapeList:
		return c.list(r)
	case shapeMap:
		return c.mapping(r)
	case shapeStruct:
		return c.structure(r)
	case shapeIndirect:
		if r.IsNil() {
			return MakeNull(c.eng)
		}
		if r.Kind() == reflect.Interface {
			return c.convert(r.Elem())
		}
		leave, err := c.enter(r)
		if err != nil {
			return Value{}, err
		}
		defer leave()
		return c.convert(r.Elem())
	default:
		return Value{}, domain.ErrUnsupportedType{Type: r.Type().String()}
	}
}

func (c *converter) view(v any) (Value, error) {
	var res Value
	switch t := v.(type) {
	case Value:
		res = t
	case Document:
		res = t.Value()
	case Array:
		res = t.Value()
	case ObjectID:
		res = t.Value()
	}
	return res, res.check()
}

func (c *converter) ordered(r reflect.Value) (Value, error) {
	leave, err := c.enter(r)
	if err != nil {
		return Value{}, err
	}
	defer leave()

	doc, err := NewDocument(c.eng)
	if err != nil {
		return Value{}, err
	}
	for _, e := range r.Interface().(bson.D) {
		if err := c.setField(doc, e.Key, reflect.ValueNoEscapeOf(e.Value)); err != nil {
			return Value{}, err
		}
	}
	return doc.Value(), nil
}

// list converts element values in order.
func (c *converter) list(r reflect.Value) (Value, error) {
	if r.Kind() == reflect.Slice {
		if r.IsNil() {
			return MakeNull(c.eng)
		}
		leave, err := c.enter(r)
		if err != nil {
			return Value{}, err
		}
		defer leave()
	}

	arr, err := NewArray(c.eng)
	if err != nil {
		return Value{}, err
	}
	for i := range r.Len() {
		item, err := c.convert(r.Index(i))
		if err != nil {
			return Value{}, err
		}
		if err := arr.Push(item); err != nil {
			return Value{}, err
		}
	}
	return arr.Value(), nil
}

func (c *converter) mapping(r reflect.Value) (Value, error) {
	if r.IsNil() {
		return MakeNull(c.eng)
	}
	leave, err := c.enter(r)
	if err != nil {
		return Value{}, err
	}
	defer leave()

	keys := r.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return cmp.Compare(a.String(), b.String())
	})

	doc, err := NewDocument(c.eng)
	if err != nil {
		return Value{}, err
	}
	for _, k := range keys {
		if err := c.setField(doc, k.String(), r.MapIndex(k)); err != nil {
			return Value{}, err
		}
	}
	return doc.Value(), nil
}

func (c *converter) structure(r reflect.Value) (Value, error) {
	doc, err := NewDocument(c.eng)
	if err != nil {
		return Value{}, err
	}
	typ := r.Type()
	for i := range r.NumField() {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue
		}
		name, omitEmpty, skip := parseTag(field)
		if skip {
			continue
		}
		fv := r.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		if err := c.setField(doc, name, fv); err != nil {
			return Value{}, err
		}
	}
	return doc.Value(), nil
}

func parseTag(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	name = field.Name
	tag, ok := field.Tag.Lookup(decoder.TagName)
	if !ok {
		return name, false, false
	}
	if tag == "-" {
		return "", false, true
	}
	segments := strings.Split(tag, ",")
	if segments[0] != "" {
		name = segments[0]
	}
	return name, slices.Contains(segments[1:], "omitempty"), false
}

func (c *converter) setField(doc Document, key string, r reflect.Value) error {
	v, err := c.convert(r)
	if err != nil {
		return err
	}
	return doc.Set(key, v)
}

// ToHost converts an engine value into plain Go values: nil, int64, float64,
// bool, string, primitive.ObjectID, []any and map[string]any.
func ToHost(v Value) (any, error) {
	return toHost(v, false)
}

// ToOrdered works like [ToHost] but documents become bson.D, keeping the
// engine order, and arrays become bson.A.
func ToOrdered(v Value) (any, error) {
	return toHost(v, true)
}

func toHost(v Value, ordered bool) (any, error) {
	k, err := v.Kind()
	if err != nil {
		return nil, err
	}
	switch k {
	case domain.KindNull:
		return nil, nil
	case domain.KindInt:
		return v.AsInt()
	case domain.KindDouble:
		return v.AsDouble()
	case domain.KindBoolean:
		return v.AsBool()
	case domain.KindString:
		return v.AsString()
	case domain.KindObjectID:
		return ObjectID(v).Primitive()
	case domain.KindArray:
		return arrayToHost(Array(v), ordered)
	case domain.KindDocument:
		return documentToHost(Document(v), ordered)
	default:
		return nil, domain.ErrUnsupportedType{Type: k.String()}
	}
}

func arrayToHost(a Array, ordered bool) (any, error) {
	n, err := a.Len()
	if err != nil {
		return nil, err
	}
	res := make([]any, 0, n)
	for i := range n {
		item, _, err := a.Get(i)
		if err != nil {
			return nil, err
		}
		h, err := toHost(item, ordered)
		if err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	if ordered {
		return bson.A(res), nil
	}
	return res, nil
}

func documentToHost(d Document, ordered bool) (any, error) {
	it, err := d.Iter()
	if err != nil {
		return nil, err
	}
	var (
		m = make(map[string]any)
		o bson.D
	)
	for {
		k, item, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		h, err := toHost(item, ordered)
		if err != nil {
			return nil, err
		}
		if ordered {
			o = append(o, bson.E{Key: k, Value: h})
		} else {
			m[k] = h
		}
	}
	if ordered {
		if o == nil {
			o = bson.D{}
		}
		return o, nil
	}
	return m, nil
}
