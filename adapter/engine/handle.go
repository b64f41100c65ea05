package engine

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/data"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// owned is embedded by every handle minted by an engine.
type owned struct {
	owner *Engine
}

// Valid implements [domain.Handle].
func (o owned) Valid() bool {
	return o.owner != nil && !o.owner.closed
}

// value is a handle to a native value. Documents and arrays are shared with
// their parent, so a value obtained through DocumentGet is a live view.
type value struct {
	owned
	v any
}

// pair is a document entry captured by an iterator.
type pair struct {
	key string
	val any
}

// docIter is a handle to a snapshot of a document's pairs.
type docIter struct {
	owned
	pairs []pair
	pos   int
}

func (e *Engine) check(h domain.Handle) error {
	if e.closed {
		return domain.ErrClosed
	}
	if h == nil {
		return domain.ErrNilValue
	}
	return nil
}

func (e *Engine) lookup(h domain.Handle) (*value, error) {
	if err := e.check(h); err != nil {
		return nil, err
	}
	v, ok := h.(*value)
	if !ok {
		return nil, domain.ErrForeignHandle
	}
	if v.owner != e {
		return nil, domain.ErrForeignHandle
	}
	return v, nil
}

func (e *Engine) document(h domain.Handle) (*data.D, error) {
	v, err := e.lookup(h)
	if err != nil {
		return nil, err
	}
	d, ok := v.v.(*data.D)
	if !ok {
		return nil, domain.ErrNotDocument
	}
	return d, nil
}

func (e *Engine) array(h domain.Handle) (*data.A, error) {
	v, err := e.lookup(h)
	if err != nil {
		return nil, err
	}
	a, ok := v.v.(*data.A)
	if !ok {
		return nil, domain.ErrNotArray
	}
	return a, nil
}

// mint wraps v after entering e.
func (e *Engine) mint(v any) (domain.Handle, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	return e.wrap(v)
}

func (e *Engine) wrap(v any) (domain.Handle, error) {
	if e.closed {
		return nil, domain.ErrClosed
	}
	return &value{owned: owned{owner: e}, v: v}, nil
}

// MakeNull implements [domain.ValueEngine].
func (e *Engine) MakeNull() (domain.Handle, error) { return e.mint(nil) }

// MakeInt implements [domain.ValueEngine].
func (e *Engine) MakeInt(i int64) (domain.Handle, error) { return e.mint(i) }

// MakeDouble implements [domain.ValueEngine].
func (e *Engine) MakeDouble(f float64) (domain.Handle, error) { return e.mint(f) }

// MakeBool implements [domain.ValueEngine].
func (e *Engine) MakeBool(b bool) (domain.Handle, error) { return e.mint(b) }

// MakeString implements [domain.ValueEngine].
func (e *Engine) MakeString(s string) (domain.Handle, error) { return e.mint(s) }

// MakeArray implements [domain.ValueEngine].
func (e *Engine) MakeArray() (domain.Handle, error) { return e.mint(data.NewA()) }

// MakeDocument implements [domain.ValueEngine].
func (e *Engine) MakeDocument() (domain.Handle, error) { return e.mint(data.NewD()) }

// MakeObjectID implements [domain.ValueEngine].
func (e *Engine) MakeObjectID() (domain.Handle, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	id, err := e.idGenerator.GenerateObjectID()
	if err != nil {
		return nil, err
	}
	return e.wrap(id)
}

// ObjectIDFrom implements [domain.ValueEngine].
func (e *Engine) ObjectIDFrom(id primitive.ObjectID) (domain.Handle, error) {
	return e.mint(id)
}

// Kind implements [domain.ValueEngine].
func (e *Engine) Kind(h domain.Handle) (domain.Kind, error) {
	if err := e.enter(); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()
	v, err := e.lookup(h)
	if err != nil {
		return 0, err
	}
	return data.Kind(v.v)
}

func read[T any](e *Engine, h domain.Handle, want domain.Kind) (T, error) {
	var zero T
	if err := e.enter(); err != nil {
		return zero, err
	}
	defer e.mu.Unlock()

	v, err := e.lookup(h)
	if err != nil {
		return zero, err
	}
	t, ok := v.v.(T)
	if !ok {
		got, err := data.Kind(v.v)
		if err != nil {
			return zero, err
		}
		return zero, domain.ErrWrongKind{Want: want, Got: got}
	}
	return t, nil
}

// Int implements [domain.ValueEngine].
func (e *Engine) Int(h domain.Handle) (int64, error) {
	return read[int64](e, h, domain.KindInt)
}

// Double implements [domain.ValueEngine].
func (e *Engine) Double(h domain.Handle) (float64, error) {
	return read[float64](e, h, domain.KindDouble)
}

// Bool implements [domain.ValueEngine].
func (e *Engine) Bool(h domain.Handle) (bool, error) {
	return read[bool](e, h, domain.KindBoolean)
}

// String implements [domain.ValueEngine].
func (e *Engine) String(h domain.Handle) (string, error) {
	return read[string](e, h, domain.KindString)
}

// ObjectID implements [domain.ValueEngine].
func (e *Engine) ObjectID(h domain.Handle) (primitive.ObjectID, error) {
	return read[primitive.ObjectID](e, h, domain.KindObjectID)
}

// DocumentSet implements [domain.ValueEngine]. val is copied.
func (e *Engine) DocumentSet(doc domain.Handle, key string, val domain.Handle) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	d, err := e.document(doc)
	if err != nil {
		return err
	}
	v, err := e.lookup(val)
	if err != nil {
		return err
	}
	d.Set(key, data.Clone(v.v))
	return nil
}

// DocumentGet implements [domain.ValueEngine].
func (e *Engine) DocumentGet(doc domain.Handle, key string) (domain.Handle, bool, error) {
	if err := e.enter(); err != nil {
		return nil, false, err
	}
	defer e.mu.Unlock()

	d, err := e.document(doc)
	if err != nil {
		return nil, false, err
	}
	v, ok := d.Get(key)
	if !ok {
		return nil, false, nil
	}
	h, err := e.wrap(v)
	return h, err == nil, err
}

// DocumentLen implements [domain.ValueEngine].
func (e *Engine) DocumentLen(doc domain.Handle) (int, error) {
	if err := e.enter(); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()

	d, err := e.document(doc)
	if err != nil {
		return 0, err
	}
	return d.Len(), nil
}

// DocumentIter implements [domain.ValueEngine].
func (e *Engine) DocumentIter(doc domain.Handle) (domain.Handle, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	d, err := e.document(doc)
	if err != nil {
		return nil, err
	}
	it := &docIter{owned: owned{owner: e}, pairs: make([]pair, 0, d.Len())}
	for k, v := range d.Iter() {
		it.pairs = append(it.pairs, pair{key: k, val: v})
	}
	return it, nil
}

// DocumentIterNext implements [domain.ValueEngine].
func (e *Engine) DocumentIterNext(h domain.Handle) (string, domain.Handle, bool, error) {
	if err := e.enter(); err != nil {
		return "", nil, false, err
	}
	defer e.mu.Unlock()

	if err := e.check(h); err != nil {
		return "", nil, false, err
	}
	it, ok := h.(*docIter)
	if !ok || it.owner != e {
		return "", nil, false, domain.ErrForeignHandle
	}
	if it.pos >= len(it.pairs) {
		return "", nil, false, nil
	}
	p := it.pairs[it.pos]
	it.pos++
	v, err := e.wrap(p.val)
	if err != nil {
		return "", nil, false, err
	}
	return p.key, v, true, nil
}

// ArrayPush implements [domain.ValueEngine]. val is copied.
func (e *Engine) ArrayPush(arr domain.Handle, val domain.Handle) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	a, err := e.array(arr)
	if err != nil {
		return err
	}
	v, err := e.lookup(val)
	if err != nil {
		return err
	}
	a.Push(data.Clone(v.v))
	return nil
}

// ArrayGet implements [domain.ValueEngine].
func (e *Engine) ArrayGet(arr domain.Handle, i int) (domain.Handle, bool, error) {
	if err := e.enter(); err != nil {
		return nil, false, err
	}
	defer e.mu.Unlock()

	a, err := e.array(arr)
	if err != nil {
		return nil, false, err
	}
	if i < 0 || i >= a.Len() {
		return nil, false, nil
	}
	h, err := e.wrap(a.Index(i))
	return h, err == nil, err
}

// ArrayLen implements [domain.ValueEngine].
func (e *Engine) ArrayLen(arr domain.Handle) (int, error) {
	if err := e.enter(); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()

	a, err := e.array(arr)
	if err != nil {
		return 0, err
	}
	return a.Len(), nil
}
