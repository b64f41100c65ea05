// Package comparer contains the default [domain.Comparer] implementation.
package comparer

import (
	"bytes"
	"cmp"
	"fmt"
	"iter"
	"math"
	"math/big"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Type brackets, from smallest to largest. Ints and doubles share a bracket
// and compare by numeric value.
const (
	bracketNull = iota
	bracketNumber
	bracketString
	bracketDocument
	bracketArray
	bracketObjectID
	bracketBoolean
)

// Comparer implements [domain.Comparer] over engine-native values.
type Comparer struct{}

// NewComparer returns a new implementation of [domain.Comparer].
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Comparable implements [domain.Comparer].
func (c *Comparer) Comparable(a, b any) bool {
	ba, err := c.bracket(a)
	if err != nil {
		return false
	}
	bb, err := c.bracket(b)
	if err != nil {
		return false
	}
	switch ba {
	case bracketNumber, bracketString, bracketObjectID, bracketBoolean:
		return ba == bb
	default:
		return false
	}
}

// Compare implements [domain.Comparer].
func (c *Comparer) Compare(a, b any) (int, error) {
	ba, err := c.bracket(a)
	if err != nil {
		return 0, err
	}
	bb, err := c.bracket(b)
	if err != nil {
		return 0, err
	}
	if ba != bb {
		return cmp.Compare(ba, bb), nil
	}

	switch ba {
	case bracketNull:
		return 0, nil
	case bracketNumber:
		return c.compareNumbers(a, b), nil
	case bracketString:
		return cmp.Compare(a.(string), b.(string)), nil
	case bracketBoolean:
		return c.compareBool(a.(bool), b.(bool)), nil
	case bracketObjectID:
		oa, ob := a.(primitive.ObjectID), b.(primitive.ObjectID)
		return bytes.Compare(oa[:], ob[:]), nil
	case bracketArray:
		return c.compareList(a.(domain.List), b.(domain.List))
	default:
		return c.compareDoc(a.(domain.Document), b.(domain.Document))
	}
}

func (c *Comparer) bracket(v any) (int, error) {
	switch v.(type) {
	case nil:
		return bracketNull, nil
	case int64, float64:
		return bracketNumber, nil
	case string:
		return bracketString, nil
	case domain.Document:
		return bracketDocument, nil
	case domain.List:
		return bracketArray, nil
	case primitive.ObjectID:
		return bracketObjectID, nil
	case bool:
		return bracketBoolean, nil
	default:
		return 0, domain.ErrUnsupportedType{Type: fmt.Sprintf("%T", v)}
	}
}

// compareNumbers orders NaN below every other number. big.Float is used so
// large int64 values are not rounded when compared to doubles.
func (c *Comparer) compareNumbers(a, b any) int {
	aNaN, bNaN := c.isNaN(a), c.isNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	}
	return c.asBig(a).Cmp(c.asBig(b))
}

func (c *Comparer) isNaN(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

func (c *Comparer) asBig(v any) *big.Float {
	r := new(big.Float)
	switch n := v.(type) {
	case int64:
		r.SetInt64(n)
	case float64:
		r.SetFloat64(n)
	}
	return r
}

func (c *Comparer) compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if a {
		return 1
	}
	return -1
}

func (c *Comparer) compareList(a, b domain.List) (int, error) {
	for i := range min(a.Len(), b.Len()) {
		comp, err := c.Compare(a.Index(i), b.Index(i))
		if err != nil || comp != 0 {
			return comp, err
		}
	}
	// Common section was identical, longest one wins
	return cmp.Compare(a.Len(), b.Len()), nil
}

// compareDoc compares pairs in document order, key first.
func (c *Comparer) compareDoc(a, b domain.Document) (int, error) {
	nextB, stop := iter.Pull2(b.Iter())
	defer stop()
	for ka, va := range a.Iter() {
		kb, vb, ok := nextB()
		if !ok {
			return 1, nil
		}
		if comp := cmp.Compare(ka, kb); comp != 0 {
			return comp, nil
		}
		comp, err := c.Compare(va, vb)
		if err != nil || comp != 0 {
			return comp, err
		}
	}
	return cmp.Compare(a.Len(), b.Len()), nil
}
