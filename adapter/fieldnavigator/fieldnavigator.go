// Package fieldnavigator contains the default [domain.FieldNavigator]
// implementation.
package fieldnavigator

import (
	"strconv"
	"strings"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// FieldNavigator implements [domain.FieldNavigator].
type FieldNavigator struct{}

// NewFieldNavigator returns a new instance of [domain.FieldNavigator].
func NewFieldNavigator() domain.FieldNavigator {
	return &FieldNavigator{}
}

// GetAddress implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetAddress(field string) ([]string, error) {
	addr := strings.Split(field, ".")
	for _, part := range addr {
		if part == "" {
			return nil, domain.ErrFieldName{Field: field, Reason: "empty path segment"}
		}
	}
	return addr, nil
}

// GetField implements [domain.FieldNavigator]. A numeric part indexes into
// arrays. Any other part applied to an array is applied to each of its
// document elements instead.
func (fn *FieldNavigator) GetField(doc domain.Document, addr ...string) []any {
	if doc == nil || len(addr) == 0 {
		return nil
	}

	curr := []any{doc}
	for _, part := range addr {
		next := make([]any, 0, len(curr))
		for _, v := range curr {
			next = fn.step(next, v, part, true)
		}
		if len(next) == 0 {
			return nil
		}
		curr = next
	}
	return curr
}

func (fn *FieldNavigator) step(dst []any, v any, part string, expand bool) []any {
	switch t := v.(type) {
	case domain.Document:
		if val, ok := t.Get(part); ok {
			dst = append(dst, val)
		}
	case domain.List:
		if i, err := strconv.Atoi(part); err == nil {
			if i >= 0 && i < t.Len() {
				dst = append(dst, t.Index(i))
			}
			return dst
		}
		if !expand {
			return dst
		}
		for item := range t.Values() {
			dst = fn.step(dst, item, part, false)
		}
	}
	return dst
}
