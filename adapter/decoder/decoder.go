// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"fmt"

	"github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// TagName is the struct tag read when decoding into structs.
const TagName = "polodb"

// Decoder implements [domain.Decoder]. It decodes host values produced by
// the value package into user types.
type Decoder struct{}

// NewDecoder returns a new implementation of [domain.Decoder].
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements [domain.Decoder].
func (d *Decoder) Decode(source any, target any) error {
	if target == nil {
		return domain.ErrTargetNil
	}

	value := reflect.ValueNoEscapeOf(target)
	if value.Kind() != reflect.Ptr {
		return domain.ErrNonPointer
	}

	source = d.adjust(source)

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: TagName,
		Result:  target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(source); err != nil {
		errDec := domain.ErrDecode{Source: source, Target: target}
		return fmt.Errorf("%w: %w", errDec, err)
	}
	return nil
}

// adjust turns ordered documents into maps, which is what mapstructure
// understands.
func (d *Decoder) adjust(value any) any {
	switch t := value.(type) {
	case bson.D:
		doc := make(map[string]any, len(t))
		for _, e := range t {
			doc[e.Key] = d.adjust(e.Value)
		}
		return doc
	case map[string]any:
		doc := make(map[string]any, len(t))
		for k, v := range t {
			doc[k] = d.adjust(v)
		}
		return doc
	case bson.A:
		return d.adjustList(t)
	case []any:
		return d.adjustList(t)
	default:
		return value
	}
}

func (d *Decoder) adjustList(l []any) []any {
	res := make([]any, len(l))
	for n, v := range l {
		res[n] = d.adjust(v)
	}
	return res
}
