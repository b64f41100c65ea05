// Package deserializer contains the default [domain.Deserializer]
// implementation.
package deserializer

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/data"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Deserializer implements [domain.Deserializer].
type Deserializer struct{}

// NewDeserializer returns a new instance of [domain.Deserializer].
func NewDeserializer() domain.Deserializer {
	return &Deserializer{}
}

// Deserialize implements [domain.Deserializer].
func (d *Deserializer) Deserialize(ctx context.Context, b []byte) (domain.Record, error) {
	select {
	case <-ctx.Done():
		return domain.Record{}, ctx.Err()
	default:
	}

	var line bson.D
	if err := bson.UnmarshalExtJSON(b, true, &line); err != nil {
		return domain.Record{}, err
	}
	if len(line) == 0 {
		return domain.Record{}, fmt.Errorf("%w: empty journal line", domain.ErrEngine)
	}

	op := line[0]
	head, ok := op.Value.(string)
	if !ok {
		return domain.Record{}, fmt.Errorf("%w: malformed %s line", domain.ErrEngine, op.Key)
	}
	r := domain.Record{Op: op.Key}

	switch op.Key {
	case domain.OpCommit:
		r.TxID = head
	case domain.OpCreate, domain.OpInsert, domain.OpUpdate, domain.OpDelete:
		r.Collection = head
	default:
		return domain.Record{}, fmt.Errorf("%w: unknown journal operation %q", domain.ErrEngine, op.Key)
	}

	for _, e := range line[1:] {
		var err error
		switch e.Key {
		case serializer.FieldTx:
			r.TxID, _ = e.Value.(string)
		case serializer.FieldAt:
			if t, ok := e.Value.(primitive.DateTime); ok {
				r.At = t.Time()
			}
		case serializer.FieldKey:
			r.Key, err = data.FromBSON(e.Value)
		case serializer.FieldDoc:
			r.Doc, err = data.FromBSON(e.Value)
		}
		if err != nil {
			return domain.Record{}, err
		}
	}

	switch r.Op {
	case domain.OpInsert, domain.OpUpdate:
		if _, ok := r.Doc.(*data.D); !ok {
			return domain.Record{}, fmt.Errorf("%w: %s line without document", domain.ErrNotDocument, r.Op)
		}
	}
	if r.TxID == "" {
		return domain.Record{}, fmt.Errorf("%w: journal line without transaction", domain.ErrEngine)
	}
	return r, nil
}
