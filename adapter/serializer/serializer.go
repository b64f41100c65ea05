// Package serializer contains the default [domain.Serializer] implementation.
//
// Journal records are written as one canonical extended JSON document per
// line, so every engine kind (including int64 and object ids) survives a
// reload unchanged.
package serializer

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/data"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Field names used by journal lines besides the operation key.
const (
	FieldTx  = "tx"
	FieldKey = "key"
	FieldDoc = "doc"
	FieldAt  = "at"
)

// Serializer implements [domain.Serializer].
type Serializer struct{}

// NewSerializer returns a new implementation of [domain.Serializer].
func NewSerializer() domain.Serializer {
	return &Serializer{}
}

// Serialize implements [domain.Serializer].
func (s *Serializer) Serialize(ctx context.Context, r domain.Record) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var head any = r.Collection
	if r.Op == domain.OpCommit {
		head = r.TxID
	}
	line := bson.D{{Key: r.Op, Value: head}}

	switch r.Op {
	case domain.OpCreate:
	case domain.OpCommit:
		line = append(line, bson.E{Key: FieldAt, Value: primitive.NewDateTimeFromTime(r.At)})
	case domain.OpDelete:
		line = append(line, bson.E{Key: FieldKey, Value: data.ToBSON(r.Key)})
	case domain.OpInsert, domain.OpUpdate:
		doc, ok := r.Doc.(*data.D)
		if !ok {
			return nil, fmt.Errorf("%w: %s record without document", domain.ErrNotDocument, r.Op)
		}
		line = append(line, bson.E{Key: FieldDoc, Value: data.ToBSON(doc)})
	default:
		return nil, fmt.Errorf("%w: unknown journal operation %q", domain.ErrEngine, r.Op)
	}
	if r.Op != domain.OpCommit {
		line = append(line, bson.E{Key: FieldTx, Value: r.TxID})
	}

	return bson.MarshalExtJSON(line, true, false)
}
