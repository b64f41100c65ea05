// Package idgenerator contains the default [domain.IDGenerator] implementation.
//
// Ids follow the object id layout: a 4 byte big endian timestamp in seconds,
// 5 random bytes drawn once per generator and a 3 byte counter seeded from the
// same reader.
package idgenerator

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// IDGenerator implements [domain.IDGenerator].
type IDGenerator struct {
	reader     io.Reader
	timeGetter domain.TimeGetter

	mu      sync.Mutex
	seeded  bool
	unique  [5]byte
	counter uint32
}

// NewIDGenerator returns a new implementation of [domain.IDGenerator].
func NewIDGenerator(opts ...Option) domain.IDGenerator {
	i := &IDGenerator{
		reader:     rand.Reader,
		timeGetter: timegetter.NewTimeGetter(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// GenerateObjectID implements [domain.IDGenerator].
func (i *IDGenerator) GenerateObjectID() (primitive.ObjectID, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.seeded {
		var seed [8]byte
		if _, err := io.ReadFull(i.reader, seed[:]); err != nil {
			return primitive.NilObjectID, err
		}
		copy(i.unique[:], seed[:5])
		i.counter = uint32(seed[5])<<16 | uint32(seed[6])<<8 | uint32(seed[7])
		i.seeded = true
	}

	var id primitive.ObjectID
	binary.BigEndian.PutUint32(id[0:4], uint32(i.timeGetter.GetTime().Unix()))
	copy(id[4:9], i.unique[:])

	i.counter = (i.counter + 1) & 0xffffff
	id[9] = byte(i.counter >> 16)
	id[10] = byte(i.counter >> 8)
	id[11] = byte(i.counter)
	return id, nil
}
