// Package database contains the database handle and the collection API.
//
// Every mutating call on a [Collection], and [Database.CreateCollection], runs
// inside a transaction: the caller's one if a transaction is active, or a new
// one that is committed on success and rolled back on any failure.
package database

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/engine"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/idgenerator"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/metrics"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/value"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Version is the library version.
const Version = "0.1.0"

// MemoryPath opens a database that lives only in memory.
const MemoryPath = ":memory:"

// Database owns an engine connection. Values, cursors and collections
// obtained from it are only usable until Close.
type Database struct {
	eng  domain.Engine
	dec  domain.Decoder
	log  *zap.Logger
	path string
}

// Open opens or creates the database stored at path.
func Open(ctx context.Context, path string, options ...Option) (*Database, error) {
	c := config{log: zap.NewNop(), decoder: decoder.NewDecoder()}
	for _, option := range options {
		option(&c)
	}

	eng := c.engine
	if eng == nil {
		opts := []engine.Option{engine.WithLogger(c.log)}
		if path == MemoryPath {
			opts = append(opts, engine.WithInMemoryOnly(true))
		} else {
			opts = append(opts, engine.WithFilename(path))
		}
		if c.registerer != nil {
			m, err := metrics.NewMetrics(c.registerer)
			if err != nil {
				return nil, err
			}
			opts = append(opts, engine.WithMetrics(m))
		}
		if c.timeGetter != nil {
			opts = append(opts, engine.WithTimeGetter(c.timeGetter))
		}
		if c.randomReader != nil || c.timeGetter != nil {
			var idOpts []idgenerator.Option
			if c.randomReader != nil {
				idOpts = append(idOpts, idgenerator.WithReader(c.randomReader))
			}
			if c.timeGetter != nil {
				idOpts = append(idOpts, idgenerator.WithTimeGetter(c.timeGetter))
			}
			opts = append(opts, engine.WithIDGenerator(idgenerator.NewIDGenerator(idOpts...)))
		}
		e, err := engine.Open(ctx, append(opts, c.engineOpts...)...)
		if err != nil {
			return nil, err
		}
		eng = e
	}

	c.log.Debug("database opened", zap.String("path", path))
	return &Database{eng: eng, dec: c.decoder, log: c.log, path: path}, nil
}

// Engine returns the engine connection.
func (db *Database) Engine() domain.Engine {
	return db.eng
}

// Version returns the library version.
func (db *Database) Version() string {
	return Version
}

// Close closes the engine connection. Every value derived from db becomes
// unusable.
func (db *Database) Close() error {
	if err := db.eng.Close(); err != nil {
		return err
	}
	db.log.Debug("database closed", zap.String("path", db.path))
	return nil
}

// MakeObjectID mints a new object id.
func (db *Database) MakeObjectID() (value.ObjectID, error) {
	return value.MakeObjectID(db.eng)
}

// NewDocument returns an empty document.
func (db *Database) NewDocument() (value.Document, error) {
	return value.NewDocument(db.eng)
}

// NewArray returns an empty array.
func (db *Database) NewArray() (value.Array, error) {
	return value.NewArray(db.eng)
}

// FromHost converts a Go value. See [value.FromHost].
func (db *Database) FromHost(v any) (value.Value, error) {
	return value.FromHost(db.eng, v)
}

// Document converts a map, struct or bson.D into a document.
func (db *Database) Document(v any) (value.Document, error) {
	val, err := db.FromHost(v)
	if err != nil {
		return value.Document{}, err
	}
	return asDocument(val)
}

func asDocument(v value.Value) (value.Document, error) {
	k, err := v.Kind()
	if err != nil {
		return value.Document{}, err
	}
	if k != domain.KindDocument {
		return value.Document{}, domain.ErrDocumentExpected
	}
	return v.AsDocument()
}

// CreateCollection creates a collection. Creating an existing collection
// fails with [domain.ErrCollectionExists].
func (db *Database) CreateCollection(name string) error {
	return db.inTransaction(func() error {
		return db.eng.CreateCollection(name)
	})
}

// Collection returns a view of the named collection. The collection does not
// need to exist yet, but operations on it fail until it does.
func (db *Database) Collection(name string) *Collection {
	return &Collection{db: db, name: name}
}

// Collections lists the collection names in order.
func (db *Database) Collections() ([]string, error) {
	return db.eng.Collections()
}

// StartTransaction starts a transaction. Only one transaction can be active
// at a time.
func (db *Database) StartTransaction() error {
	return db.eng.StartTransaction()
}

// Commit commits the active transaction.
func (db *Database) Commit() error {
	return db.eng.Commit()
}

// Rollback discards every write of the active transaction.
func (db *Database) Rollback() error {
	return db.eng.Rollback()
}

// TxState returns the transaction state of db.
func (db *Database) TxState() domain.TxState {
	return db.eng.TxState()
}

// Compact rewrites the journal as a snapshot of the committed state.
func (db *Database) Compact() error {
	return db.eng.Compact()
}

// inTransaction runs fn in the active transaction or, if there is none, in
// a new one.
func (db *Database) inTransaction(fn func() error) error {
	if db.eng.TxState() == domain.TxActive {
		return fn()
	}

	if err := db.eng.StartTransaction(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if rbErr := db.eng.Rollback(); rbErr != nil {
			db.log.Error("rollback failed", zap.Error(rbErr))
			return errors.Join(err, rbErr)
		}
		return err
	}
	return db.eng.Commit()
}
