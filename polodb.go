// Package polodb provides an embedded document database for golang.
//
// Documents live in named collections and are keyed by their _id field. Every
// write goes through a transaction, either one started explicitly with
// [Database.StartTransaction] or one created implicitly around a single call.
// Committed transactions are appended to a journal file which is replayed,
// then compacted, when the database is opened again.
//
// The basic usage starts with creating a new [Database] instance, which can be
// done by calling [Open].
package polodb

import (
	"context"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/database"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/value"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Version is the library version.
const Version = database.Version

// MemoryPath can be given to [Open] to create a database that is never
// written to disk.
const MemoryPath = database.MemoryPath

var (
	// ErrTypeMismatch is the root of every error caused by a value of the
	// wrong shape.
	ErrTypeMismatch = domain.ErrTypeMismatch
	// ErrContractViolation is the root of every error caused by misusing
	// the API.
	ErrContractViolation = domain.ErrContractViolation
	// ErrEngine is the root of every failure reported by the storage
	// engine.
	ErrEngine = domain.ErrEngine

	// ErrClosed is returned when using a database, or any value derived
	// from it, after [Database.Close].
	ErrClosed = domain.ErrClosed
	// ErrCollectionNotFound is returned when operating on a collection
	// that was not created.
	ErrCollectionNotFound = domain.ErrCollectionNotFound
	// ErrCollectionExists is returned by [Database.CreateCollection] when
	// the name is taken.
	ErrCollectionExists = domain.ErrCollectionExists
	// ErrDuplicateKey is returned when inserting a document whose _id is
	// already stored.
	ErrDuplicateKey = domain.ErrDuplicateKey
	// ErrCannotModifyID is returned when an update would change a _id.
	ErrCannotModifyID = domain.ErrCannotModifyID
	// ErrTransactionActive is returned when starting a transaction while
	// another one is active.
	ErrTransactionActive = domain.ErrTransactionActive
	// ErrNoTransaction is returned by commit and rollback without an
	// active transaction.
	ErrNoTransaction = domain.ErrNoTransaction
	// ErrNoRow is returned by [Cursor.Get] when the cursor has no row.
	ErrNoRow = domain.ErrNoRow
	// ErrConcurrentUse is returned when a database is used by two
	// goroutines at once.
	ErrConcurrentUse = domain.ErrConcurrentUse
	// ErrNilValue is returned when using a zero [Value].
	ErrNilValue = domain.ErrNilValue
	// ErrCyclicValue is returned when converting a Go value that
	// references itself.
	ErrCyclicValue = domain.ErrCyclicValue
	// ErrDocumentExpected is returned when a filter, update or inserted
	// value is not document shaped.
	ErrDocumentExpected = domain.ErrDocumentExpected
	// ErrTargetNil is returned when decoding into a nil target.
	ErrTargetNil = domain.ErrTargetNil
)

// ErrWrongKind is returned when a [Value] is read with an accessor for
// another kind.
type ErrWrongKind = domain.ErrWrongKind

// ErrUnsupportedType is returned when converting a Go value that has no
// document equivalent.
type ErrUnsupportedType = domain.ErrUnsupportedType

// ErrFieldName represents an invalid field name in a stored document.
type ErrFieldName = domain.ErrFieldName

// ErrCorruptFiles is returned by [Open] when more journal records than the
// tolerated threshold cannot be read.
type ErrCorruptFiles = domain.ErrCorruptFiles

// ErrDecode wraps third party decoding errors.
type ErrDecode = domain.ErrDecode

// Kind is the tag of a [Value].
type Kind = domain.Kind

// Value kinds.
const (
	KindNull     = domain.KindNull
	KindInt      = domain.KindInt
	KindDouble   = domain.KindDouble
	KindBoolean  = domain.KindBoolean
	KindString   = domain.KindString
	KindArray    = domain.KindArray
	KindDocument = domain.KindDocument
	KindObjectID = domain.KindObjectID
)

// TxState is the transaction state of a [Database].
type TxState = domain.TxState

// Transaction states.
const (
	TxIdle   = domain.TxIdle
	TxActive = domain.TxActive
)

// CursorState is the state of a [Cursor].
type CursorState = domain.CursorState

// Cursor states.
const (
	CursorPrimed    = domain.CursorPrimed
	CursorHasRow    = domain.CursorHasRow
	CursorExhausted = domain.CursorExhausted
	CursorFailed    = domain.CursorFailed
)

// Database is an open database connection.
type Database = database.Database

// Collection is a named set of documents.
type Collection = database.Collection

// Cursor iterates over the results of a query.
type Cursor = cursor.Cursor

// Value is a view over an engine value of any kind.
type Value = value.Value

// Document is a view over an engine document.
type Document = value.Document

// Array is a view over an engine array.
type Array = value.Array

// ObjectID is a view over an engine object id.
type ObjectID = value.ObjectID

// Storage provides low-level file operations with crash-safety guarantees.
type Storage = domain.Storage

// Serializer converts journal records to bytes.
type Serializer = domain.Serializer

// Deserializer converts bytes back to journal records.
type Deserializer = domain.Deserializer

// Comparer provides ordering between values.
type Comparer = domain.Comparer

// Matcher compiles query filters.
type Matcher = domain.Matcher

// Decoder converts query results into user-defined types.
type Decoder = domain.Decoder

// TimeGetter provides current time for object ids and commit markers.
type TimeGetter = domain.TimeGetter

// Engine is the storage and query collaborator behind a [Database].
type Engine = domain.Engine

// Open opens or creates the database stored at path. Use [MemoryPath] for a
// database that is never written to disk. The following options are
// accepted:
//
// - [WithLogger]: sets the zap logger of the database.
//
// - [WithInMemoryOnly]: keeps the database in memory whatever the path.
//
// - [WithFileMode]: sets the permissions of the journal file.
//
// - [WithDirMode]: sets the permissions of created parent directories.
//
// - [WithCorruptionThreshold]: sets the tolerated rate of unreadable records.
//
// - [WithMetrics]: registers prometheus collectors.
//
// - [WithRandomReader]: sets the source of the random part of object ids.
//
// - [WithTimeGetter]: sets the clock used for object ids and commit markers.
//
// - [WithStorage], [WithSerializer], [WithDeserializer], [WithComparer],
// [WithMatcher], [WithDecoder]: replace engine components.
//
// - [WithEngine]: replaces the whole engine.
func Open(path string, options ...Option) (*Database, error) {
	return database.Open(context.Background(), path, options...)
}

// OpenContext works like [Open] but stops loading the journal if ctx is
// canceled.
func OpenContext(ctx context.Context, path string, options ...Option) (*Database, error) {
	return database.Open(ctx, path, options...)
}

// FromHost converts a Go value into a value owned by db. See
// [value.FromHost].
func FromHost(db *Database, v any) (Value, error) {
	return db.FromHost(v)
}

// ToHost converts v into plain Go values. See [value.ToHost].
func ToHost(v Value) (any, error) {
	return value.ToHost(v)
}

// Option configures [Open].
type Option = database.Option

// WithEngine uses e instead of opening the default engine.
func WithEngine(e Engine) Option {
	return database.WithEngine(e)
}

// WithLogger sets the logger of the database and of its engine.
func WithLogger(l *zap.Logger) Option {
	return database.WithLogger(l)
}

// WithInMemoryOnly keeps the database in memory, whatever the path.
func WithInMemoryOnly(i bool) Option {
	return database.WithInMemoryOnly(i)
}

// WithFileMode sets the file permissions of the journal.
func WithFileMode(m os.FileMode) Option {
	return database.WithFileMode(m)
}

// WithDirMode sets the permissions of created directories.
func WithDirMode(m os.FileMode) Option {
	return database.WithDirMode(m)
}

// WithCorruptionThreshold sets the threshold for corruption errors.
func WithCorruptionThreshold(t float64) Option {
	return database.WithCorruptionThreshold(t)
}

// WithMetrics registers the database metrics in reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return database.WithMetrics(reg)
}

// WithRandomReader sets the reader used when minting object ids.
func WithRandomReader(r io.Reader) Option {
	return database.WithRandomReader(r)
}

// WithTimeGetter sets the time getter for object ids and commit markers.
func WithTimeGetter(t TimeGetter) Option {
	return database.WithTimeGetter(t)
}

// WithStorage sets the storage implementation for low-level file operations.
func WithStorage(s Storage) Option {
	return database.WithStorage(s)
}

// WithSerializer sets the serializer for journal records.
func WithSerializer(s Serializer) Option {
	return database.WithSerializer(s)
}

// WithDeserializer sets the deserializer for journal records.
func WithDeserializer(d Deserializer) Option {
	return database.WithDeserializer(d)
}

// WithComparer sets the comparer for value comparison operations.
func WithComparer(c Comparer) Option {
	return database.WithComparer(c)
}

// WithMatcher sets the matcher implementation for query evaluation.
func WithMatcher(m Matcher) Option {
	return database.WithMatcher(m)
}

// WithDecoder sets the decoder used by [Collection.FindInto] and
// [Cursor.Scan].
func WithDecoder(d Decoder) Option {
	return database.WithDecoder(d)
}
