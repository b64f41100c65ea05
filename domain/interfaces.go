// Package domain contains the interfaces, kinds and errors shared by every
// polodb component.
//
// The session layer (values, cursors, collections, database handles) only
// talks to an [Engine]. The default engine is assembled from the other
// interfaces declared here, each of them replaceable through options.
package domain

import (
	"context"
	"io"
	"iter"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValueEngine creates and reads engine values. Every returned [Handle] is
// owned by the engine connection and invalidated when it closes.
type ValueEngine interface {
	MakeNull() (Handle, error)
	MakeInt(int64) (Handle, error)
	MakeDouble(float64) (Handle, error)
	MakeBool(bool) (Handle, error)
	MakeString(string) (Handle, error)
	MakeArray() (Handle, error)
	MakeDocument() (Handle, error)
	// MakeObjectID mints a new, unique object id.
	MakeObjectID() (Handle, error)
	// ObjectIDFrom wraps an existing object id.
	ObjectIDFrom(primitive.ObjectID) (Handle, error)

	// Kind returns the current tag of the value.
	Kind(Handle) (Kind, error)
	// The accessors below fail with [ErrWrongKind] when the value holds
	// another kind. Values are never coerced.
	Int(Handle) (int64, error)
	Double(Handle) (float64, error)
	Bool(Handle) (bool, error)
	String(Handle) (string, error)
	ObjectID(Handle) (primitive.ObjectID, error)

	// DocumentSet copies val into doc under key, replacing any previous
	// value for that key.
	DocumentSet(doc Handle, key string, val Handle) error
	// DocumentGet returns a view of the value stored under key. The bool
	// is false if the key is not set.
	DocumentGet(doc Handle, key string) (Handle, bool, error)
	DocumentLen(doc Handle) (int, error)
	// DocumentIter returns an iterator handle over a snapshot of the
	// document's pairs.
	DocumentIter(doc Handle) (Handle, error)
	// DocumentIterNext returns the next pair. The bool is false once the
	// iterator is exhausted.
	DocumentIterNext(it Handle) (string, Handle, bool, error)

	// ArrayPush appends a copy of val to arr.
	ArrayPush(arr Handle, val Handle) error
	// ArrayGet returns a view of the element at i. The bool is false for
	// out of range indexes.
	ArrayGet(arr Handle, i int) (Handle, bool, error)
	ArrayLen(arr Handle) (int, error)
}

// Engine is the storage and query collaborator behind a database handle.
// Writes must happen inside a transaction started with StartTransaction.
type Engine interface {
	ValueEngine

	CreateCollection(name string) error
	Collections() ([]string, error)

	// Find returns a cursor handle over the documents of the collection
	// matching filter. A nil filter matches every document.
	Find(collection string, filter Handle) (Handle, error)
	// CursorStep advances the cursor. Stepping an exhausted or failed
	// cursor does nothing.
	CursorStep(cursor Handle) error
	CursorState(cursor Handle) (CursorState, error)
	// CursorGet returns the current row. Only valid in [CursorHasRow].
	CursorGet(cursor Handle) (Handle, error)

	// Insert stores a copy of doc and returns its primary key. A missing
	// _id is minted and written back into doc.
	Insert(collection string, doc Handle) (Handle, error)
	// Delete removes the document with the given primary key.
	Delete(collection string, key Handle) (bool, error)
	// Update applies update to every document matching filter and returns
	// how many documents were modified.
	Update(collection string, filter Handle, update Handle) (int64, error)
	// Count returns how many documents match filter.
	Count(collection string, filter Handle) (int64, error)

	StartTransaction() error
	Commit() error
	Rollback() error
	TxState() TxState

	// Compact rewrites the journal as a snapshot of the committed state.
	Compact() error
	// Close invalidates every handle minted by this engine.
	Close() error
}

// Document is the engine-native read view of a document used by the query
// machinery.
type Document interface {
	// Get returns the value under key and whether it is set.
	Get(key string) (any, bool)
	// Iter returns the pairs of the document in document order.
	Iter() iter.Seq2[string, any]
	// Len returns the number of keys.
	Len() int
}

// List is the engine-native read view of an array.
type List interface {
	// Index returns the element at i. i must be in range.
	Index(i int) any
	// Values returns the elements in order.
	Values() iter.Seq[any]
	// Len returns the number of elements.
	Len() int
}

// Comparer provides ordering between engine-native values.
type Comparer interface {
	// Compare returns -1, 0, or 1. Values of different kinds are ordered
	// by kind.
	Compare(any, any) (int, error)
	// Comparable reports whether two values can be compared by
	// magnitude (numbers with numbers, strings with strings, etc.).
	Comparable(any, any) bool
}

// Matcher compiles query filters.
type Matcher interface {
	// Compile validates filter and returns a reusable [Query].
	Compile(filter Document) (Query, error)
}

// Query is a compiled filter.
type Query interface {
	// Match reports whether doc satisfies the filter.
	Match(doc Document) (bool, error)
}

// Modifier applies update documents.
type Modifier interface {
	// Modify returns a modified copy of obj. obj itself is left untouched.
	Modify(obj Document, mod Document) (Document, error)
}

// FieldNavigator resolves dotted field addresses inside documents.
type FieldNavigator interface {
	// GetAddress splits a dotted field name into its path parts.
	GetAddress(field string) ([]string, error)
	// GetField returns every value reachable through addr. Arrays met
	// along the way are expanded. An empty result means the field is not
	// set.
	GetField(doc Document, addr ...string) []any
}

// Index is a unique, ordered index from primary keys to documents.
type Index interface {
	// Insert adds doc under key, failing with [ErrDuplicateKey] if the key
	// is taken.
	Insert(key any, doc Document) error
	// Remove removes the entry for key, if any.
	Remove(key any, doc Document) error
	// Get returns the document stored under key.
	Get(key any) (Document, bool, error)
	// All returns every document in key order.
	All() iter.Seq[Document]
	// Len returns the number of keys.
	Len() int
}

// IndexFactory creates the primary key index of a collection.
type IndexFactory = func(Comparer) Index

// IDGenerator mints object ids.
type IDGenerator interface {
	GenerateObjectID() (primitive.ObjectID, error)
}

// TimeGetter provides current time for journal commit markers.
type TimeGetter interface {
	GetTime() time.Time
}

// Serializer converts a journal record to a single line of bytes.
type Serializer interface {
	Serialize(context.Context, Record) ([]byte, error)
}

// Deserializer converts a journal line back to a record.
type Deserializer interface {
	Deserialize(context.Context, []byte) (Record, error)
}

// Decoder converts host values into user-defined types.
type Decoder interface {
	Decode(source any, target any) error
}

// Storage provides low-level file operations with crash-safety guarantees.
type Storage interface {
	// AppendFile appends data to a file, creating it if necessary, and
	// flushes it to disk.
	AppendFile(string, os.FileMode, []byte) (int, error)
	// Exists checks if a file exists.
	Exists(string) (bool, error)
	// EnsureParentDirectoryExists creates parent directories if needed.
	EnsureParentDirectoryExists(string, os.FileMode) error
	// EnsureDatafileIntegrity verifies or repairs file integrity.
	EnsureDatafileIntegrity(string, os.FileMode) error
	// CrashSafeWriteFileLines atomically replaces a file with the lines.
	CrashSafeWriteFileLines(string, [][]byte, os.FileMode, os.FileMode) error
	// ReadFileStream opens a file for streaming reads.
	ReadFileStream(string, os.FileMode) (io.ReadCloser, error)
	// Remove deletes a file.
	Remove(string) error
	// Size returns the size of a file, or zero if it does not exist.
	Size(string) (int64, error)
	// Truncate shrinks a file to the given size and flushes it to disk.
	Truncate(string, int64, os.FileMode) error
}

// Persistence manages the journal of committed transactions.
type Persistence interface {
	// LoadDatabase returns every record of every committed transaction,
	// in commit order, without the commit markers.
	LoadDatabase(ctx context.Context) ([]Record, error)
	// PersistNewState appends one committed transaction. The last record
	// must be the commit marker.
	PersistNewState(ctx context.Context, records ...Record) error
	// PersistCachedDatabase replaces the journal with a snapshot.
	PersistCachedDatabase(ctx context.Context, records []Record) error
	// DropDatabase removes the journal.
	DropDatabase(ctx context.Context) error
	// SetCorruptAlertThreshold sets the tolerated rate of unreadable
	// records.
	SetCorruptAlertThreshold(v float64)
}

// Metrics records engine activity.
type Metrics interface {
	Commit()
	Rollback()
	Insert()
	Delete()
	Update(n int64)
	Sync()
	Compaction()
	Collections(n int)
}
