// Package engine contains the default [domain.Engine] implementation, an
// in-memory document store backed by a journal of committed transactions.
//
// Every collection is a unique primary key index. Writes are only accepted
// inside a transaction; committing appends the transaction's records and a
// commit marker to the journal in a single write, and any failure reverts the
// in-memory state with the transaction's undo log.
package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/data"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/idgenerator"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/index"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/metrics"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/modifier"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/persistence"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
	"github.com/vinicius-lino-figueiredo/polodb/pkg/ctxsync"
)

const idField = "_id"

type collection struct {
	name  string
	index domain.Index
	// keyKind is fixed by the first document ever inserted.
	keyKind domain.Kind
}

type transaction struct {
	id       string
	undo     []func()
	records  []domain.Record
	inserted int
	deleted  int
	updated  int64
}

// mark returns the current length of the undo log and of the records.
func (tx *transaction) mark() (int, int) {
	return len(tx.undo), len(tx.records)
}

// revertTo undoes every change made after mark returned undo and records.
func (tx *transaction) revertTo(undo, records int) {
	for _, fn := range slices.Backward(tx.undo[undo:]) {
		fn()
	}
	tx.undo = tx.undo[:undo]
	tx.records = tx.records[:records]
}

// Engine implements [domain.Engine]. It is meant to be used by a single
// goroutine; overlapping calls fail with [domain.ErrConcurrentUse]. TxState
// and handle validity are plain reads and are not guarded.
type Engine struct {
	mu     *ctxsync.Mutex
	closed bool

	collections map[string]*collection
	tx          *transaction

	persistence    domain.Persistence
	comparer       domain.Comparer
	fieldNavigator domain.FieldNavigator
	matcher        domain.Matcher
	modifier       domain.Modifier
	idGenerator    domain.IDGenerator
	timeGetter     domain.TimeGetter
	indexFactory   domain.IndexFactory
	metrics        domain.Metrics
	log            *zap.Logger
}

// Open loads the journal, replays every committed transaction and compacts
// the journal into a snapshot.
func Open(ctx context.Context, opts ...Option) (*Engine, error) {
	o := options{
		corruptAlertThreshold: 0.1,
		fileMode:              persistence.DefaultFileMode,
		dirMode:               persistence.DefaultDirMode,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.comparer == nil {
		o.comparer = comparer.NewComparer()
	}
	if o.fieldNavigator == nil {
		o.fieldNavigator = fieldnavigator.NewFieldNavigator()
	}
	if o.matcher == nil {
		o.matcher = matcher.NewMatcher(
			matcher.WithComparer(o.comparer),
			matcher.WithFieldNavigator(o.fieldNavigator),
		)
	}
	if o.modifier == nil {
		o.modifier = modifier.NewModifier(
			modifier.WithComparer(o.comparer),
			modifier.WithFieldNavigator(o.fieldNavigator),
		)
	}
	if o.timeGetter == nil {
		o.timeGetter = timegetter.NewTimeGetter()
	}
	if o.idGenerator == nil {
		o.idGenerator = idgenerator.NewIDGenerator(idgenerator.WithTimeGetter(o.timeGetter))
	}
	if o.indexFactory == nil {
		o.indexFactory = index.NewIndex
	}
	if o.metrics == nil {
		o.metrics, _ = metrics.NewMetrics(nil)
	}
	if o.persistence == nil {
		popts := []persistence.Option{
			persistence.WithFilename(o.filename),
			persistence.WithInMemoryOnly(o.inMemoryOnly),
			persistence.WithCorruptAlertThreshold(o.corruptAlertThreshold),
			persistence.WithFileMode(o.fileMode),
			persistence.WithDirMode(o.dirMode),
			persistence.WithLogger(o.log),
		}
		if o.storage != nil {
			popts = append(popts, persistence.WithStorage(o.storage))
		}
		if o.serializer != nil {
			popts = append(popts, persistence.WithSerializer(o.serializer))
		}
		if o.deserializer != nil {
			popts = append(popts, persistence.WithDeserializer(o.deserializer))
		}
		p, err := persistence.NewPersistence(popts...)
		if err != nil {
			return nil, err
		}
		o.persistence = p
	}

	e := &Engine{
		mu:             ctxsync.NewMutex(),
		collections:    make(map[string]*collection),
		persistence:    o.persistence,
		comparer:       o.comparer,
		fieldNavigator: o.fieldNavigator,
		matcher:        o.matcher,
		modifier:       o.modifier,
		idGenerator:    o.idGenerator,
		timeGetter:     o.timeGetter,
		indexFactory:   o.indexFactory,
		metrics:        o.metrics,
		log:            o.log,
	}

	records, err := e.persistence.LoadDatabase(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := e.replay(r); err != nil {
			return nil, fmt.Errorf("replaying journal: %w", err)
		}
	}
	e.metrics.Collections(len(e.collections))

	if err := e.compact(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) enter() error {
	if !e.mu.TryLock() {
		return domain.ErrConcurrentUse
	}
	if e.closed {
		e.mu.Unlock()
		return domain.ErrClosed
	}
	return nil
}

func (e *Engine) replay(r domain.Record) error {
	if r.Op == domain.OpCreate {
		if _, ok := e.collections[r.Collection]; ok {
			e.log.Warn("collection created twice in journal", zap.String("collection", r.Collection))
			return nil
		}
		e.addCollection(r.Collection)
		return nil
	}

	c, err := e.collection(r.Collection)
	if err != nil {
		return err
	}
	switch r.Op {
	case domain.OpInsert:
		doc := r.Doc.(*data.D)
		key, err := e.primaryKey(c, doc)
		if err != nil {
			return err
		}
		_, err = e.insertDoc(c, key, doc)
		return err
	case domain.OpDelete:
		_, _, err := e.removeDoc(c, r.Key)
		return err
	case domain.OpUpdate:
		doc := r.Doc.(*data.D)
		key, _ := doc.Get(idField)
		old, ok, err := c.index.Get(key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: update of missing key %v", domain.ErrEngine, key)
		}
		_, err = e.replaceDoc(c, key, old, doc)
		return err
	default:
		return fmt.Errorf("%w: unexpected journal operation %q", domain.ErrEngine, r.Op)
	}
}

func (e *Engine) addCollection(name string) *collection {
	c := &collection{name: name, index: e.indexFactory(e.comparer)}
	e.collections[name] = c
	return c
}

func (e *Engine) collection(name string) (*collection, error) {
	c, ok := e.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrCollectionNotFound, name)
	}
	return c, nil
}

// CreateCollection implements [domain.Engine].
func (e *Engine) CreateCollection(name string) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	if e.tx == nil {
		return domain.ErrNoTransaction
	}
	if name == "" {
		return fmt.Errorf("%w: empty collection name", domain.ErrEngine)
	}
	if _, ok := e.collections[name]; ok {
		return fmt.Errorf("%w: %q", domain.ErrCollectionExists, name)
	}

	e.addCollection(name)
	e.tx.undo = append(e.tx.undo, func() { delete(e.collections, name) })
	e.tx.records = append(e.tx.records, domain.Record{Op: domain.OpCreate, Collection: name, TxID: e.tx.id})
	return nil
}

// Collections implements [domain.Engine].
func (e *Engine) Collections() ([]string, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	return e.names(), nil
}

func (e *Engine) names() []string {
	names := make([]string, 0, len(e.collections))
	for name := range e.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// primaryKey validates the _id of doc against the collection.
func (e *Engine) primaryKey(c *collection, doc *data.D) (any, error) {
	key, ok := doc.Get(idField)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrInvalidPrimaryKey, idField)
	}
	kind, err := data.Kind(key)
	if err != nil {
		return nil, err
	}
	if !kind.IsKey() {
		return nil, fmt.Errorf("%w: %s cannot be %s", domain.ErrInvalidPrimaryKey, idField, kind)
	}
	if c.keyKind != 0 && c.keyKind != kind {
		return nil, domain.ErrPrimaryKeyType{Collection: c.name, Want: c.keyKind, Got: kind}
	}
	return key, nil
}

// checkFieldNames rejects names that cannot be addressed by a filter.
func (e *Engine) checkFieldNames(v any) error {
	switch t := v.(type) {
	case *data.D:
		for k, val := range t.Iter() {
			if strings.Contains(k, ".") {
				return domain.ErrFieldName{Field: k, Reason: "cannot contain a '.'"}
			}
			if strings.HasPrefix(k, "$") {
				return domain.ErrFieldName{Field: k, Reason: "cannot start with '$'"}
			}
			if err := e.checkFieldNames(val); err != nil {
				return err
			}
		}
	case *data.A:
		for val := range t.Values() {
			if err := e.checkFieldNames(val); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) insertDoc(c *collection, key any, doc *data.D) (func(), error) {
	if err := c.index.Insert(key, doc); err != nil {
		return nil, err
	}
	prevKind := c.keyKind
	if c.keyKind == 0 {
		c.keyKind, _ = data.Kind(key)
	}
	return func() {
		_ = c.index.Remove(key, doc)
		c.keyKind = prevKind
	}, nil
}

func (e *Engine) removeDoc(c *collection, key any) (bool, func(), error) {
	doc, ok, err := c.index.Get(key)
	if err != nil || !ok {
		return false, nil, err
	}
	if err := c.index.Remove(key, doc); err != nil {
		return false, nil, err
	}
	return true, func() { _ = c.index.Insert(key, doc) }, nil
}

func (e *Engine) replaceDoc(c *collection, key any, old domain.Document, doc *data.D) (func(), error) {
	if err := c.index.Remove(key, old); err != nil {
		return nil, err
	}
	if err := c.index.Insert(key, doc); err != nil {
		_ = c.index.Insert(key, old)
		return nil, err
	}
	return func() {
		_ = c.index.Remove(key, doc)
		_ = c.index.Insert(key, old)
	}, nil
}

// Insert implements [domain.Engine].
func (e *Engine) Insert(collection string, doc domain.Handle) (domain.Handle, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if e.tx == nil {
		return nil, domain.ErrNoTransaction
	}
	d, err := e.document(doc)
	if err != nil {
		return nil, err
	}
	c, err := e.collection(collection)
	if err != nil {
		return nil, err
	}
	if err := e.checkFieldNames(d); err != nil {
		return nil, err
	}

	stored := data.Clone(d).(*data.D)
	var minted any
	if _, ok := stored.Get(idField); !ok {
		id, err := e.idGenerator.GenerateObjectID()
		if err != nil {
			return nil, err
		}
		minted = id
		stored.Set(idField, id)
	}
	key, err := e.primaryKey(c, stored)
	if err != nil {
		return nil, err
	}

	undo, err := e.insertDoc(c, key, stored)
	if err != nil {
		return nil, err
	}
	if minted != nil {
		d.Set(idField, minted)
	}
	e.tx.undo = append(e.tx.undo, undo)
	e.tx.records = append(e.tx.records, domain.Record{Op: domain.OpInsert, Collection: collection, TxID: e.tx.id, Doc: stored})
	e.tx.inserted++
	return e.wrap(key)
}

// Delete implements [domain.Engine].
func (e *Engine) Delete(collection string, key domain.Handle) (bool, error) {
	if err := e.enter(); err != nil {
		return false, err
	}
	defer e.mu.Unlock()

	if e.tx == nil {
		return false, domain.ErrNoTransaction
	}
	k, err := e.lookup(key)
	if err != nil {
		return false, err
	}
	c, err := e.collection(collection)
	if err != nil {
		return false, err
	}
	kind, err := data.Kind(k.v)
	if err != nil {
		return false, err
	}
	if !kind.IsKey() {
		return false, fmt.Errorf("%w: %s cannot be %s", domain.ErrInvalidPrimaryKey, idField, kind)
	}

	removed, undo, err := e.removeDoc(c, k.v)
	if err != nil || !removed {
		return false, err
	}
	e.tx.undo = append(e.tx.undo, undo)
	e.tx.records = append(e.tx.records, domain.Record{Op: domain.OpDelete, Collection: collection, TxID: e.tx.id, Key: k.v})
	e.tx.deleted++
	return true, nil
}

// Update implements [domain.Engine]. Documents left unchanged by update are
// not counted nor journaled.
func (e *Engine) Update(collection string, filter domain.Handle, update domain.Handle) (int64, error) {
	if err := e.enter(); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()

	if e.tx == nil {
		return 0, domain.ErrNoTransaction
	}
	c, err := e.collection(collection)
	if err != nil {
		return 0, err
	}
	mod, err := e.document(update)
	if err != nil {
		return 0, err
	}
	q, err := e.compile(filter)
	if err != nil {
		return 0, err
	}

	var matched []*data.D
	for doc := range c.index.All() {
		ok, err := q.Match(doc)
		if err != nil {
			return 0, err
		}
		if ok {
			matched = append(matched, doc.(*data.D))
		}
	}

	undoMark, recordMark := e.tx.mark()
	n, err := e.updateDocs(c, matched, mod)
	if err != nil {
		e.tx.revertTo(undoMark, recordMark)
		return 0, err
	}
	e.tx.updated += n
	return n, nil
}

// updateDocs applies mod to every matched document. On error, changes already
// applied are left to the caller to revert.
func (e *Engine) updateDocs(c *collection, matched []*data.D, mod *data.D) (int64, error) {
	var n int64
	for _, old := range matched {
		res, err := e.modifier.Modify(old, mod)
		if err != nil {
			return 0, err
		}
		doc := res.(*data.D)
		if err := e.checkFieldNames(doc); err != nil {
			return 0, err
		}
		if cmp, err := e.comparer.Compare(old, doc); err == nil && cmp == 0 {
			continue
		}
		key, _ := old.Get(idField)
		undo, err := e.replaceDoc(c, key, old, doc)
		if err != nil {
			return 0, err
		}
		e.tx.undo = append(e.tx.undo, undo)
		e.tx.records = append(e.tx.records, domain.Record{Op: domain.OpUpdate, Collection: c.name, TxID: e.tx.id, Doc: doc})
		n++
	}
	return n, nil
}

// Count implements [domain.Engine].
func (e *Engine) Count(collection string, filter domain.Handle) (int64, error) {
	if err := e.enter(); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()

	c, err := e.collection(collection)
	if err != nil {
		return 0, err
	}
	q, err := e.compile(filter)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, doc := range e.candidates(c, filter) {
		ok, err := q.Match(doc)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// filterDoc returns the document behind a filter handle. A nil handle means
// no filter.
func (e *Engine) filterDoc(filter domain.Handle) (*data.D, error) {
	if filter == nil {
		return nil, nil
	}
	return e.document(filter)
}

func (e *Engine) compile(filter domain.Handle) (domain.Query, error) {
	f, err := e.filterDoc(filter)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return e.matcher.Compile(nil)
	}
	return e.matcher.Compile(f)
}

// candidates returns the documents a filter has to be tested against. A
// filter on a plain _id value only needs the index entry.
func (e *Engine) candidates(c *collection, filter domain.Handle) []domain.Document {
	if f, err := e.filterDoc(filter); err == nil && f != nil {
		if key, ok := f.Get(idField); ok {
			if kind, err := data.Kind(key); err == nil && kind.IsKey() {
				doc, found, err := c.index.Get(key)
				if err == nil {
					if !found {
						return nil
					}
					return []domain.Document{doc}
				}
			}
		}
	}
	docs := make([]domain.Document, 0, c.index.Len())
	for doc := range c.index.All() {
		docs = append(docs, doc)
	}
	return docs
}

// StartTransaction implements [domain.Engine].
func (e *Engine) StartTransaction() error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	if e.tx != nil {
		return domain.ErrTransactionActive
	}
	e.tx = &transaction{id: uuid.NewString()}
	e.log.Debug("transaction started", zap.String("tx", e.tx.id))
	return nil
}

// Commit implements [domain.Engine]. If the journal cannot be written, the
// transaction is rolled back and the write error returned.
func (e *Engine) Commit() error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	if e.tx == nil {
		return domain.ErrNoTransaction
	}
	tx := e.tx

	if len(tx.records) > 0 {
		records := append(tx.records, domain.Record{
			Op:   domain.OpCommit,
			TxID: tx.id,
			At:   e.timeGetter.GetTime(),
		})
		if err := e.persistence.PersistNewState(context.Background(), records...); err != nil {
			e.rollback()
			e.log.Error("commit failed", zap.String("tx", tx.id), zap.Error(err))
			return err
		}
		e.metrics.Sync()
	}

	e.tx = nil
	for range tx.inserted {
		e.metrics.Insert()
	}
	for range tx.deleted {
		e.metrics.Delete()
	}
	if tx.updated > 0 {
		e.metrics.Update(tx.updated)
	}
	e.metrics.Commit()
	e.metrics.Collections(len(e.collections))
	e.log.Debug("transaction committed", zap.String("tx", tx.id), zap.Int("records", len(tx.records)))
	return nil
}

// Rollback implements [domain.Engine].
func (e *Engine) Rollback() error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	if e.tx == nil {
		return domain.ErrNoTransaction
	}
	e.rollback()
	return nil
}

func (e *Engine) rollback() {
	tx := e.tx
	for _, undo := range slices.Backward(tx.undo) {
		undo()
	}
	e.tx = nil
	e.metrics.Rollback()
	e.log.Debug("transaction rolled back", zap.String("tx", tx.id), zap.Int("records", len(tx.records)))
}

// TxState implements [domain.Engine].
func (e *Engine) TxState() domain.TxState {
	if e.tx != nil {
		return domain.TxActive
	}
	return domain.TxIdle
}

// Compact implements [domain.Engine].
func (e *Engine) Compact() error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	if e.tx != nil {
		return domain.ErrTransactionActive
	}
	return e.compact(context.Background())
}

// compact rewrites the journal as a single committed transaction recreating
// the current state.
func (e *Engine) compact(ctx context.Context) error {
	txID := uuid.NewString()
	var records []domain.Record
	for _, name := range e.names() {
		c := e.collections[name]
		records = append(records, domain.Record{Op: domain.OpCreate, Collection: name, TxID: txID})
		for doc := range c.index.All() {
			records = append(records, domain.Record{Op: domain.OpInsert, Collection: name, TxID: txID, Doc: doc})
		}
	}
	if len(records) > 0 {
		records = append(records, domain.Record{Op: domain.OpCommit, TxID: txID, At: e.timeGetter.GetTime()})
	}

	if err := e.persistence.PersistCachedDatabase(ctx, records); err != nil {
		return err
	}
	e.metrics.Compaction()
	return nil
}

// Close implements [domain.Engine]. An active transaction is rolled back and
// the journal compacted. Every handle minted by e becomes invalid.
func (e *Engine) Close() error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	if e.tx != nil {
		e.log.Warn("closing with an active transaction", zap.String("tx", e.tx.id))
		e.rollback()
	}
	err := e.compact(context.Background())

	e.closed = true
	e.collections = nil
	e.metrics.Collections(0)
	return err
}

// Find implements [domain.Engine]. The cursor works on a snapshot of the
// collection taken now; the filter is compiled on the first step.
func (e *Engine) Find(collection string, filter domain.Handle) (domain.Handle, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	c, err := e.collection(collection)
	if err != nil {
		return nil, err
	}
	f, err := e.filterDoc(filter)
	if err != nil {
		return nil, err
	}
	cur := &cursor{
		owned: owned{owner: e},
		rows:  e.candidates(c, filter),
		state: domain.CursorPrimed,
	}
	if f != nil {
		cur.filter = data.Clone(f).(*data.D)
	}
	return cur, nil
}

// cursor is a handle to the result of a find.
type cursor struct {
	owned
	filter *data.D
	query  domain.Query
	rows   []domain.Document
	pos    int
	state  domain.CursorState
	row    *data.D
}

func (e *Engine) cursorOf(h domain.Handle) (*cursor, error) {
	if err := e.check(h); err != nil {
		return nil, err
	}
	c, ok := h.(*cursor)
	if !ok || c.owner != e {
		return nil, domain.ErrForeignHandle
	}
	return c, nil
}

// CursorStep implements [domain.Engine].
func (e *Engine) CursorStep(h domain.Handle) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	cur, err := e.cursorOf(h)
	if err != nil {
		return err
	}
	if cur.state == domain.CursorExhausted || cur.state == domain.CursorFailed {
		return nil
	}

	if cur.query == nil {
		var filter domain.Document
		if cur.filter != nil {
			filter = cur.filter
		}
		if cur.query, err = e.matcher.Compile(filter); err != nil {
			return cur.fail(err)
		}
	}

	for cur.pos < len(cur.rows) {
		doc := cur.rows[cur.pos]
		cur.pos++
		ok, err := cur.query.Match(doc)
		if err != nil {
			return cur.fail(err)
		}
		if ok {
			cur.row = data.Clone(doc).(*data.D)
			cur.state = domain.CursorHasRow
			return nil
		}
	}
	cur.row, cur.rows = nil, nil
	cur.state = domain.CursorExhausted
	return nil
}

func (c *cursor) fail(err error) error {
	c.row, c.rows = nil, nil
	c.state = domain.CursorFailed
	return err
}

// CursorState implements [domain.Engine].
func (e *Engine) CursorState(h domain.Handle) (domain.CursorState, error) {
	if err := e.enter(); err != nil {
		return domain.CursorFailed, err
	}
	defer e.mu.Unlock()

	cur, err := e.cursorOf(h)
	if err != nil {
		return domain.CursorFailed, err
	}
	return cur.state, nil
}

// CursorGet implements [domain.Engine].
func (e *Engine) CursorGet(h domain.Handle) (domain.Handle, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	cur, err := e.cursorOf(h)
	if err != nil {
		return nil, err
	}
	if cur.state != domain.CursorHasRow {
		return nil, domain.ErrNoRow
	}
	return e.wrap(cur.row)
}

var _ domain.Engine = (*Engine)(nil)
