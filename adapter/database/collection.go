package database

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/value"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Collection is a named set of documents. Filters accepted by its methods
// are nil (everything), a [value.Document] or anything [value.FromHost]
// turns into a document.
type Collection struct {
	db   *Database
	name string
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) document(v any) (domain.Handle, error) {
	if v == nil {
		return nil, nil
	}
	val, err := c.db.FromHost(v)
	if err != nil {
		return nil, err
	}
	doc, err := asDocument(val)
	if err != nil {
		return nil, err
	}
	return doc.Handle(), nil
}

// Stream returns a cursor over the documents matching filter.
func (c *Collection) Stream(filter any) (*cursor.Cursor, error) {
	f, err := c.document(filter)
	if err != nil {
		return nil, err
	}
	h, err := c.db.eng.Find(c.name, f)
	if err != nil {
		return nil, err
	}
	return cursor.NewCursor(c.db.eng, h, cursor.WithDecoder(c.db.dec)), nil
}

// drain steps cur to the end, calling fn on every row.
func drain(cur *cursor.Cursor, fn func(value.Value) error) error {
	if err := cur.Step(); err != nil {
		return err
	}
	for cur.HasRow() {
		row, err := cur.Get()
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
		if err := cur.Step(); err != nil {
			return err
		}
	}
	return cur.Err()
}

// Find returns every document matching filter, in primary key order.
func (c *Collection) Find(filter any) ([]map[string]any, error) {
	cur, err := c.Stream(filter)
	if err != nil {
		return nil, err
	}
	res := []map[string]any{}
	err = drain(cur, func(row value.Value) error {
		host, err := value.ToHost(row)
		if err != nil {
			return err
		}
		res = append(res, host.(map[string]any))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// FindAll returns every document of the collection.
func (c *Collection) FindAll() ([]map[string]any, error) {
	return c.Find(nil)
}

// FindOrdered works like Find but keeps the field order of each document.
func (c *Collection) FindOrdered(filter any) ([]bson.D, error) {
	cur, err := c.Stream(filter)
	if err != nil {
		return nil, err
	}
	res := []bson.D{}
	err = drain(cur, func(row value.Value) error {
		host, err := value.ToOrdered(row)
		if err != nil {
			return err
		}
		res = append(res, host.(bson.D))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// FindInto decodes every document matching filter into target, which must
// be a pointer to a slice.
func (c *Collection) FindInto(filter any, target any) error {
	docs, err := c.Find(filter)
	if err != nil {
		return err
	}
	list := make([]any, len(docs))
	for i, d := range docs {
		list[i] = d
	}
	return c.db.dec.Decode(list, target)
}

// Count returns how many documents match filter.
func (c *Collection) Count(filter any) (int64, error) {
	f, err := c.document(filter)
	if err != nil {
		return 0, err
	}
	return c.db.eng.Count(c.name, f)
}

// Insert stores a copy of doc and returns its primary key. A document
// without _id gets a new object id, written back into doc.
func (c *Collection) Insert(doc value.Document) (value.Value, error) {
	if _, err := asDocument(doc.Value()); err != nil {
		return value.Value{}, err
	}
	var key domain.Handle
	err := c.db.inTransaction(func() error {
		var err error
		key, err = c.db.eng.Insert(c.name, doc.Handle())
		return err
	})
	if err != nil {
		return value.Value{}, err
	}
	return value.Wrap(c.db.eng, key), nil
}

// InsertHost converts doc with [value.FromHost] and inserts it.
func (c *Collection) InsertHost(doc any) (value.Value, error) {
	d, err := c.db.Document(doc)
	if err != nil {
		return value.Value{}, err
	}
	return c.Insert(d)
}

// Delete removes the document whose primary key is key and reports whether
// it existed.
func (c *Collection) Delete(key any) (bool, error) {
	k, err := c.db.FromHost(key)
	if err != nil {
		return false, err
	}
	var removed bool
	err = c.db.inTransaction(func() error {
		var err error
		removed, err = c.db.eng.Delete(c.name, k.Handle())
		return err
	})
	return removed, err
}

// Update applies update to every document matching filter and returns how
// many documents changed. update either holds $set, $unset, $inc, $push,
// $max and $min operators, or replaces every field but _id.
func (c *Collection) Update(filter any, update any) (int64, error) {
	f, err := c.document(filter)
	if err != nil {
		return 0, err
	}
	if update == nil {
		return 0, domain.ErrDocumentExpected
	}
	u, err := c.document(update)
	if err != nil {
		return 0, err
	}
	var n int64
	err = c.db.inTransaction(func() error {
		var err error
		n, err = c.db.eng.Update(c.name, f, u)
		return err
	})
	return n, err
}
