// Package cursor contains the step based iterator over query results.
//
// A new cursor has no row. Consumers step once, then read and step while
// [Cursor.HasRow] is true.
package cursor

import (
	"github.com/vinicius-lino-figueiredo/polodb/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/value"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Cursor is a forward only view over the rows of a find.
type Cursor struct {
	eng domain.Engine
	h   domain.Handle
	dec domain.Decoder
	err error
}

// NewCursor wraps a cursor handle returned by [domain.Engine.Find].
func NewCursor(eng domain.Engine, h domain.Handle, options ...Option) *Cursor {
	c := &Cursor{
		eng: eng,
		h:   h,
		dec: decoder.NewDecoder(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Step advances to the next row. Stepping an exhausted or failed cursor does
// nothing and returns nil; the failure stays available through Err.
func (c *Cursor) Step() error {
	if c.err != nil {
		return nil
	}
	if err := c.eng.CursorStep(c.h); err != nil {
		c.err = err
		return err
	}
	return nil
}

// State returns the current state of the cursor.
func (c *Cursor) State() domain.CursorState {
	if c.err != nil {
		return domain.CursorFailed
	}
	s, err := c.eng.CursorState(c.h)
	if err != nil {
		c.err = err
		return domain.CursorFailed
	}
	return s
}

// HasRow reports whether a row is available.
func (c *Cursor) HasRow() bool {
	return c.State() == domain.CursorHasRow
}

// Get returns the current row. It fails with [domain.ErrNoRow] unless the
// cursor has a row.
func (c *Cursor) Get() (value.Value, error) {
	if !c.HasRow() {
		return value.Value{}, domain.ErrNoRow
	}
	h, err := c.eng.CursorGet(c.h)
	if err != nil {
		return value.Value{}, err
	}
	return value.Wrap(c.eng, h), nil
}

// Scan decodes the current row into target.
func (c *Cursor) Scan(target any) error {
	row, err := c.Get()
	if err != nil {
		return err
	}
	host, err := value.ToHost(row)
	if err != nil {
		return err
	}
	return c.dec.Decode(host, target)
}

// Err returns the error that failed the cursor, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Option configures a [Cursor].
type Option func(*Cursor)

// WithDecoder sets the decoder used by [Cursor.Scan].
func WithDecoder(d domain.Decoder) Option {
	return func(c *Cursor) {
		c.dec = d
	}
}
