package domain

import (
	"fmt"
	"time"
)

// Kind is the tag of an engine value. The tag of a value is always queried
// from the engine that owns it.
type Kind uint8

// Value kinds supported by the engine.
const (
	KindNull Kind = iota + 1
	KindInt
	KindDouble
	KindBoolean
	KindString
	KindArray
	KindDocument
	KindObjectID
)

var kindNames = [...]string{
	KindNull:     "Null",
	KindInt:      "Int",
	KindDouble:   "Double",
	KindBoolean:  "Boolean",
	KindString:   "String",
	KindArray:    "Array",
	KindDocument: "Document",
	KindObjectID: "ObjectId",
}

// String implements [fmt.Stringer].
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsKey reports whether values of this kind can be used as a primary key.
func (k Kind) IsKey() bool {
	switch k {
	case KindString, KindInt, KindObjectID, KindBoolean:
		return true
	default:
		return false
	}
}

// CursorState is the state of a query cursor.
type CursorState uint8

// Cursor states. A cursor starts Primed and has no row until it is stepped.
const (
	CursorPrimed CursorState = iota
	CursorHasRow
	CursorExhausted
	CursorFailed
)

func (s CursorState) String() string {
	switch s {
	case CursorPrimed:
		return "Primed"
	case CursorHasRow:
		return "HasRow"
	case CursorExhausted:
		return "Exhausted"
	case CursorFailed:
		return "Failed"
	default:
		return fmt.Sprintf("CursorState(%d)", uint8(s))
	}
}

// TxState is the transaction state carried by a database handle.
type TxState uint8

// Transaction states. Only one transaction can be active per handle.
const (
	TxIdle TxState = iota
	TxActive
)

func (s TxState) String() string {
	if s == TxActive {
		return "Active"
	}
	return "Idle"
}

// Handle is a non-owning reference into engine-owned storage. A handle is
// only usable with the engine connection that minted it, and only while that
// connection is open.
type Handle interface {
	// Valid reports whether the connection that minted the handle is
	// still open.
	Valid() bool
}

// Record operations written to the journal.
const (
	OpCreate = "$$create"
	OpInsert = "$$insert"
	OpDelete = "$$delete"
	OpUpdate = "$$update"
	OpCommit = "$$commit"
)

// Record is a single journal entry. Key and Doc carry engine-native values.
// At is only set on commit markers.
type Record struct {
	Op         string
	Collection string
	TxID       string
	Key        any
	Doc        any
	At         time.Time
}
