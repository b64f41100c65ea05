package domain

import (
	"errors"
	"fmt"
	"math"
)

// Error roots. Every error produced by polodb matches exactly one of them
// with [errors.Is].
var (
	// ErrTypeMismatch is returned when a value of the wrong shape crosses
	// the API boundary.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrContractViolation is returned when the API is misused.
	ErrContractViolation = errors.New("contract violation")
	// ErrEngine is the root of failures reported by the engine.
	ErrEngine = errors.New("engine error")
)

// Engine errors.
var (
	ErrClosed             = fmt.Errorf("%w: database is closed", ErrEngine)
	ErrForeignHandle      = fmt.Errorf("%w: handle belongs to another connection", ErrEngine)
	ErrCollectionNotFound = fmt.Errorf("%w: collection not found", ErrEngine)
	ErrCollectionExists   = fmt.Errorf("%w: collection already exists", ErrEngine)
	ErrDuplicateKey       = fmt.Errorf("%w: duplicate primary key", ErrEngine)
	ErrInvalidPrimaryKey  = fmt.Errorf("%w: invalid primary key", ErrEngine)
	ErrCannotModifyID     = fmt.Errorf("%w: cannot modify _id", ErrEngine)
	ErrNotDocument        = fmt.Errorf("%w: value is not a document", ErrEngine)
	ErrNotArray           = fmt.Errorf("%w: value is not an array", ErrEngine)
)

// Contract violations.
var (
	ErrTransactionActive = fmt.Errorf("%w: a transaction is already active", ErrContractViolation)
	ErrNoTransaction     = fmt.Errorf("%w: no active transaction", ErrContractViolation)
	ErrNoRow             = fmt.Errorf("%w: cursor has no current row", ErrContractViolation)
	ErrConcurrentUse     = fmt.Errorf("%w: database used concurrently", ErrContractViolation)
)

// Type mismatches.
var (
	ErrNilValue    = fmt.Errorf("%w: value has no engine handle", ErrTypeMismatch)
	ErrCyclicValue = fmt.Errorf("%w: value references itself", ErrTypeMismatch)
	// ErrDocumentExpected is returned when a filter, update or inserted
	// value is not document shaped.
	ErrDocumentExpected = fmt.Errorf("%w: expected a document", ErrTypeMismatch)
)

// ErrWrongKind is returned when a value is read with an accessor for another
// kind.
type ErrWrongKind struct {
	Want Kind
	Got  Kind
}

func (e ErrWrongKind) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", ErrContractViolation, e.Want, e.Got)
}

func (e ErrWrongKind) Unwrap() error { return ErrContractViolation }

// ErrUnsupportedType is returned when a host value has no engine
// representation.
type ErrUnsupportedType struct {
	Type string
}

func (e ErrUnsupportedType) Error() string {
	return fmt.Sprintf("%s: unsupported type %s", ErrTypeMismatch, e.Type)
}

func (e ErrUnsupportedType) Unwrap() error { return ErrTypeMismatch }

// ErrPrimaryKeyType is returned when a document's _id kind differs from the
// kind used by the rest of the collection.
type ErrPrimaryKeyType struct {
	Collection string
	Want       Kind
	Got        Kind
}

func (e ErrPrimaryKeyType) Error() string {
	return fmt.Sprintf("%s: primary key of %q should be %s, got %s", ErrEngine, e.Collection, e.Want, e.Got)
}

func (e ErrPrimaryKeyType) Unwrap() error { return ErrEngine }

// ErrFieldName represents an invalid field name in a stored document.
type ErrFieldName struct {
	Field  string
	Reason string
}

func (e ErrFieldName) Error() string {
	return fmt.Sprintf("%s: invalid field name %q: %s", ErrEngine, e.Field, e.Reason)
}

func (e ErrFieldName) Unwrap() error { return ErrEngine }

// ErrUnknownOperator is returned when a filter uses an unknown dollar field.
type ErrUnknownOperator struct {
	Operator string
}

func (e ErrUnknownOperator) Error() string {
	return fmt.Sprintf("%s: unknown operator %q", ErrEngine, e.Operator)
}

func (e ErrUnknownOperator) Unwrap() error { return ErrEngine }

// ErrOperatorArg is returned when an operator gets an argument of the wrong
// kind.
type ErrOperatorArg struct {
	Operator string
	Want     string
	Actual   any
}

func (e ErrOperatorArg) Error() string {
	return fmt.Sprintf("%s: %s value should be of type %s, got %T", ErrEngine, e.Operator, e.Want, e.Actual)
}

func (e ErrOperatorArg) Unwrap() error { return ErrEngine }

// ErrDatafileName is returned when the journal path is reserved.
type ErrDatafileName struct {
	Name   string
	Reason string
}

func (e ErrDatafileName) Error() string {
	return fmt.Sprintf("%s: invalid datafile name %q: %s", ErrEngine, e.Name, e.Reason)
}

func (e ErrDatafileName) Unwrap() error { return ErrEngine }

// ErrCorruptFiles is returned when too many journal records are unreadable.
type ErrCorruptFiles struct {
	CorruptionRate        float64
	CorruptItems          int
	DataLength            int
	CorruptAlertThreshold float64
}

func (e ErrCorruptFiles) Error() string {
	return fmt.Sprintf("%s: %f%% of the journal is corrupt, more than given corruptAlertThreshold (%f%%). Cautiously refusing to open the database to prevent dataloss.", ErrEngine, math.Floor(100*e.CorruptionRate), math.Floor(100*e.CorruptAlertThreshold))
}

func (e ErrCorruptFiles) Unwrap() error { return ErrEngine }

// ErrFlushToStorage is returned when a file cannot be flushed to disk.
type ErrFlushToStorage struct {
	ErrorOnFsync error
	ErrorOnClose error
}

func (e ErrFlushToStorage) Error() string {
	var err error
	if e.ErrorOnFsync != nil {
		err = e.ErrorOnFsync
	} else {
		err = e.ErrorOnClose
	}
	return fmt.Sprint("storage flush error: ", err.Error())
}

func (e ErrFlushToStorage) Unwrap() []error {
	return []error{ErrEngine, e.ErrorOnFsync, e.ErrorOnClose}
}

// ErrDecode wraps third party decoding errors.
type ErrDecode struct {
	Source any
	Target any
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("%s: cannot decode %T into %T", ErrTypeMismatch, e.Source, e.Target)
}

func (e ErrDecode) Unwrap() error { return ErrTypeMismatch }

// ErrTargetNil is returned when a nil target is given to a decoder.
var ErrTargetNil = fmt.Errorf("%w: target is nil", ErrTypeMismatch)

// ErrNonPointer is returned when a non-pointer target is given to a decoder.
var ErrNonPointer = fmt.Errorf("%w: target is not a pointer", ErrTypeMismatch)
