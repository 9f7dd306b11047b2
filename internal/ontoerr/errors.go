// Package ontoerr defines the error taxonomy shared by the graph, its readers
// and the import resolver.
//
// Every failure is reported through one of the sentinel values below, either
// directly or wrapped in EntityError or MalformedDocumentError. Callers
// classify errors with errors.Is and extract details with errors.As.
package ontoerr

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIdentifier: the id is already used by an entity of any kind.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrNotFound: lookup miss, after the alternate-id fallback.
	ErrNotFound = errors.New("entity not found")
	// ErrUndeclaredSubset: a subset name not declared in the graph metadata.
	ErrUndeclaredSubset = errors.New("undeclared subset")
	// ErrUndeclaredSynonymType: a synonym type not declared in the graph metadata.
	ErrUndeclaredSynonymType = errors.New("undeclared synonym type")
	// ErrCardinalityViolation: a set-valued axiom reduced to exactly one member.
	ErrCardinalityViolation = errors.New("cardinality violation")
	// ErrCrossGraphOperation: entities from two different graph instances were mixed.
	ErrCrossGraphOperation = errors.New("cross-graph operation")
	// ErrStaleReference: the graph behind a view no longer exists.
	ErrStaleReference = errors.New("stale reference")
	// ErrMalformedDocument: syntax error reported by a document reader.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrInvalidValue: a field value failed validation (unknown scope, empty id).
	ErrInvalidValue = errors.New("invalid value")
	// ErrMetadataAlreadySet: the metadata slot was set twice during one parse.
	ErrMetadataAlreadySet = errors.New("metadata already set")
	// ErrUnsupportedFormat: no reader accepts the document.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// EntityError ties a failure to the operation and entity id that caused it.
type EntityError struct {
	Op  string
	ID  string
	Err error
}

func (e *EntityError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }

// Entity wraps err with the operation and id. It returns nil for a nil err.
func Entity(op, id string, err error) error {
	if err == nil {
		return nil
	}
	return &EntityError{Op: op, ID: id, Err: err}
}

// MalformedDocumentError locates a syntax error in a source document.
// Line and Column are 1-based; Column is 0 when unknown.
type MalformedDocumentError struct {
	Path   string
	Line   int
	Column int
	Text   string
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
		if e.Column > 0 {
			loc = fmt.Sprintf("%s:%d", loc, e.Column)
		}
	}
	if e.Text == "" {
		return fmt.Sprintf("%s: %s: %s", loc, ErrMalformedDocument, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s (%q)", loc, ErrMalformedDocument, e.Reason, e.Text)
}

// Is reports ErrMalformedDocument so callers can classify without errors.As.
func (e *MalformedDocumentError) Is(target error) bool {
	return target == ErrMalformedDocument
}

// Malformed builds a MalformedDocumentError.
func Malformed(path string, line, column int, text, reason string) error {
	return &MalformedDocumentError{Path: path, Line: line, Column: column, Text: text, Reason: reason}
}

// CrossGraph reports an operation mixing two graph instances, naming both.
func CrossGraph(op, left, right string) error {
	return fmt.Errorf("%s: graphs %s and %s: %w", op, left, right, ErrCrossGraphOperation)
}
