package loto

import (
	"errors"
	"fmt"
)

// ErrEmptyCorpus is returned when no batch survived normalization. Nothing is persisted in that case.
var ErrEmptyCorpus = errors.New("empty corpus: no batch survived normalization")

// RetrievalError reports an archive that could not be downloaded or unpacked.
type RetrievalError struct {
	Location string
	Err      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve %s: %v", e.Location, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// SchemaError rejects a whole batch because one of its values has no canonical form.
type SchemaError struct {
	Source string
	Row    int // 1-based data row, 0 when the error is not tied to a row
	Column string
	Value  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("schema error in %s row %d column %s=%q: %s", e.Source, e.Row, e.Column, e.Value, e.Reason)
	}
	return fmt.Sprintf("schema error in %s column %s: %s", e.Source, e.Column, e.Reason)
}

func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

func IsRetrievalError(err error) bool {
	var re *RetrievalError
	return errors.As(err, &re)
}
