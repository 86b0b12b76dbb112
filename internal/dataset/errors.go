package dataset

import (
	"errors"
	"fmt"
)

// ErrDataIntegrity is matched by every DataIntegrityError.
var ErrDataIntegrity = errors.New("data integrity error")

// DataIntegrityError reports a source that cannot produce a usable dataset.
type DataIntegrityError struct {
	Source string
	Reason string
	Err    error
}

func (e *DataIntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dataset %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("dataset %s: %s", e.Source, e.Reason)
}

func (e *DataIntegrityError) Unwrap() error { return e.Err }

func (e *DataIntegrityError) Is(target error) bool { return target == ErrDataIntegrity }

func integrityError(source, reason string, err error) error {
	return &DataIntegrityError{Source: source, Reason: reason, Err: err}
}
