package database

import (
	"errors"
	"fmt"
)

// ErrConnection reports that a store could not be opened or reached.
var ErrConnection = errors.New("store connection failed")

// ErrUnknownStore is returned for names that were never registered with the Manager.
var ErrUnknownStore = errors.New("unknown store")

// SchemaMigrationError wraps a failed migration step. The original table is
// left intact whenever this error is returned.
type SchemaMigrationError struct {
	Store string
	Table string
	Step  string
	Err   error
}

func (e *SchemaMigrationError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("schema migration %s/%s: %v", e.Store, e.Step, e.Err)
	}
	return fmt.Sprintf("schema migration %s.%s/%s: %v", e.Store, e.Table, e.Step, e.Err)
}

func (e *SchemaMigrationError) Unwrap() error { return e.Err }
