package domain

import (
	"errors"
	"fmt"

	coredatabase "github.com/m3rciful/notifybot/core/database"
)

var (
	// ErrConnection reports an unreachable store; the operation was skipped.
	ErrConnection = coredatabase.ErrConnection
	// ErrTicketNotFound is returned for transitions on an unknown ticket id.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketClosed is returned when a Resolved ticket would be reopened.
	ErrTicketClosed = errors.New("ticket already resolved")
	// ErrInvalidCallback rejects callback data that is not one of the known variants.
	ErrInvalidCallback = errors.New("invalid callback data")
	// ErrEmptyBroadcast rejects a broadcast with neither text nor photo.
	ErrEmptyBroadcast = errors.New("broadcast has no content")
)

// SchemaMigrationError is a failed migration step; the original table is intact.
type SchemaMigrationError = coredatabase.SchemaMigrationError

// DeliveryError is a failed send to one recipient. It never aborts a batch.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %d: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// BackupIOError is a filesystem or snapshot failure while creating or pruning backups.
type BackupIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *BackupIOError) Error() string {
	return fmt.Sprintf("backup %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *BackupIOError) Unwrap() error { return e.Err }
