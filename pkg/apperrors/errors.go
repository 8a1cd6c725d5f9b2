package apperrors

import "errors"

var (
	ErrConflict = errors.New("conflict")

	// ErrCatalogInvariant means persisted reference data maps one natural key to
	// more than one id. The run aborts before anything is written.
	ErrCatalogInvariant = errors.New("catalog invariant violated")

	// ErrUnresolvedReference means a queued row points at a pending id that no
	// earlier write stage produced.
	ErrUnresolvedReference = errors.New("unresolved pending reference")

	ErrLockNotAcquired      = errors.New("run lock not acquired")
	ErrUnknownStorageDriver = errors.New("unknown storage driver")
)
