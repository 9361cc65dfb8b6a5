// Package common defines shared constants and sentinel errors used across
// the storage core and its transports. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Lookup errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal       = errors.New("internal error")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownOperation = errors.New("unknown operation")

	// Storage engine errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStorageWrite       = errors.New("storage write error")
	ErrStorageRead        = errors.New("storage read error")

	// ErrStatisticsDisabled is returned by Stats on an engine opened
	// without statistics.
	ErrStatisticsDisabled = errors.New("engine statistics are disabled")

	// ErrConsistency marks an index record whose data record is missing.
	// It always travels wrapped together with ErrStorageRead.
	ErrConsistency = errors.New("index points to missing data record")

	// ErrIDExhausted is returned once the identifier space is used up.
	ErrIDExhausted = errors.New("identifier space exhausted")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
