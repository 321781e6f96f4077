package sla

import "errors"

var (
	// ErrInvalidPriority is returned for priorities missing from the table.
	ErrInvalidPriority = errors.New("invalid priority")
	// ErrInvalidSLAConfig is returned for unusable policies.
	ErrInvalidSLAConfig = errors.New("invalid sla config")
	// ErrInvalidTimestamp is returned for zero or unparseable timestamps.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)
