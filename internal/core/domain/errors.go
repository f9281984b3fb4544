package domain

import "errors"

// Error taxonomy surfaced across the service boundary. Store and transport
// failures stay wrapped and map to an opaque internal error at the edge.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)
