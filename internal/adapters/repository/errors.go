package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("comparison not found")
	ErrInvalidLimit  = errors.New("invalid ranking limit")
	ErrInvalidRecord = errors.New("invalid record")
)
