package workflow

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrItemNotFound    = errors.New("item not found on header")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrVersionConflict = errors.New("header was modified concurrently")
)
