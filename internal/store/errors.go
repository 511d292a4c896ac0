package store

import "errors"

var (
	ErrNotFound = errors.New("visitor message not found")
)
