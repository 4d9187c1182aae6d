package database

import "errors"

// ErrNotFound indicates the referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidArgument indicates a caller-supplied value failed validation.
var ErrInvalidArgument = errors.New("invalid argument")
