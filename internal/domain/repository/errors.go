package repository

import "errors"

// ErrNotFound is returned by repositories when the requested row does not
// exist. Use cases translate it into an application NotFound.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique key (case number, order id) is taken.
var ErrDuplicate = errors.New("duplicate record")
