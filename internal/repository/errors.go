// Package repository holds errors shared by the store backends.
package repository

import "errors"

// ErrNotFound is returned by every backend when a job id has no record.
var ErrNotFound = errors.New("not found")
