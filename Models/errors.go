package Models

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	// ErrStatusChanged means a conditional transition found the task in a
	// different status than the caller observed.
	ErrStatusChanged = errors.New("task status changed concurrently")
)
