package catalog

import "errors"

var (
	ErrLibraryNotFound = errors.New("library not found")
	ErrPlanNotFound    = errors.New("plan not found or inactive for this library")
	ErrSeatNotFound    = errors.New("seat not found in this library")
)
