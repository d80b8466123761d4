package videos

import "errors"

var (
	// ErrNotFound is returned when a video id does not exist.
	ErrNotFound = errors.New("video not found")
	// ErrInvalidInput is returned for unreadable or rejected uploads.
	ErrInvalidInput = errors.New("invalid video input")
)
