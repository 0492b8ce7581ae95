package mediasource

import "errors"

var (
	// ErrNotFound is returned when a requested Media Source does not exist.
	ErrNotFound = errors.New("media source not found")

	// ErrLibraryNotFound is returned when a requested Library does not exist.
	ErrLibraryNotFound = errors.New("library not found")

	// ErrUnknownKind is returned when a Media Source names a kind the
	// registry has no Syncer for.
	ErrUnknownKind = errors.New("unknown media source kind")
)
