package index

import "errors"

var (
	// ErrUnknownProvider is returned when a provider name has no registered
	// factory.
	ErrUnknownProvider = errors.New("unknown vector index provider")

	// ErrIndexNotFound is returned when an operation targets an index that
	// does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexExists is returned when creating an index whose name is
	// already taken.
	ErrIndexExists = errors.New("index already exists")
)
