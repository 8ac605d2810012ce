package extract

import "errors"

var (
	// ErrUnsupportedFormat is returned when a file's type is not one of the
	// supported extraction formats.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileTooLarge is returned when a download exceeds the configured
	// size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyContent is returned when extraction succeeds but yields no
	// usable text.
	ErrEmptyContent = errors.New("extracted content is empty")
)
