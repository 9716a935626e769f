package document

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when a path needs $HOME and it is not set.
	ErrConfiguration = errors.New("configuration error")
	// ErrExtraction covers missing, unreadable, non-PDF and corrupt files.
	ErrExtraction = errors.New("extraction failed")
	// ErrNotFound is the ErrExtraction case of a file that does not exist.
	ErrNotFound = fmt.Errorf("%w: file not found", ErrExtraction)
)
