package evaluation

import "errors"

var (
	// ErrSourceUnreadable indicates an input source could not be opened or read.
	ErrSourceUnreadable = errors.New("source unreadable")
	// ErrEmptyInput indicates the identifier source held no usable lines.
	ErrEmptyInput = errors.New("empty input")
	// ErrLogUnreadable indicates the response log could not be read.
	ErrLogUnreadable = errors.New("log unreadable")
	// ErrMissingRequiredColumn indicates the ground truth lacks a required column.
	ErrMissingRequiredColumn = errors.New("missing required column")
)
