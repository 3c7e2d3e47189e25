package core

import "errors"

var (
	// ErrSourceUnreadable is returned when a source file cannot be opened,
	// decompressed or parsed as delimited text.
	ErrSourceUnreadable = errors.New("source unreadable")

	// ErrMissingColumn is returned when a source header lacks a column its
	// layout requires.
	ErrMissingColumn = errors.New("missing required column")

	// ErrInvalidDecimal is returned for a decimal separator other than '.' or ','.
	ErrInvalidDecimal = errors.New("invalid decimal separator")

	// ErrInvalidCode is returned when a code column of a kept row holds a
	// token that is not an integer.
	ErrInvalidCode = errors.New("invalid code")

	// ErrUnknownFormat is returned for an output format nobody registered.
	ErrUnknownFormat = errors.New("unknown output format")

	// ErrDimensionUnreadable is returned when a dimension file cannot be read.
	ErrDimensionUnreadable = errors.New("dimension unreadable")

	// ErrNoSourceFiles is returned when a run has no source file to process.
	ErrNoSourceFiles = errors.New("no source files")

	// ErrAllFilesFailed is returned when every source file of a run that
	// skips failing files has failed, so there is nothing to load.
	ErrAllFilesFailed = errors.New("every source file failed")

	// ErrUnknownEncoding is returned for a text encoding name that cannot be resolved.
	ErrUnknownEncoding = errors.New("unknown encoding")
)
