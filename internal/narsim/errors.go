package narsim

import (
	"errors"
	"fmt"
)

var (
	// ErrFraming means the byte stream does not look like the range system
	// protocol. It is fatal for the connection.
	ErrFraming = errors.New("narsim: framing error")
	// ErrPartialOverflow is returned when the unterminated tail of the stream
	// grows past the configured bound.
	ErrPartialOverflow = fmt.Errorf("%w: partial buffer overflow", ErrFraming)

	// ErrMalformedRecord is returned for a record missing a required field or
	// carrying a value that cannot be converted.
	ErrMalformedRecord = errors.New("narsim: malformed record")
	// ErrUnsupportedRecordKind is returned for flight plan records.
	ErrUnsupportedRecordKind = errors.New("narsim: unsupported record kind")
	// ErrUnrecognizedRecordKind is returned for records that are neither truth
	// nor flight plan.
	ErrUnrecognizedRecordKind = errors.New("narsim: unrecognized record kind")
)
