package narsim

import (
	"bytes"
	"fmt"
)

var (
	// OpenMarker starts every document sent by the range system
	OpenMarker = []byte("<?xml")
	// CloseMarker ends every document sent by the range system
	CloseMarker = []byte("</NLROut>")
)

// FrameResult is the outcome of one Frame call
type FrameResult struct {
	Records []RawRecord
	// Partial is the unterminated tail to pass into the next call
	Partial []byte
	// Separators counts the insignificant whitespace bytes dropped between records
	Separators int
}

// Framer splits a chunked byte stream into complete records. It holds no
// stream state; the caller owns the partial buffer and passes it back in.
type Framer struct {
	// MaxPartial bounds the unterminated tail. Zero means unbounded.
	MaxPartial int
}

// Frame appends chunk to the previous partial tail and extracts every complete
// record from the result. Records are returned in stream order and never alias
// the caller's chunk.
func (f Framer) Frame(partial, chunk []byte) (FrameResult, error) {
	input := make([]byte, 0, len(partial)+len(chunk))
	input = append(input, partial...)
	input = append(input, chunk...)

	var result FrameResult
	rest := input

	skip := leadingWhitespace(rest)
	result.Separators += skip
	rest = rest[skip:]

	if len(rest) == 0 {
		return result, nil
	}
	if !bytes.Contains(rest, OpenMarker) && !bytes.HasPrefix(OpenMarker, rest) {
		return result, fmt.Errorf("%w: no %q in %d bytes, is the range system connected?", ErrFraming, OpenMarker, len(rest))
	}

	count := bytes.Count(rest, CloseMarker)
	if count > 0 {
		result.Records = make([]RawRecord, 0, count)
	}
	for i := 0; i < count; i++ {
		end := bytes.Index(rest, CloseMarker) + len(CloseMarker)
		result.Records = append(result.Records, RawRecord(rest[:end:end]))
		rest = rest[end:]

		skip = leadingWhitespace(rest)
		result.Separators += skip
		rest = rest[skip:]
	}

	if len(rest) > 0 {
		result.Partial = rest
	}
	if f.MaxPartial > 0 && len(rest) > f.MaxPartial {
		return result, fmt.Errorf("%w: %d bytes without %q (limit %d)", ErrPartialOverflow, len(rest), CloseMarker, f.MaxPartial)
	}
	return result, nil
}

func leadingWhitespace(b []byte) int {
	n := 0
	for n < len(b) {
		switch b[n] {
		case '\n', '\r', ' ', '\t':
			n++
		default:
			return n
		}
	}
	return n
}
