package transport

import (
	"io"
	"time"
)

// ReaderSource replays a captured byte stream in fixed-size chunks. It
// returns io.EOF once the reader is exhausted.
type ReaderSource struct {
	r         io.Reader
	chunkSize int
}

// NewReaderSource creates a chunked source over r
func NewReaderSource(r io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = DefaultReadBufferBytes
	}
	return &ReaderSource{r: r, chunkSize: chunkSize}
}

// ReadChunk returns the next chunk. The timeout is ignored.
func (s *ReaderSource) ReadChunk(_ time.Duration) ([]byte, error) {
	buf := make([]byte, s.chunkSize)
	n, err := io.ReadFull(s.r, buf)
	if n > 0 {
		return buf[:n], nil
	}
	return nil, err
}
