package narsim

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(t *testing.T, callsign string) []byte {
	t.Helper()
	record, err := EncodeTruth(sampleReport(callsign), InboundRoot)
	require.NoError(t, err)
	return record
}

func sampleStream(t *testing.T, callsigns ...string) ([]byte, [][]byte) {
	t.Helper()
	var stream []byte
	var records [][]byte
	for _, cs := range callsigns {
		record := sampleRecord(t, cs)
		records = append(records, record)
		stream = append(stream, record...)
		stream = append(stream, '\n')
	}
	return stream, records
}

func TestFrame_SplitInsideFirstRecord(t *testing.T) {
	stream, records := sampleStream(t, "SAS940", "PNX652")
	stream = bytes.TrimSuffix(stream, []byte("\n"))
	split := len(records[0]) / 2

	var f Framer
	first, err := f.Frame(nil, stream[:split])
	require.NoError(t, err)
	assert.Empty(t, first.Records)
	assert.NotEmpty(t, first.Partial)

	second, err := f.Frame(first.Partial, stream[split:])
	require.NoError(t, err)
	require.Len(t, second.Records, 2)
	assert.Equal(t, records[0], []byte(second.Records[0]))
	assert.Equal(t, records[1], []byte(second.Records[1]))
	assert.Empty(t, second.Partial)
}

func TestFrame_MultipleRecordsInOneChunk(t *testing.T) {
	stream, records := sampleStream(t, "EWG370", "SAS940", "PNX652")
	tail := sampleRecord(t, "KLM1001")[:40]
	stream = append(stream, tail...)

	res, err := Framer{}.Frame(nil, stream)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	for i := range records {
		assert.Equal(t, records[i], []byte(res.Records[i]))
		assert.Equal(t, 1, bytes.Count(res.Records[i], CloseMarker))
		assert.True(t, bytes.HasSuffix(res.Records[i], CloseMarker))
	}
	assert.Equal(t, tail, res.Partial)
	assert.Equal(t, 3, res.Separators)
}

func TestFrame_NoCloseMarkerKeepsEverything(t *testing.T) {
	chunk := sampleRecord(t, "SAS940")[:100]

	res, err := Framer{}.Frame(nil, chunk)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, chunk, res.Partial)
}

func TestFrame_EmptyInput(t *testing.T) {
	res, err := Framer{}.Frame(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Partial)
}

func TestFrame_WrongPeer(t *testing.T) {
	_, err := Framer{}.Frame(nil, []byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFraming))
}

func TestFrame_PrefixOfOpenMarkerIsTolerated(t *testing.T) {
	res, err := Framer{}.Frame(nil, []byte("<?x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("<?x"), res.Partial)
}

func TestFrame_PartialOverflow(t *testing.T) {
	chunk := sampleRecord(t, "SAS940")
	chunk = chunk[:len(chunk)-len(CloseMarker)]

	_, err := Framer{MaxPartial: 64}.Frame(nil, chunk)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPartialOverflow))
	assert.True(t, errors.Is(err, ErrFraming))
}

func TestFrame_DoesNotAliasChunk(t *testing.T) {
	stream, _ := sampleStream(t, "SAS940")
	chunk := append([]byte(nil), stream...)

	res, err := Framer{}.Frame(nil, chunk)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	for i := range chunk {
		chunk[i] = 'x'
	}
	assert.True(t, bytes.HasPrefix(res.Records[0], OpenMarker))
}

// Feeding the same stream through arbitrary chunk boundaries must yield the
// same records in order with nothing left over, and every byte must be
// accounted for by records, separators or the partial tail.
func TestFrame_ArbitrarySplits(t *testing.T) {
	stream, records := sampleStream(t, "SAS940", "PNX652", "EWG370", "DLH4AB", "BAW12")
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 200; iter++ {
		var (
			got     [][]byte
			partial []byte
			f       Framer
		)
		for pos := 0; pos < len(stream); {
			n := 1 + rng.Intn(300)
			if pos+n > len(stream) {
				n = len(stream) - pos
			}
			chunk := stream[pos : pos+n]
			pos += n

			res, err := f.Frame(partial, chunk)
			require.NoError(t, err)

			size := res.Separators + len(res.Partial)
			for _, r := range res.Records {
				size += len(r)
				got = append(got, []byte(r))
			}
			require.Equal(t, len(partial)+len(chunk), size, "byte accounting")
			partial = res.Partial
		}
		require.Empty(t, partial)
		require.Equal(t, records, got)
	}
}
