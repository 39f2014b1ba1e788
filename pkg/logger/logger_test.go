package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_RejectsUnknownLevelAndFormat(t *testing.T) {
	_, err := New(Config{Level: "verbose", Format: "json"})
	assert.Error(t, err)

	_, err = New(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestNew_WritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.log")

	log, err := New(Config{Level: "info", Format: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Named("bridge").WithCallsign("SAS940").Info("flight created")
	_ = log.Sync() // stdout may refuse fsync; the rotated file is written synchronously

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"callsign":"SAS940"`)
	assert.Contains(t, string(data), `"logger":"bridge"`)
}

func TestConsoleEncoders(t *testing.T) {
	enc := &arrayEncoder{}
	componentNameEncoder("bridge.proxy-sequencer-long", enc)
	componentNameEncoder("api", enc)
	coloredLevelEncoder(zapcore.WarnLevel, enc)
	coloredLevelEncoder(zapcore.FatalLevel, enc)

	assert.Equal(t, []string{
		"proxy-sequencer",
		"api            ",
		"\033[1;33mwarn\033[0m",
		"fatal",
	}, enc.values)
}

// arrayEncoder collects appended strings
type arrayEncoder struct {
	zapcore.PrimitiveArrayEncoder
	values []string
}

func (a *arrayEncoder) AppendString(v string) {
	a.values = append(a.values, v)
}
