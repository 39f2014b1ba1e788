package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/narsim-bridge/internal/narsim"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func quietConfig(t *testing.T, extra string) string {
	return writeFile(t, "config.toml", "[logging]\nlevel = \"error\"\n"+extra)
}

func TestReplay_ReassemblesAcrossChunks(t *testing.T) {
	var capture bytes.Buffer
	for _, callsign := range []string{"SAS940", "PNX652", "SAS940"} {
		record, err := narsim.EncodeTruth(narsim.TruthReport{
			Callsign: callsign, Latitude: 59.65, Longitude: 17.94, Altitude: 3000, GroundSpeed: 250,
		}, narsim.InboundRoot)
		require.NoError(t, err)
		capture.Write(record)
		capture.WriteString("\n")
	}
	path := writeFile(t, "capture.bin", capture.String())
	journal := filepath.Join(t.TempDir(), "journal.db")

	out, err := execute(t, "replay", path, "--chunk-size", "37", "--json",
		"--config", quietConfig(t, "[storage]\nsqlite_path = \""+filepath.ToSlash(journal)+"\"\n"))
	require.NoError(t, err)

	var result ReplayResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, uint64(capture.Len()), result.Stats.BytesRead)
	assert.Equal(t, uint64(3), result.Stats.RecordsFramed)
	assert.Equal(t, uint64(3), result.Stats.TruthReports)
	assert.Equal(t, uint64(2), result.Stats.ProxiesCreated)
	assert.Equal(t, uint64(1), result.Stats.ProxiesUpdated)
	assert.Equal(t, uint64(2), result.Stats.ProxiesRemoved, "replay evicts everything at the end")
	assert.Equal(t, 0, result.Objects)
	assert.FileExists(t, journal)
}

func TestReplay_FramingErrorFails(t *testing.T) {
	path := writeFile(t, "capture.bin", "not a narsim stream")

	_, err := execute(t, "replay", path, "--config", quietConfig(t, ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, narsim.ErrFraming)
}

func TestCheckConfig(t *testing.T) {
	path := quietConfig(t, "[narsim]\nhost = \"10.0.0.5\"\nport = 7001\n")

	out, err := execute(t, "check-config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "10.0.0.5:7001")
	assert.Contains(t, out, "config OK")
}

func TestCheckConfig_Invalid(t *testing.T) {
	path := quietConfig(t, "[bridge]\npending_updates = \"queue\"\n")

	_, err := execute(t, "check-config", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pending_updates")
}

func TestFeed_SendsOwnShip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			received <- nil
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	path := quietConfig(t, fmt.Sprintf(`[narsim]
host = "127.0.0.1"
port = %d

[feeder]
callsign = "OWN001"
update_frequency_hz = 100
start_latitude = 52.3
start_longitude = 4.76
start_altitude_ft = 2000
`, port))

	_, err = execute(t, "feed", "--count", "2", "--config", path)
	require.NoError(t, err)

	data := <-received
	assert.Equal(t, 2, bytes.Count(data, []byte("</NLRIn>")))
	end := bytes.Index(data, []byte("</NLRIn>")) + len("</NLRIn>")
	report, err := narsim.Decode(narsim.RawRecord(data[:end]))
	require.NoError(t, err)
	assert.Equal(t, "OWN001", report.Callsign)
	assert.Equal(t, "877777", report.IdentifierCode)
	assert.InDelta(t, 2000, report.Altitude, 1e-9)
}

func TestFeed_RequiresCallsign(t *testing.T) {
	_, err := execute(t, "feed", "--config", quietConfig(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feeder.callsign")
}
