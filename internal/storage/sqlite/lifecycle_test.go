package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/narsim-bridge/pkg/logger"
)

func newTestStorage(t *testing.T) *LifecycleStorage {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage, err := NewLifecycleStorage(db, logger.NewNop())
	require.NoError(t, err)
	return storage
}

func TestLifecycleStorage_StoreAndQueryByCallsign(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	proxyID := int64(4)

	_, err := s.StoreEvent(&LifecycleRecord{
		SessionID: "s1", Callsign: "SAS940", Intent: "create", ProxyID: &proxyID,
		Outcome: "ok", Latitude: 59.65, Longitude: 17.94, Altitude: 3000, Timestamp: base,
	})
	require.NoError(t, err)
	id, err := s.StoreEvent(&LifecycleRecord{
		SessionID: "s1", Callsign: "SAS940", Intent: "update", ProxyID: &proxyID,
		Outcome: "failed", Error: "proxy update failed", Timestamp: base.Add(time.Second),
	})
	require.NoError(t, err)
	_, err = s.StoreEvent(&LifecycleRecord{
		SessionID: "s1", Callsign: "PNX652", Intent: "evict", Outcome: "skipped", Timestamp: base,
	})
	require.NoError(t, err)

	records, err := s.GetEventsByCallsign("SAS940", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, id, records[0].ID, "newest first")
	assert.Equal(t, "update", records[0].Intent)
	assert.Equal(t, "proxy update failed", records[0].Error)
	require.NotNil(t, records[0].ProxyID)
	assert.Equal(t, int64(4), *records[0].ProxyID)
	assert.True(t, records[0].Timestamp.Equal(base.Add(time.Second)))

	assert.Equal(t, "create", records[1].Intent)
	assert.Equal(t, 59.65, records[1].Latitude)
	assert.Empty(t, records[1].Error)
	assert.False(t, records[1].CreatedAt.IsZero())

	limited, err := s.GetEventsByCallsign("SAS940", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLifecycleStorage_NullProxyID(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.StoreEvent(&LifecycleRecord{
		SessionID: "s1", Callsign: "EWG370", Intent: "evict", Outcome: "skipped", Timestamp: time.Now(),
	})
	require.NoError(t, err)

	records, err := s.GetRecentEvents(5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].ProxyID)
}

func TestLifecycleStorage_TimeRangeAndCounts(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	for i, intent := range []string{"create", "update", "update", "evict"} {
		_, err := s.StoreEvent(&LifecycleRecord{
			SessionID: "s1", Callsign: "SAS940", Intent: intent, Outcome: "ok",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := s.StoreEvent(&LifecycleRecord{
		SessionID: "s2", Callsign: "SAS940", Intent: "create", Outcome: "failed", Timestamp: base,
	})
	require.NoError(t, err)

	inRange, err := s.GetEventsByTimeRange(base.Add(30*time.Second), base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, inRange, 2)
	assert.Equal(t, "update", inRange[0].Intent)

	counts, err := s.CountByOutcome("s1")
	require.NoError(t, err)
	assert.Equal(t, []OutcomeCount{
		{Intent: "create", Outcome: "ok", Count: 1},
		{Intent: "evict", Outcome: "ok", Count: 1},
		{Intent: "update", Outcome: "ok", Count: 2},
	}, counts)
}

func TestLifecycleStorage_SubSecondOrdering(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2026, 10, 16, 12, 0, 5, 0, time.UTC)

	_, err := s.StoreEvent(&LifecycleRecord{
		SessionID: "s1", Callsign: "SAS940", Intent: "update", Outcome: "ok",
		Timestamp: base.Add(500 * time.Millisecond),
	})
	require.NoError(t, err)
	_, err = s.StoreEvent(&LifecycleRecord{
		SessionID: "s1", Callsign: "SAS940", Intent: "create", Outcome: "ok", Timestamp: base,
	})
	require.NoError(t, err)
	_, err = s.StoreEvent(&LifecycleRecord{
		SessionID: "s1", Callsign: "SAS940", Intent: "evict", Outcome: "ok",
		Timestamp: base.Add(1250 * time.Millisecond),
	})
	require.NoError(t, err)

	recent, err := s.GetRecentEvents(10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"evict", "update", "create"},
		[]string{recent[0].Intent, recent[1].Intent, recent[2].Intent})
	assert.True(t, recent[1].Timestamp.Equal(base.Add(500*time.Millisecond)))

	inRange, err := s.GetEventsByTimeRange(base.Add(100*time.Millisecond), base.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, inRange, 1)
	assert.Equal(t, "update", inRange[0].Intent)
}
