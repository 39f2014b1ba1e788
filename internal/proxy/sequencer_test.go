package proxy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/narsim-bridge/internal/flights"
	"github.com/yegors/narsim-bridge/internal/narsim"
	"github.com/yegors/narsim-bridge/pkg/logger"
)

var t0 = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

var testConfig = Config{
	DefaultModel:        "Airbus A320 Neo Asobo",
	CallTimeout:         time.Second,
	OnGroundMaxSpeedKts: 120,
	OnGroundMaxHeightFt: 50,
}

// flakyClient wraps Memory and fails the calls it is told to fail
type flakyClient struct {
	*Memory
	failCreate bool
	failUpdate bool
	failRemove bool
	calls      []string
}

var errBoom = errors.New("simulator unavailable")

func (f *flakyClient) Create(ctx context.Context, pose Pose, model string) (flights.ProxyID, error) {
	f.calls = append(f.calls, "create")
	if f.failCreate {
		return 0, errBoom
	}
	return f.Memory.Create(ctx, pose, model)
}

func (f *flakyClient) SetPose(ctx context.Context, id flights.ProxyID, pose Pose) error {
	f.calls = append(f.calls, "update")
	if f.failUpdate {
		return errBoom
	}
	return f.Memory.SetPose(ctx, id, pose)
}

func (f *flakyClient) Remove(ctx context.Context, id flights.ProxyID) error {
	f.calls = append(f.calls, "remove")
	if f.failRemove {
		return errBoom
	}
	return f.Memory.Remove(ctx, id)
}

type memJournal struct {
	records []Event
}

func (j *memJournal) RecordEvent(event Event) error {
	j.records = append(j.records, event)
	return nil
}

func truth(callsign string, alt float64) narsim.TruthReport {
	return narsim.TruthReport{
		Callsign: callsign, Latitude: 59.65, Longitude: 17.94,
		Altitude: alt, Height: alt, GroundSpeed: 250, Course: 10, Pitch: 2, Bank: -5,
	}
}

type fixture struct {
	engine  *flights.Engine
	client  *flakyClient
	journal *memJournal
	seq     *Sequencer
}

func newFixture() *fixture {
	engine := flights.NewEngine(flights.Config{StaleTimeout: 30 * time.Second}, logger.NewNop())
	client := &flakyClient{Memory: NewMemory()}
	journal := &memJournal{}
	seq := NewSequencer(client, engine, journal, testConfig, logger.NewNop())
	seq.SetSession("session-1")
	return &fixture{engine: engine, client: client, journal: journal, seq: seq}
}

func TestSequencer_CreateConfirmsProxyID(t *testing.T) {
	f := newFixture()

	intents := f.engine.Reconcile([]narsim.TruthReport{truth("EWG370", 3000)}, t0)
	result := f.seq.Apply(context.Background(), intents)

	assert.Equal(t, 1, result.Created)
	assert.Empty(t, result.Errors)

	entity, ok := f.engine.Get("EWG370")
	require.True(t, ok)
	assert.True(t, entity.HasProxy)
	assert.Equal(t, flights.ProxyID(1), entity.ProxyID)

	obj, ok := f.client.Get(1)
	require.True(t, ok)
	assert.Equal(t, testConfig.DefaultModel, obj.Model)
	assert.Equal(t, 3000.0, obj.Pose.AltitudeFt)
	assert.Equal(t, 10.0, obj.Pose.Heading)
	assert.False(t, obj.Pose.OnGround)

	require.Len(t, f.journal.records, 1)
	rec := f.journal.records[0]
	assert.Equal(t, "session-1", rec.SessionID)
	assert.Equal(t, "create", rec.Intent)
	assert.Equal(t, OutcomeOK, rec.Outcome)
	require.NotNil(t, rec.ProxyID)
	assert.Equal(t, flights.ProxyID(1), *rec.ProxyID)
}

func TestSequencer_BufferedUpdateRunsAfterCreate(t *testing.T) {
	f := newFixture()

	intents := f.engine.Reconcile([]narsim.TruthReport{truth("PNX652", 1000), truth("PNX652", 1200)}, t0)
	require.Len(t, intents, 1)

	result := f.seq.Apply(context.Background(), intents)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, []string{"create", "update"}, f.client.calls)

	obj, ok := f.client.Get(1)
	require.True(t, ok)
	assert.Equal(t, 1200.0, obj.Pose.AltitudeFt)
}

func TestSequencer_CreateFailureLeavesFlightWithoutProxy(t *testing.T) {
	f := newFixture()
	f.client.failCreate = true

	result := f.seq.Apply(context.Background(), f.engine.Reconcile([]narsim.TruthReport{truth("SAS940", 1)}, t0))

	require.Len(t, result.Errors, 1)
	assert.True(t, errors.Is(result.Errors[0], ErrProxyCreateFailed))
	assert.True(t, errors.Is(result.Errors[0], errBoom))

	entity, ok := f.engine.Get("SAS940")
	require.True(t, ok)
	assert.False(t, entity.HasProxy)

	require.Len(t, f.journal.records, 1)
	assert.Equal(t, OutcomeFailed, f.journal.records[0].Outcome)
	assert.Nil(t, f.journal.records[0].ProxyID)
}

func TestSequencer_UpdateFailureDoesNotStopBatch(t *testing.T) {
	f := newFixture()
	f.seq.Apply(context.Background(), f.engine.Reconcile([]narsim.TruthReport{truth("A", 1), truth("B", 1)}, t0))

	f.client.failUpdate = true
	result := f.seq.Apply(context.Background(),
		f.engine.Reconcile([]narsim.TruthReport{truth("A", 2), truth("B", 2)}, t0.Add(time.Second)))

	require.Len(t, result.Errors, 2)
	for _, err := range result.Errors {
		assert.True(t, errors.Is(err, ErrProxyUpdateFailed))
	}
	assert.Equal(t, 0, result.Updated)
}

func TestSequencer_EvictWithoutProxyMakesNoCall(t *testing.T) {
	f := newFixture()
	f.client.failCreate = true
	f.seq.Apply(context.Background(), f.engine.Reconcile([]narsim.TruthReport{truth("SAS940", 1)}, t0))
	f.client.calls = nil

	result := f.seq.Apply(context.Background(), f.engine.EvictAll())

	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, f.client.calls)
	last := f.journal.records[len(f.journal.records)-1]
	assert.Equal(t, "evict", last.Intent)
	assert.Equal(t, OutcomeSkipped, last.Outcome)
}

func TestSequencer_EvictRemovesProxy(t *testing.T) {
	f := newFixture()
	f.seq.Apply(context.Background(), f.engine.Reconcile([]narsim.TruthReport{truth("SAS940", 1)}, t0))

	result := f.seq.Apply(context.Background(), f.engine.Reconcile(nil, t0.Add(time.Minute)))

	assert.Equal(t, 1, result.Evicted)
	assert.Empty(t, f.client.Objects())
}

func TestSequencer_RemoveFailureIsReported(t *testing.T) {
	f := newFixture()
	f.seq.Apply(context.Background(), f.engine.Reconcile([]narsim.TruthReport{truth("SAS940", 1)}, t0))
	f.client.failRemove = true

	result := f.seq.Apply(context.Background(), f.engine.EvictAll())

	require.Len(t, result.Errors, 1)
	assert.True(t, errors.Is(result.Errors[0], ErrProxyRemoveFailed))
	assert.Equal(t, 0, f.engine.Len(), "the flight is gone from the table regardless")
}

func TestSequencer_OrphanRemovedWhenFlightVanished(t *testing.T) {
	f := newFixture()
	intents := f.engine.Reconcile([]narsim.TruthReport{truth("SAS940", 1)}, t0)
	f.engine.EvictAll()

	result := f.seq.Apply(context.Background(), intents)

	require.Len(t, result.Errors, 1)
	assert.True(t, errors.Is(result.Errors[0], flights.ErrUnknownFlight))
	assert.Equal(t, []string{"create", "remove"}, f.client.calls)
	assert.Empty(t, f.client.Objects())
}

func TestSequencer_CanceledContext(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.seq.Apply(ctx, f.engine.Reconcile([]narsim.TruthReport{truth("SAS940", 1)}, t0))

	require.Len(t, result.Errors, 1)
	assert.True(t, errors.Is(result.Errors[0], context.Canceled))
}

func TestPoseFromTruth_OnGround(t *testing.T) {
	tests := []struct {
		name   string
		speed  float64
		height float64
		want   bool
	}{
		{"taxiing", 15, 0, true},
		{"at threshold", 120, 50, true},
		{"fast on runway", 140, 0, false},
		{"slow but airborne", 100, 400, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pose := PoseFromTruth(narsim.TruthReport{GroundSpeed: tt.speed, Height: tt.height}, testConfig)
			assert.Equal(t, tt.want, pose.OnGround)
			assert.Equal(t, tt.speed, pose.AirspeedKts)
		})
	}
}

func TestMemory_UnknownObject(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	assert.True(t, errors.Is(m.SetPose(ctx, 9, Pose{}), ErrObjectNotFound))
	assert.True(t, errors.Is(m.Remove(ctx, 9), ErrObjectNotFound))

	id, err := m.Create(ctx, Pose{}, "model")
	require.NoError(t, err)
	require.NoError(t, m.Remove(ctx, id))

	next, err := m.Create(ctx, Pose{}, "model")
	require.NoError(t, err)
	assert.Equal(t, id+1, next, "ids are not reused")
}
