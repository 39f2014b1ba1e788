package feeder

import (
	"math"
	"sync"
	"time"

	"github.com/yegors/narsim-bridge/internal/narsim"
)

// Telemetry supplies the own-ship state to publish at a given instant
type Telemetry interface {
	Sample(now time.Time) (narsim.TruthReport, error)
}

// DeadReckoning advances a fixed starting state along its course at its
// ground speed and vertical rate. It stands in for a live simulator feed.
type DeadReckoning struct {
	mu    sync.Mutex
	state narsim.TruthReport
}

// NewDeadReckoning starts from start as of startAt
func NewDeadReckoning(start narsim.TruthReport, startAt time.Time) *DeadReckoning {
	start.TimeOfApplicability = unixSeconds(startAt)
	return &DeadReckoning{state: start}
}

// Sample implements Telemetry. Instants before the previous sample return
// the previous state unchanged.
func (d *DeadReckoning) Sample(now time.Time) (narsim.TruthReport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := now.Sub(d.state.ApplicableAt()).Seconds()
	if elapsed <= 0 {
		return d.state, nil
	}

	distanceNM := d.state.GroundSpeed * elapsed / 3600
	course := d.state.Course / narsim.DEGREES_PER_RADIAN
	d.state.Latitude += distanceNM * math.Cos(course) / 60
	if cosLat := math.Cos(d.state.Latitude / narsim.DEGREES_PER_RADIAN); math.Abs(cosLat) > 1e-9 {
		d.state.Longitude += distanceNM * math.Sin(course) / (60 * cosLat)
	}

	climbFt := narsim.MetersToFeet(d.state.VerticalRate * elapsed)
	d.state.Altitude = math.Max(0, d.state.Altitude+climbFt)
	d.state.Height = math.Max(0, d.state.Height+climbFt)
	d.state.TimeOfApplicability = unixSeconds(now)

	return d.state, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
