package narsim

import (
	"math"
	"time"
)

// RawRecord is exactly one complete protocol document, ending with CloseMarker
type RawRecord []byte

// Kind classifies a raw record
type Kind int

const (
	KindUnrecognized Kind = iota
	KindTruth
	KindFlightPlan
)

func (k Kind) String() string {
	switch k {
	case KindTruth:
		return "truth"
	case KindFlightPlan:
		return "flightplan"
	default:
		return "unrecognized"
	}
}

// TruthReport is the canonical snapshot of one aircraft at one instant.
// Latitude, Longitude and Course are degrees, Altitude and Height feet,
// GroundSpeed knots. The remaining kinematic fields are passed through as
// received.
type TruthReport struct {
	Callsign            string  `json:"callsign"`
	TimeOfApplicability float64 `json:"toa"`
	SquawkCode          string  `json:"squawk_code"`
	IdentifierCode      string  `json:"identifier_code"`

	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Altitude    float64 `json:"altitude"`
	Height      float64 `json:"height"`
	GroundSpeed float64 `json:"ground_speed"`
	Course      float64 `json:"course"`

	VerticalRate             float64 `json:"vertical_rate"`
	TurnRate                 float64 `json:"turn_rate"`
	LongitudinalAcceleration float64 `json:"longitudinal_acceleration"`
	VerticalAcceleration     float64 `json:"vertical_acceleration"`
	Pitch                    float64 `json:"pitch"`
	Bank                     float64 `json:"bank"`
}

// ApplicableAt interprets the time of applicability as Unix seconds
func (r TruthReport) ApplicableAt() time.Time {
	sec, frac := math.Modf(r.TimeOfApplicability)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
