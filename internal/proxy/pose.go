package proxy

import "github.com/yegors/narsim-bridge/internal/narsim"

// PoseFromTruth places a proxy at the reported position. The aircraft is
// considered on the ground while it is both slow and low.
func PoseFromTruth(report narsim.TruthReport, config Config) Pose {
	return Pose{
		Latitude:    report.Latitude,
		Longitude:   report.Longitude,
		AltitudeFt:  report.Altitude,
		Pitch:       report.Pitch,
		Bank:        report.Bank,
		Heading:     report.Course,
		AirspeedKts: report.GroundSpeed,
		OnGround: report.GroundSpeed <= config.OnGroundMaxSpeedKts &&
			report.Height <= config.OnGroundMaxHeightFt,
	}
}
