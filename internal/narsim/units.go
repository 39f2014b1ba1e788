package narsim

import (
	"fmt"
	"math"
	"strings"
)

// Conversion factors used by the range system protocol
const (
	FEET_PER_METER             = 3.2808399
	KNOTS_PER_METER_PER_SECOND = 1.94384449
	DEGREES_PER_RADIAN         = 180.0 / math.Pi
	// Course uses the truncated factor the range system tooling has always used.
	COURSE_DEGREES_PER_RADIAN = 57.2957795
)

// Unit is a normalized unit attribute value
type Unit string

const (
	UnitDegrees         Unit = "deg"
	UnitRadians         Unit = "rad"
	UnitMeters          Unit = "m"
	UnitFeet            Unit = "ft"
	UnitMetersPerSecond Unit = "ms"
	UnitKnots           Unit = "kts"
)

var unitAliases = map[string]Unit{
	"deg":     UnitDegrees,
	"degree":  UnitDegrees,
	"degrees": UnitDegrees,
	"rad":     UnitRadians,
	"radian":  UnitRadians,
	"radians": UnitRadians,
	"m":       UnitMeters,
	"meter":   UnitMeters,
	"meters":  UnitMeters,
	"ft":      UnitFeet,
	"feet":    UnitFeet,
	"ms":      UnitMetersPerSecond,
	"m/s":     UnitMetersPerSecond,
	"mps":     UnitMetersPerSecond,
	"kt":      UnitKnots,
	"kts":     UnitKnots,
	"knots":   UnitKnots,
}

// ParseUnit normalizes a declared unit attribute
func ParseUnit(declared string) (Unit, error) {
	unit, ok := unitAliases[strings.ToLower(strings.TrimSpace(declared))]
	if !ok {
		return "", fmt.Errorf("unknown unit %q", declared)
	}
	return unit, nil
}

// AngleToDegrees converts a latitude or longitude in the declared unit to degrees
func AngleToDegrees(value float64, unit Unit) (float64, error) {
	switch unit {
	case UnitDegrees:
		return value, nil
	case UnitRadians:
		return value * DEGREES_PER_RADIAN, nil
	}
	return 0, fmt.Errorf("unit %q is not an angle", unit)
}

// CourseToDegrees converts a course in the declared unit to degrees
func CourseToDegrees(value float64, unit Unit) (float64, error) {
	switch unit {
	case UnitDegrees:
		return value, nil
	case UnitRadians:
		return value * COURSE_DEGREES_PER_RADIAN, nil
	}
	return 0, fmt.Errorf("unit %q is not an angle", unit)
}

// LengthToFeet converts an altitude or height in the declared unit to feet
func LengthToFeet(value float64, unit Unit) (float64, error) {
	switch unit {
	case UnitFeet:
		return value, nil
	case UnitMeters:
		return MetersToFeet(value), nil
	}
	return 0, fmt.Errorf("unit %q is not a length", unit)
}

// SpeedToKnots converts a ground speed in the declared unit to knots
func SpeedToKnots(value float64, unit Unit) (float64, error) {
	switch unit {
	case UnitKnots:
		return value, nil
	case UnitMetersPerSecond:
		return MetersPerSecondToKnots(value), nil
	}
	return 0, fmt.Errorf("unit %q is not a speed", unit)
}

// MetersToFeet converts meters to feet
func MetersToFeet(meters float64) float64 {
	return meters * FEET_PER_METER
}

// MetersPerSecondToKnots converts m/s to knots
func MetersPerSecondToKnots(ms float64) float64 {
	return ms * KNOTS_PER_METER_PER_SECOND
}

// KnotsToMetersPerSecond converts knots to m/s
func KnotsToMetersPerSecond(knots float64) float64 {
	return knots / KNOTS_PER_METER_PER_SECOND
}
