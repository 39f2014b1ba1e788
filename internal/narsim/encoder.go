package narsim

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
)

const envelopeAttrs = `source="NARSIM" xmlns:sti="http://www.w3.org/2001/XMLSchema-instance"`

// EncodeTruth renders a report as one complete document under the given root
// (InboundRoot or OutboundRoot). Angles are written in degrees, lengths in
// feet and ground speed in metres per second, each with its unit attribute.
func EncodeTruth(report TruthReport, root string) ([]byte, error) {
	if report.Callsign == "" {
		return nil, fmt.Errorf("%w: callsign is empty", ErrMalformedRecord)
	}
	if root != InboundRoot && root != OutboundRoot {
		return nil, fmt.Errorf("unknown root element %q", root)
	}

	body := truthElement{
		Callsign:       stringPtr(report.Callsign),
		TOA:            stringPtr(formatFloat(report.TimeOfApplicability)),
		SquawkCode:     stringPtr(report.SquawkCode),
		IdentifierCode: stringPtr(report.IdentifierCode),
		Lat:            withUnit(report.Latitude, UnitDegrees),
		Lon:            withUnit(report.Longitude, UnitDegrees),
		Height:         withUnit(report.Height, UnitFeet),
		Alt:            withUnit(report.Altitude, UnitFeet),
		GSpd:           withUnit(KnotsToMetersPerSecond(report.GroundSpeed), UnitMetersPerSecond),
		Crs:            withUnit(report.Course, "degrees"),
		VRate:          withUnit(report.VerticalRate, UnitMetersPerSecond),
		TurnRate:       withUnit(report.TurnRate, ""),
		LongAcc:        withUnit(report.LongitudinalAcceleration, ""),
		VAcc:           withUnit(report.VerticalAcceleration, ""),
		Pitch:          withUnit(report.Pitch, ""),
		Bank:           withUnit(report.Bank, ""),
	}

	inner, err := xml.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal truth: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(xml.Header) + len(inner) + 128)
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, "<%s %s>", root, envelopeAttrs)
	buf.Write(inner)
	fmt.Fprintf(&buf, "</%s>", root)
	return buf.Bytes(), nil
}

func stringPtr(s string) *string {
	return &s
}

func withUnit(value float64, unit Unit) *measurement {
	return &measurement{Unit: string(unit), Value: formatFloat(value)}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
