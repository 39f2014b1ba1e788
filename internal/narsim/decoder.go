package narsim

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// Root element names used by the range system
const (
	InboundRoot  = "NLROut" // documents sent by the range system
	OutboundRoot = "NLRIn"  // documents sent to the range system
)

// measurement is a leaf element with an optional unit attribute
type measurement struct {
	Unit  string `xml:"unit,attr,omitempty"`
	Value string `xml:",chardata"`
}

// truthElement is the <truth> body. Pointer fields let the decoder tell a
// missing element apart from an empty one.
type truthElement struct {
	XMLName        xml.Name     `xml:"truth"`
	Callsign       *string      `xml:"callsign"`
	TOA            *string      `xml:"toa"`
	SquawkCode     *string      `xml:"ssr_a"`
	IdentifierCode *string      `xml:"ssr_s"`
	Lat            *measurement `xml:"lat"`
	Lon            *measurement `xml:"lon"`
	Height         *measurement `xml:"height"`
	Alt            *measurement `xml:"alt"`
	GSpd           *measurement `xml:"gspd"`
	Crs            *measurement `xml:"crs"`
	VRate          *measurement `xml:"v_rate"`
	TurnRate       *measurement `xml:"turn_rate"`
	LongAcc        *measurement `xml:"long_acc"`
	VAcc           *measurement `xml:"v_acc"`
	Pitch          *measurement `xml:"pitch"`
	Bank           *measurement `xml:"bank"`
}

type document struct {
	XMLName xml.Name
	Source  string        `xml:"source,attr"`
	Truth   *truthElement `xml:"truth"`
}

// KindOf classifies a record by its inner element marker
func KindOf(record RawRecord) Kind {
	switch {
	case hasElement(record, "truth"):
		return KindTruth
	case hasElement(record, "flightplan"):
		return KindFlightPlan
	default:
		return KindUnrecognized
	}
}

func hasElement(record []byte, name string) bool {
	open := []byte("<" + name)
	for i := 0; ; {
		idx := bytes.Index(record[i:], open)
		if idx < 0 {
			return false
		}
		next := i + idx + len(open)
		if next < len(record) {
			switch record[next] {
			case '>', ' ', '\t', '\n', '\r', '/':
				return true
			}
		}
		i = next
	}
}

// Decode parses one complete record into a canonical TruthReport
func Decode(record RawRecord) (TruthReport, error) {
	switch kind := KindOf(record); kind {
	case KindTruth:
	case KindFlightPlan:
		return TruthReport{}, fmt.Errorf("%w: %s", ErrUnsupportedRecordKind, kind)
	default:
		return TruthReport{}, ErrUnrecognizedRecordKind
	}

	var doc document
	decoder := xml.NewDecoder(bytes.NewReader(record))
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&doc); err != nil {
		return TruthReport{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	switch doc.XMLName.Local {
	case InboundRoot, OutboundRoot:
	default:
		return TruthReport{}, fmt.Errorf("%w: root element <%s>", ErrUnrecognizedRecordKind, doc.XMLName.Local)
	}
	if doc.Truth == nil {
		return TruthReport{}, fmt.Errorf("%w: truth is not a child of <%s>", ErrMalformedRecord, doc.XMLName.Local)
	}

	return doc.Truth.report()
}

func (t *truthElement) report() (TruthReport, error) {
	var r TruthReport
	p := fieldParser{}

	r.Callsign = strings.TrimSpace(p.text("callsign", t.Callsign))
	r.TimeOfApplicability = p.number("toa", t.TOA)
	r.SquawkCode = strings.TrimSpace(p.text("ssr_a", t.SquawkCode))
	r.IdentifierCode = strings.TrimSpace(p.text("ssr_s", t.IdentifierCode))

	r.Latitude = p.converted("lat", t.Lat, AngleToDegrees)
	r.Longitude = p.converted("lon", t.Lon, AngleToDegrees)
	r.Height = p.converted("height", t.Height, LengthToFeet)
	r.Altitude = p.converted("alt", t.Alt, LengthToFeet)
	r.GroundSpeed = p.converted("gspd", t.GSpd, SpeedToKnots)
	r.Course = p.converted("crs", t.Crs, CourseToDegrees)

	r.VerticalRate = p.raw("v_rate", t.VRate)
	r.TurnRate = p.raw("turn_rate", t.TurnRate)
	r.LongitudinalAcceleration = p.raw("long_acc", t.LongAcc)
	r.VerticalAcceleration = p.raw("v_acc", t.VAcc)
	r.Pitch = p.raw("pitch", t.Pitch)
	r.Bank = p.raw("bank", t.Bank)

	if p.err != nil {
		return TruthReport{}, p.err
	}
	if r.Callsign == "" {
		return TruthReport{}, fmt.Errorf("%w: callsign is empty", ErrMalformedRecord)
	}
	return r, nil
}

// fieldParser keeps the first error so field extraction reads top to bottom
type fieldParser struct {
	err error
}

func (p *fieldParser) fail(field, format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s: %s", ErrMalformedRecord, field, fmt.Sprintf(format, args...))
	}
}

func (p *fieldParser) text(field string, value *string) string {
	if value == nil {
		p.fail(field, "missing")
		return ""
	}
	return *value
}

func (p *fieldParser) number(field string, value *string) float64 {
	if value == nil {
		p.fail(field, "missing")
		return 0
	}
	return p.parse(field, *value)
}

func (p *fieldParser) raw(field string, m *measurement) float64 {
	if m == nil {
		p.fail(field, "missing")
		return 0
	}
	return p.parse(field, m.Value)
}

func (p *fieldParser) converted(field string, m *measurement, convert func(float64, Unit) (float64, error)) float64 {
	if m == nil {
		p.fail(field, "missing")
		return 0
	}
	value := p.parse(field, m.Value)
	if m.Unit == "" {
		p.fail(field, "no unit attribute")
		return 0
	}
	unit, err := ParseUnit(m.Unit)
	if err != nil {
		p.fail(field, "%v", err)
		return 0
	}
	out, err := convert(value, unit)
	if err != nil {
		p.fail(field, "%v", err)
		return 0
	}
	return out
}

func (p *fieldParser) parse(field, text string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		p.fail(field, "not a number: %q", text)
		return 0
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		p.fail(field, "not finite: %q", text)
		return 0
	}
	return value
}
