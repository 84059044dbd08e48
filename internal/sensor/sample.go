package sensor

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedLine is wrapped by every parse failure.
var ErrMalformedLine = errors.New("malformed sensor line")

// HandshakePrefix starts the line a sensor sends to announce its sweep period.
const HandshakePrefix = "SWEEP"

// HandshakeQuery asks the sensor to repeat its handshake line.
const HandshakeQuery = "SWEEP?"

// Sample is one range reading at a servo bearing.
type Sample struct {
	Angle    float64 `json:"angle"`    // Degrees, 0..180, 90 = straight ahead
	Distance float64 `json:"distance"` // Centimeters
}

// Clamp returns the sample with angle limited to [0, 180] and distance to
// [0, maxRange].
func (s Sample) Clamp(maxRange float64) Sample {
	return Sample{
		Angle:    clamp(s.Angle, 0, 180),
		Distance: clamp(s.Distance, 0, maxRange),
	}
}

func (s Sample) String() string {
	return fmt.Sprintf("angle=%g distance=%g", s.Angle, s.Distance)
}

// ParseLine parses an "<angle>,<distance>" line. Surrounding whitespace and a
// trailing CR are ignored.
func ParseLine(line string) (Sample, error) {
	line = strings.TrimSpace(line)
	fields := strings.Split(line, ",")
	if len(fields) != 2 {
		return Sample{}, fmt.Errorf("%w: expected 2 fields, got %d in %q", ErrMalformedLine, len(fields), line)
	}

	angle, err := parseField(fields[0])
	if err != nil {
		return Sample{}, fmt.Errorf("%w: angle %q: %v", ErrMalformedLine, fields[0], err)
	}
	distance, err := parseField(fields[1])
	if err != nil {
		return Sample{}, fmt.Errorf("%w: distance %q: %v", ErrMalformedLine, fields[1], err)
	}

	return Sample{Angle: angle, Distance: distance}, nil
}

// ParseHandshake recognises a "SWEEP,<ms>" line. ok is false for any other
// line; err is set when the prefix matches but the period is unusable.
func ParseHandshake(line string) (period time.Duration, ok bool, err error) {
	line = strings.TrimSpace(line)
	rest, found := strings.CutPrefix(line, HandshakePrefix+",")
	if !found {
		return 0, false, nil
	}
	ms, err := parseField(rest)
	if err != nil || ms <= 0 {
		return 0, true, fmt.Errorf("%w: sweep period %q", ErrMalformedLine, rest)
	}
	return time.Duration(ms * float64(time.Millisecond)), true, nil
}

// FormatLine renders a sample in the sensor wire format.
func FormatLine(s Sample) string {
	return strconv.FormatFloat(s.Angle, 'f', -1, 64) + "," +
		strconv.FormatFloat(s.Distance, 'f', -1, 64) + "\n"
}

// FormatHandshake renders the handshake line for a sweep period.
func FormatHandshake(period time.Duration) string {
	return fmt.Sprintf("%s,%d\n", HandshakePrefix, period.Milliseconds())
}

// decimalField is the only number syntax the sensor emits: optional sign,
// digits with an optional fraction, optional exponent. strconv alone would
// also take inf, hex floats and underscores.
var decimalField = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

func parseField(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !decimalField.MatchString(s) {
		return 0, errors.New("not a decimal number")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
