package radar

import (
	"math"
	"strings"
	"time"

	"servo-radar.klederson.com/internal/config"
)

// Sweep manages the sweep indicator. Its angle is derived from elapsed time
// only, so it keeps moving whether or not samples arrive.
type Sweep struct {
	Angle     float64 // Current bearing in degrees [0, 180]
	StartTime time.Time
	Period    time.Duration
	Mode      string
	TrailDeg  float64

	direction float64 // +1 while the bearing grows, -1 on a bounce return
}

// NewSweep creates a sweep starting at bearing 0.
func NewSweep(d config.Display, start time.Time) *Sweep {
	return &Sweep{
		StartTime: start,
		Period:    d.SweepPeriod,
		Mode:      strings.ToLower(d.SweepMode),
		TrailDeg:  d.SweepTrailDeg,
		direction: 1,
	}
}

// SawtoothAngle maps elapsed time to a bearing that runs 0 -> 180 once per
// period and then wraps.
func SawtoothAngle(elapsed, period time.Duration) float64 {
	if period <= 0 {
		return 0
	}
	phase := math.Mod(float64(elapsed), float64(period))
	if phase < 0 {
		phase += float64(period)
	}
	return phase / float64(period) * 180
}

// BounceAngle maps elapsed time to a bearing that runs 0 -> 180 -> 0 over
// two periods, like a servo that reverses at its end stops.
func BounceAngle(elapsed, period time.Duration) float64 {
	if period <= 0 {
		return 0
	}
	cycle := 2 * float64(period)
	phase := math.Mod(float64(elapsed), cycle)
	if phase < 0 {
		phase += cycle
	}
	p := phase / float64(period)
	if p <= 1 {
		return p * 180
	}
	return (2 - p) * 180
}

// Update advances the sweep angle based on the time now.
func (s *Sweep) Update(now time.Time) {
	elapsed := now.Sub(s.StartTime)
	if s.Mode == config.SweepBounce {
		s.Angle = BounceAngle(elapsed, s.Period)
		phase := math.Mod(float64(elapsed), 2*float64(s.Period))
		if phase < 0 {
			phase += 2 * float64(s.Period)
		}
		if phase <= float64(s.Period) {
			s.direction = 1
		} else {
			s.direction = -1
		}
		return
	}
	s.Angle = SawtoothAngle(elapsed, s.Period)
	s.direction = 1
}

// SetPeriod changes the period while keeping the time origin.
func (s *Sweep) SetPeriod(p time.Duration) {
	if p > 0 {
		s.Period = p
	}
}

// ToggleMode switches between sawtooth and bounce.
func (s *Sweep) ToggleMode() {
	if s.Mode == config.SweepBounce {
		s.Mode = config.SweepSawtooth
	} else {
		s.Mode = config.SweepBounce
	}
}

// Degrees returns the current sweep bearing in degrees.
func (s *Sweep) Degrees() float64 {
	return s.Angle
}

// Radians returns the current sweep as a display angle.
func (s *Sweep) Radians() float64 {
	return AngleToRadians(s.Angle)
}

// Direction is +1 while the sweep bearing grows and -1 while it shrinks.
func (s *Sweep) Direction() float64 {
	return s.direction
}

// Intensity returns the glow intensity [0, 1] for a bearing.
// The sweep has a trailing glow of TrailDeg degrees behind its direction of
// travel. Returns 0 outside the trail.
func (s *Sweep) Intensity(bearing float64) float64 {
	if s.TrailDeg <= 0 {
		if bearing == s.Angle {
			return 1
		}
		return 0
	}
	behind := (s.Angle - bearing) * s.direction
	if behind < 0 || behind > s.TrailDeg {
		return 0
	}

	// Linear falloff: 1.0 at sweep head -> 0.0 at trail end
	return 1.0 - behind/s.TrailDeg
}
