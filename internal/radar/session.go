package radar

import (
	"fmt"
	"math"
	"time"

	"servo-radar.klederson.com/internal/config"
	"servo-radar.klederson.com/internal/sensor"
)

// ZuluTime formats t as UTC hours and minutes with a trailing Z, e.g. "1432Z".
func ZuluTime(t time.Time) string {
	return t.UTC().Format("1504") + "Z"
}

// Readout is the text shown beside the scope. It is updated in place and
// never cleared.
type Readout struct {
	Bearing string
	Range   string
	Time    string
}

// IngestResult reports what one sample changed.
type IngestResult struct {
	Sample      sensor.Sample // clamped
	Marks       int
	TimeUpdated bool
}

// Session is one display's scan state: grid, sweep, live paint marks and
// readout. It is not safe for concurrent use; the owning display drives it
// from a single event loop.
type Session struct {
	cfg     config.Display
	grid    *Grid
	sweep   *Sweep
	policy  Policy
	marks   []PaintMark
	readout Readout
	history *RangeHistory

	lastZulu string
	last     sensor.Sample
	samples  uint64
}

// NewSession creates a session for a display of the given size.
func NewSession(d config.Display, width, height float64, start time.Time) *Session {
	s := &Session{
		cfg:     d,
		grid:    NewGrid(width, height, d),
		sweep:   NewSweep(d, start),
		policy:  PolicyFor(d.PaintPolicy),
		history: NewRangeHistory(config.HistoryLen),
	}
	s.lastZulu = ZuluTime(start)
	s.readout = Readout{
		Bearing: "BRG: ",
		Range:   "RNG: ",
		Time:    "T: " + s.lastZulu,
	}
	s.sweep.Update(start)
	return s
}

// Ingest applies one sample: the bearing and range readout always change,
// the time readout only when the Zulu minute differs from the last one shown.
func (s *Session) Ingest(sample sensor.Sample, now time.Time) IngestResult {
	c := sample.Clamp(s.cfg.MaxRange)

	marks := s.policy.Paint(c, s.grid, now, s.cfg.FadeDuration())
	s.marks = append(s.marks, marks...)

	s.readout.Bearing = fmt.Sprintf("BRG: %.0f", c.Angle)
	s.readout.Range = fmt.Sprintf("RNG: %.0f", c.Distance)

	res := IngestResult{Sample: c, Marks: len(marks)}
	if z := ZuluTime(now); z != s.lastZulu {
		s.readout.Time = "T: " + z
		s.lastZulu = z
		res.TimeUpdated = true
	}

	s.last = c
	s.samples++
	s.history.Push(c.Distance)
	return res
}

// Tick advances the sweep and drops marks whose fade has finished. It
// returns how many marks were removed.
func (s *Session) Tick(now time.Time) int {
	s.sweep.Update(now)

	kept := s.marks[:0]
	for _, m := range s.marks {
		if !m.Expired(now) {
			kept = append(kept, m)
		}
	}
	removed := len(s.marks) - len(kept)
	// clear the tail so dropped marks can be collected
	for i := len(kept); i < len(s.marks); i++ {
		s.marks[i] = PaintMark{}
	}
	s.marks = kept
	return removed
}

// Marks returns a copy of the marks still visible at now, oldest first.
func (s *Session) Marks(now time.Time) []PaintMark {
	out := make([]PaintMark, 0, len(s.marks))
	for _, m := range s.marks {
		if !m.Expired(now) {
			out = append(out, m)
		}
	}
	return out
}

// AdoptSweepPeriod checks a period reported by the sensor against the
// configured one and switches to it. The returned error is informational:
// a mismatch has already been corrected when it is returned.
func (s *Session) AdoptSweepPeriod(reported time.Duration) error {
	err := s.cfg.CheckHandshake(reported)
	if reported > 0 {
		s.cfg.SweepPeriod = reported
		s.sweep.SetPeriod(reported)
	}
	return err
}

// SetPolicy switches the paint policy for subsequent samples.
func (s *Session) SetPolicy(p Policy) {
	s.policy = p
	s.cfg.PaintPolicy = p.Name()
}

// TogglePolicy flips between arc and line painting.
func (s *Session) TogglePolicy() {
	if s.policy.Name() == config.PolicyArc {
		s.SetPolicy(LinePolicy{})
	} else {
		s.SetPolicy(ArcPolicy{})
	}
}

// ToggleSweepMode flips between sawtooth and bounce sweeps.
func (s *Session) ToggleSweepMode() {
	s.sweep.ToggleMode()
	s.cfg.SweepMode = s.sweep.Mode
}

// Clear removes all paint marks and the range history.
func (s *Session) Clear() {
	s.marks = nil
	s.history.Reset()
}

func (s *Session) Grid() *Grid { return s.grid }
func (s *Session) Sweep() *Sweep { return s.sweep }
func (s *Session) Policy() Policy { return s.policy }
func (s *Session) Readout() Readout { return s.readout }
func (s *Session) Display() config.Display { return s.cfg }
func (s *Session) Samples() uint64 { return s.samples }
func (s *Session) Last() sensor.Sample { return s.last }
func (s *Session) History() []float64 { return s.history.Values() }

// NearestEcho returns the shortest detected range among the live marks, or
// MaxRange when nothing is in view.
func (s *Session) NearestEcho() float64 {
	nearest := s.cfg.MaxRange
	for _, m := range s.marks {
		if m.Kind == MarkDetected {
			nearest = math.Min(nearest, m.OuterRange)
		}
	}
	return nearest
}
