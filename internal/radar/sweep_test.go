package radar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"servo-radar.klederson.com/internal/config"
)

func TestSawtoothAngle(t *testing.T) {
	p := 6000 * time.Millisecond
	tests := []struct {
		elapsed time.Duration
		want    float64
	}{
		{0, 0},
		{1500 * time.Millisecond, 45},
		{3000 * time.Millisecond, 90},
		{6000 * time.Millisecond, 0},
		{7500 * time.Millisecond, 45},
		{-1500 * time.Millisecond, 135},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, SawtoothAngle(tt.elapsed, p), eps, "elapsed %v", tt.elapsed)
	}
	assert.Equal(t, 0.0, SawtoothAngle(time.Second, 0))
}

func TestBounceAngle(t *testing.T) {
	p := 6000 * time.Millisecond
	assert.InDelta(t, 0, BounceAngle(0, p), eps)
	assert.InDelta(t, 90, BounceAngle(3*time.Second, p), eps)
	assert.InDelta(t, 180, BounceAngle(6*time.Second, p), eps)
	assert.InDelta(t, 90, BounceAngle(9*time.Second, p), eps)
	assert.InDelta(t, 0, BounceAngle(12*time.Second, p), eps)
}

func TestSweepUpdate(t *testing.T) {
	d := config.Default().Display
	d.SweepPeriod = 6 * time.Second
	start := time.Unix(1000, 0)

	s := NewSweep(d, start)
	s.Update(start.Add(3 * time.Second))
	assert.InDelta(t, 90, s.Degrees(), eps)
	assert.InDelta(t, 0, s.Radians(), eps)
	assert.Equal(t, 1.0, s.Direction())

	s.ToggleMode()
	assert.Equal(t, config.SweepBounce, s.Mode)
	s.Update(start.Add(9 * time.Second))
	assert.InDelta(t, 90, s.Degrees(), eps)
	assert.Equal(t, -1.0, s.Direction())

	s.ToggleMode()
	assert.Equal(t, config.SweepSawtooth, s.Mode)
}

func TestSweepSetPeriod(t *testing.T) {
	d := config.Default().Display
	start := time.Unix(0, 0)
	s := NewSweep(d, start)

	s.SetPeriod(4 * time.Second)
	s.Update(start.Add(time.Second))
	assert.InDelta(t, 45, s.Degrees(), eps)

	s.SetPeriod(0)
	assert.Equal(t, 4*time.Second, s.Period)
}

func TestSweepIntensity(t *testing.T) {
	d := config.Default().Display
	d.SweepPeriod = 180 * time.Second
	d.SweepTrailDeg = 30
	start := time.Unix(0, 0)

	s := NewSweep(d, start)
	s.Update(start.Add(100 * time.Second)) // bearing 100

	assert.InDelta(t, 1, s.Intensity(100), eps)
	assert.InDelta(t, 0.5, s.Intensity(85), eps)
	assert.Equal(t, 0.0, s.Intensity(110), "ahead of the sweep")
	assert.Equal(t, 0.0, s.Intensity(60), "beyond the trail")

	s.ToggleMode()
	s.Update(start.Add(260 * time.Second)) // returning, bearing 100
	assert.InDelta(t, 0.5, s.Intensity(115), eps)
	assert.Equal(t, 0.0, s.Intensity(85))
}
