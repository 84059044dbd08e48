package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 200.0, cfg.Display.MaxRange)
	assert.Equal(t, 3600*time.Millisecond, cfg.Display.FadeDuration())
	assert.Equal(t, []float64{50, 100, 150, 200}, cfg.Display.Rings)
}

func TestDefaultDoesNotAliasPackageSlices(t *testing.T) {
	cfg := Default()
	cfg.Display.Rings[0] = 1
	assert.Equal(t, 50.0, DefaultRings[0])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Display)
	}{
		{"zero range", func(d *Display) { d.MaxRange = 0 }},
		{"negative period", func(d *Display) { d.SweepPeriod = -time.Second }},
		{"zero fade", func(d *Display) { d.FadeFraction = 0 }},
		{"fade above one", func(d *Display) { d.FadeFraction = 1.5 }},
		{"no rings", func(d *Display) { d.Rings = nil }},
		{"negative ring", func(d *Display) { d.Rings = []float64{-1} }},
		{"bad policy", func(d *Display) { d.PaintPolicy = "dots" }},
		{"bad mode", func(d *Display) { d.SweepMode = "spin" }},
		{"trail too wide", func(d *Display) { d.SweepTrailDeg = 270 }},
		{"ring past max range", func(d *Display) { d.Rings = []float64{50, 250} }},
		{"negative bearing", func(d *Display) { d.Bearings = []float64{-30, 90} }},
		{"bearing past 180", func(d *Display) { d.Bearings = []float64{90, 200} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg.Display)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateEdgeValues(t *testing.T) {
	cfg := Default()
	cfg.Display.Rings = []float64{cfg.Display.MaxRange}
	cfg.Display.Bearings = []float64{0, 180}
	assert.NoError(t, cfg.Validate())
}

func TestValidateLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	assert.NoError(t, cfg.Validate())

	cfg.LogLevel = "chatty"
	assert.Error(t, cfg.Validate())
}

func displayValue() Display { return Default().Display }

func TestDisplayMethodsOnValue(t *testing.T) {
	// called on a returned value, which is not addressable
	assert.Equal(t, 3600*time.Millisecond, displayValue().FadeDuration())
	assert.NoError(t, displayValue().CheckHandshake(SweepPeriod))
	assert.NoError(t, displayValue().Validate())
}

func TestCheckHandshake(t *testing.T) {
	d := Default().Display
	d.SweepPeriod = 6000 * time.Millisecond

	assert.NoError(t, d.CheckHandshake(6000*time.Millisecond))
	assert.NoError(t, d.CheckHandshake(6200*time.Millisecond))
	assert.ErrorIs(t, d.CheckHandshake(7200*time.Millisecond), ErrSweepMismatch)
	assert.ErrorIs(t, d.CheckHandshake(0), ErrSweepMismatch)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radar.yaml")
	body := `
display:
  max_range: 400
  sweep_period: 6s
  paint_policy: line
serial:
  path: /dev/ttyUSB0
  baud_rate: 115200
listen: ":8080"
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 400.0, cfg.Display.MaxRange)
	assert.Equal(t, 6*time.Second, cfg.Display.SweepPeriod)
	assert.Equal(t, PolicyLine, cfg.Display.PaintPolicy)
	assert.Equal(t, SweepSawtooth, cfg.Display.SweepMode)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Path)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("display:\n  max_range: -1\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
