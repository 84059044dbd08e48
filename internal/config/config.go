package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// Radar display
	MaxRange      = 200.0                   // Maximum range in centimeters
	SweepPeriod   = 7200 * time.Millisecond // Full 0->180 servo sweep
	FadeFraction  = 0.5                     // Paint fade as a fraction of the sweep period
	AspectRatio   = 0.5                     // Terminal char aspect correction (chars are ~2:1 tall)
	SweepTrailDeg = 30.0                    // Sweep trail angle in degrees
	TargetFPS     = 30                      // Target frames per second
	HistoryLen    = 180                     // Ranges kept for the readout sparkline

	// Sensor
	DefaultBaudRate  = 9600
	DemoTickInterval = 40 * time.Millisecond
	HandshakeSlack   = 0.05 // Allowed relative sweep period drift

	// Relay
	SubscriberBuffer = 64

	// Logging
	DefaultLogLevel = "info"

	// Web
	DefaultListen = ":3000"
	SVGWidth      = 800
	SVGHeight     = 600

	// App
	AppName    = "SERVO-RADAR"
	AppVersion = "1.0"
)

// Paint policies.
const (
	PolicyArc  = "arc"
	PolicyLine = "line"
)

// Sweep modes.
const (
	SweepSawtooth = "sawtooth"
	SweepBounce   = "bounce"
)

// ErrSweepMismatch is returned when the sensor reports a sweep period that
// does not match the configured one.
var ErrSweepMismatch = errors.New("sweep period mismatch")

// DefaultRings are the labelled range ring distances.
var DefaultRings = []float64{50, 100, 150, 200}

// DefaultBearings are the labelled bearing spokes in degrees.
var DefaultBearings = []float64{0, 30, 60, 90, 120, 150, 180}

// Serial describes the sensor connection.
type Serial struct {
	Path     string `yaml:"path"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

// Display holds the scan rendering parameters shared by every display session.
type Display struct {
	MaxRange      float64       `yaml:"max_range"`
	SweepPeriod   time.Duration `yaml:"sweep_period"`
	FadeFraction  float64       `yaml:"fade_fraction"`
	Rings         []float64     `yaml:"rings"`
	Bearings      []float64     `yaml:"bearings"`
	PaintPolicy   string        `yaml:"paint_policy"`
	SweepMode     string        `yaml:"sweep_mode"`
	SweepTrailDeg float64       `yaml:"sweep_trail_deg"`
}

// Config is the top-level structure for the YAML config file.
type Config struct {
	Display  Display `yaml:"display"`
	Serial   Serial  `yaml:"serial"`
	Listen   string  `yaml:"listen"`
	Demo     bool    `yaml:"demo"`
	LogFile  string  `yaml:"log_file"`
	LogLevel string  `yaml:"log_level"`
}

// Default returns a Config populated with the package constants.
func Default() *Config {
	return &Config{
		Display: Display{
			MaxRange:      MaxRange,
			SweepPeriod:   SweepPeriod,
			FadeFraction:  FadeFraction,
			Rings:         append([]float64(nil), DefaultRings...),
			Bearings:      append([]float64(nil), DefaultBearings...),
			PaintPolicy:   PolicyArc,
			SweepMode:     SweepSawtooth,
			SweepTrailDeg: SweepTrailDeg,
		},
		Serial: Serial{
			BaudRate: DefaultBaudRate,
		},
		Listen:   DefaultListen,
		LogLevel: DefaultLogLevel,
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config for values the renderer cannot work with.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return c.Display.Validate()
}

// Validate checks the display parameters.
func (d Display) Validate() error {
	if d.MaxRange <= 0 {
		return fmt.Errorf("max_range must be positive, got %v", d.MaxRange)
	}
	if d.SweepPeriod <= 0 {
		return fmt.Errorf("sweep_period must be positive, got %v", d.SweepPeriod)
	}
	if d.FadeFraction <= 0 || d.FadeFraction > 1 {
		return fmt.Errorf("fade_fraction must be in (0, 1], got %v", d.FadeFraction)
	}
	if len(d.Rings) == 0 {
		return errors.New("rings must not be empty")
	}
	for _, r := range d.Rings {
		if r <= 0 {
			return fmt.Errorf("ring distance must be positive, got %v", r)
		}
		if r > d.MaxRange {
			return fmt.Errorf("ring distance %v is beyond max_range %v", r, d.MaxRange)
		}
	}
	for _, b := range d.Bearings {
		if b < 0 || b > 180 {
			return fmt.Errorf("bearing must be in [0, 180], got %v", b)
		}
	}
	switch strings.ToLower(d.PaintPolicy) {
	case PolicyArc, PolicyLine:
	default:
		return fmt.Errorf("unknown paint_policy %q: expected %q or %q", d.PaintPolicy, PolicyArc, PolicyLine)
	}
	switch strings.ToLower(d.SweepMode) {
	case SweepSawtooth, SweepBounce:
	default:
		return fmt.Errorf("unknown sweep_mode %q: expected %q or %q", d.SweepMode, SweepSawtooth, SweepBounce)
	}
	if d.SweepTrailDeg < 0 || d.SweepTrailDeg > 180 {
		return fmt.Errorf("sweep_trail_deg must be in [0, 180], got %v", d.SweepTrailDeg)
	}
	return nil
}

// FadeDuration is how long a paint mark takes to fade out.
func (d Display) FadeDuration() time.Duration {
	return time.Duration(float64(d.SweepPeriod) * d.FadeFraction)
}

// CheckHandshake compares the sweep period reported by the sensor with the
// configured one.
func (d Display) CheckHandshake(reported time.Duration) error {
	if reported <= 0 {
		return fmt.Errorf("%w: sensor reported %v", ErrSweepMismatch, reported)
	}
	drift := math.Abs(float64(reported-d.SweepPeriod)) / float64(d.SweepPeriod)
	if drift > HandshakeSlack {
		return fmt.Errorf("%w: configured %v, sensor reports %v", ErrSweepMismatch, d.SweepPeriod, reported)
	}
	return nil
}
