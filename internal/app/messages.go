package app

import (
	"time"

	"servo-radar.klederson.com/internal/sensor"
)

// TickMsg triggers a frame update for animation.
type TickMsg time.Time

// SampleMsg carries one sensor sample from the relay.
type SampleMsg struct {
	Sample sensor.Sample
}

// HandshakeMsg carries the sweep period the sensor reported.
type HandshakeMsg struct {
	Period time.Duration
}

// FeedClosedMsg reports that the relay subscription ended.
type FeedClosedMsg struct{}

// ScanErrorMsg reports relay read errors.
type ScanErrorMsg struct {
	Err error
}
