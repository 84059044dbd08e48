package web

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"servo-radar.klederson.com/internal/config"
	"servo-radar.klederson.com/internal/monitoring"
	"servo-radar.klederson.com/internal/radar"
	"servo-radar.klederson.com/internal/relay"
	"servo-radar.klederson.com/internal/timeutil"
)

// Source is the part of a relay the web front-end consumes.
type Source interface {
	Subscribe() (string, <-chan relay.Event)
	Unsubscribe(id string)
	Stats() relay.Stats
}

// View is the server-side display session behind /radar.svg.
type View struct {
	mu      sync.Mutex
	session *radar.Session
	clock   timeutil.Clock
}

// NewView creates a view sized for SVG frames.
func NewView(d config.Display, clock timeutil.Clock) *View {
	return &View{
		session: radar.NewSession(d, config.SVGWidth, config.SVGHeight, clock.Now()),
		clock:   clock,
	}
}

// Apply feeds one relay event into the session.
func (v *View) Apply(ev relay.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch ev.Type {
	case relay.EventSample:
		v.session.Ingest(ev.Sample, v.clock.Now())
	case relay.EventHandshake:
		if err := v.session.AdoptSweepPeriod(ev.SweepPeriod); err != nil {
			monitoring.Log.WithFields(logrus.Fields{
				"reported": ev.SweepPeriod,
			}).WithError(err).Warn("adopting sensor sweep period")
		}
	}
}

// Run applies events until ctx is done or the subscription is closed. The
// caller owns the subscription so it can be in place before the relay starts.
func (v *View) Run(ctx context.Context, events <-chan relay.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			v.Apply(ev)
		}
	}
}

// WriteSVG advances the session to now and draws one frame.
func (v *View) WriteSVG(w io.Writer) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.clock.Now()
	v.session.Tick(now)
	radar.WriteSVG(w, v.session, now)
}

// Display returns the session's current display settings, including any
// sweep period adopted from the sensor.
func (v *View) Display() config.Display {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.Display()
}

// Readout returns the current readout text.
func (v *View) Readout() radar.Readout {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.Readout()
}
