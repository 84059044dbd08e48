// Package relay reads sensor lines from a single port and fans parsed samples
// out to any number of display sessions.
package relay

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"servo-radar.klederson.com/internal/config"
	"servo-radar.klederson.com/internal/monitoring"
	"servo-radar.klederson.com/internal/sensor"
)

// ErrWriteFailed is returned when a command is only partially written.
var ErrWriteFailed = errors.New("failed to write to sensor port")

// EventType distinguishes relay events.
type EventType string

const (
	EventSample    EventType = "sample"
	EventHandshake EventType = "handshake"
)

// Event is delivered to every subscriber.
type Event struct {
	Type        EventType
	Sample      sensor.Sample
	SweepPeriod time.Duration
}

// Stats are cumulative relay counters.
type Stats struct {
	Lines         uint64 `json:"lines"`
	Forwarded     uint64 `json:"forwarded"`
	ParseFailures uint64 `json:"parse_failures"`
	Handshakes    uint64 `json:"handshakes"`
	Dropped       uint64 `json:"dropped"`
	Subscribers   int    `json:"subscribers"`
	SweepPeriodMs int64  `json:"sweep_period_ms,omitempty"`
}

// Relay multiplexes one sensor port to many subscribers.
type Relay[T Port] struct {
	port T

	subscribers  map[string]chan Event
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      atomic.Bool

	lines      atomic.Uint64
	forwarded  atomic.Uint64
	failures   atomic.Uint64
	handshakes atomic.Uint64
	dropped    atomic.Uint64
	period     atomic.Int64
}

// New wraps an open port.
func New[T Port](port T) *Relay[T] {
	return &Relay[T]{
		port:        port,
		subscribers: make(map[string]chan Event),
	}
}

// Subscribe registers a new subscriber. The returned ID is used to
// unsubscribe. The channel is closed on Unsubscribe or Close.
func (r *Relay[T]) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, config.SubscriberBuffer)

	r.subscriberMu.Lock()
	defer r.subscriberMu.Unlock()
	if r.closing.Load() {
		close(ch)
		return id, ch
	}
	r.subscribers[id] = ch
	monitoring.Log.WithField("subscriber", id).Debug("subscribed")
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (r *Relay[T]) Unsubscribe(id string) {
	r.subscriberMu.Lock()
	defer r.subscriberMu.Unlock()
	if ch, ok := r.subscribers[id]; ok {
		close(ch)
		delete(r.subscribers, id)
		monitoring.Log.WithField("subscriber", id).Debug("unsubscribed")
	}
}

// SendCommand writes a newline-terminated command to the sensor.
func (r *Relay[T]) SendCommand(command string) error {
	r.commandMu.Lock()
	defer r.commandMu.Unlock()
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	n, err := r.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// RequestHandshake asks the sensor to report its sweep period.
func (r *Relay[T]) RequestHandshake() error {
	return r.SendCommand(sensor.HandshakeQuery)
}

// SweepPeriod is the last period announced by the sensor, or zero.
func (r *Relay[T]) SweepPeriod() time.Duration {
	return time.Duration(r.period.Load())
}

// Stats returns a snapshot of the relay counters.
func (r *Relay[T]) Stats() Stats {
	r.subscriberMu.Lock()
	subs := len(r.subscribers)
	r.subscriberMu.Unlock()

	return Stats{
		Lines:         r.lines.Load(),
		Forwarded:     r.forwarded.Load(),
		ParseFailures: r.failures.Load(),
		Handshakes:    r.handshakes.Load(),
		Dropped:       r.dropped.Load(),
		Subscribers:   subs,
		SweepPeriodMs: r.SweepPeriod().Milliseconds(),
	}
}

// Monitor reads lines until the port is exhausted, fails, or ctx is done.
func (r *Relay[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(r.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// the blocking scan.Scan must not hold up context cancellation, so it
	// runs in its own goroutine.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			scanErrChan <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			if r.closing.Load() {
				return nil
			}
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					if !r.closing.Load() {
						return err
					}
				default:
				}
				return nil
			}
			if r.closing.Load() {
				return nil
			}
			r.handleLine(line)
		}
	}
}

func (r *Relay[T]) handleLine(line string) {
	r.lines.Add(1)
	if strings.TrimSpace(line) == "" {
		return
	}

	period, ok, err := sensor.ParseHandshake(line)
	if ok {
		if err != nil {
			r.failures.Add(1)
			monitoring.Log.WithError(err).Warn("dropping sensor handshake")
			return
		}
		r.handshakes.Add(1)
		r.period.Store(int64(period))
		monitoring.Log.WithField("sweep_period", period).Info("sensor handshake")
		r.broadcast(Event{Type: EventHandshake, SweepPeriod: period})
		return
	}

	s, err := sensor.ParseLine(line)
	if err != nil {
		r.failures.Add(1)
		monitoring.Log.WithFields(logrus.Fields{"line": line}).WithError(err).Warn("dropping sensor line")
		return
	}
	r.forwarded.Add(1)
	monitoring.Log.WithField("sample", s).Trace("sensor sample")
	r.broadcast(Event{Type: EventSample, Sample: s})
}

func (r *Relay[T]) broadcast(ev Event) {
	r.subscriberMu.Lock()
	defer r.subscriberMu.Unlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			// a slow viewer misses this event rather than stalling the sweep
			r.dropped.Add(1)
		}
	}
}

// Close closes every subscriber channel and the port.
func (r *Relay[T]) Close() error {
	r.closing.Store(true)

	r.subscriberMu.Lock()
	for id, ch := range r.subscribers {
		close(ch)
		delete(r.subscribers, id)
	}
	r.subscriberMu.Unlock()

	return r.port.Close()
}
