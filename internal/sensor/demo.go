package sensor

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// ErrPortClosed is returned by DemoPort after Close.
var ErrPortClosed = errors.New("demo port closed")

// Bouncer walks a bearing back and forth across 0..180 one degree per step.
type Bouncer struct {
	Bearing   int
	Direction int // +1 or -1
}

// NewBouncer starts at bearing 0 moving clockwise.
func NewBouncer() *Bouncer {
	return &Bouncer{Bearing: 0, Direction: 1}
}

// Step advances the bearing. The direction flips on the step after an end
// stop is reached, so the end bearing is reported once.
func (b *Bouncer) Step() int {
	if b.Bearing >= 180 {
		b.Direction = -1
	} else if b.Bearing <= 0 {
		b.Direction = 1
	}
	b.Bearing += b.Direction
	return b.Bearing
}

// DemoRange returns a random distance biased toward the maximum range so that
// most of the sweep reads as clear.
func DemoRange(rng *rand.Rand, maxRange float64) float64 {
	return math.Min(rng.Float64()*maxRange*2.5, maxRange)
}

// DemoPort is a fake sensor serial port. It emits a bouncing sweep of
// "angle,distance" lines on a fixed tick and answers the handshake query.
type DemoPort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu       sync.Mutex
	bouncer  *Bouncer
	rng      *rand.Rand
	pending  []string
	closed   bool
	cancel   context.CancelFunc
	maxRange float64
	period   time.Duration
	done     chan struct{}
}

// NewDemoPort starts the generator. It runs until Close.
func NewDemoPort(maxRange float64, period, interval time.Duration, seed int64) *DemoPort {
	r, w := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	p := &DemoPort{
		r:        r,
		w:        w,
		bouncer:  NewBouncer(),
		rng:      rand.New(rand.NewSource(seed)),
		cancel:   cancel,
		maxRange: maxRange,
		period:   period,
		done:     make(chan struct{}),
		// announce the sweep period like the firmware does on boot
		pending: []string{FormatHandshake(period)},
	}

	go p.loop(ctx, interval)
	return p
}

func (p *DemoPort) loop(ctx context.Context, interval time.Duration) {
	defer close(p.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := io.WriteString(p.w, p.next()); err != nil {
				return
			}
		}
	}
}

// next returns queued replies first, then the next sweep sample.
func (p *DemoPort) next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sb strings.Builder
	for _, line := range p.pending {
		sb.WriteString(line)
	}
	p.pending = p.pending[:0]

	s := Sample{
		Angle:    float64(p.bouncer.Step()),
		Distance: DemoRange(p.rng, p.maxRange),
	}
	sb.WriteString(FormatLine(s))
	return sb.String()
}

// Read returns generated sensor output.
func (p *DemoPort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Write accepts commands. Only the handshake query is understood; anything
// else is accepted and ignored.
func (p *DemoPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	for _, cmd := range strings.Split(string(b), "\n") {
		if strings.TrimSpace(cmd) == HandshakeQuery {
			p.pending = append(p.pending, FormatHandshake(p.period))
		}
	}
	return len(b), nil
}

// Close stops the generator and unblocks readers.
func (p *DemoPort) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.w.Close()
	<-p.done
	return nil
}
