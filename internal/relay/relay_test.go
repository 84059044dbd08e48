package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"servo-radar.klederson.com/internal/monitoring"
	"servo-radar.klederson.com/internal/sensor"
)

// TestPort replays fixed input and records writes.
type TestPort struct {
	reader   io.Reader
	written  bytes.Buffer
	writeErr error
	closed   bool
	mu       sync.Mutex
}

func NewTestPort(data string) *TestPort {
	return &TestPort{reader: strings.NewReader(data)}
}

func (p *TestPort) Read(buf []byte) (int, error) {
	return p.reader.Read(buf)
}

func (p *TestPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(data)
}

func (p *TestPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *TestPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// shortPort only accepts part of each write.
type shortPort struct{ TestPort }

func (p *shortPort) Write(data []byte) (int, error) { return len(data) - 1, nil }

func init() {
	monitoring.SetOutput(nil)
}

func collect(ch <-chan Event) []Event {
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestMonitorForwardsSamples(t *testing.T) {
	port := NewTestPort("SWEEP,6000\r\n90,100\r\n45,12.5\n")
	r := New(port)
	_, ch := r.Subscribe()

	require.NoError(t, r.Monitor(context.Background()))
	require.NoError(t, r.Close())

	events := collect(ch)
	require.Len(t, events, 3)
	assert.Equal(t, EventHandshake, events[0].Type)
	assert.Equal(t, 6*time.Second, events[0].SweepPeriod)
	assert.Equal(t, Event{Type: EventSample, Sample: sensor.Sample{Angle: 90, Distance: 100}}, events[1])
	assert.Equal(t, sensor.Sample{Angle: 45, Distance: 12.5}, events[2].Sample)

	stats := r.Stats()
	assert.Equal(t, uint64(3), stats.Lines)
	assert.Equal(t, uint64(2), stats.Forwarded)
	assert.Equal(t, uint64(1), stats.Handshakes)
	assert.Equal(t, int64(6000), stats.SweepPeriodMs)
	assert.Equal(t, 6*time.Second, r.SweepPeriod())
	assert.True(t, port.closed)
}

func TestMonitorDropsMalformedLine(t *testing.T) {
	r := New(NewTestPort("abc,xyz\n"))
	_, ch := r.Subscribe()

	require.NoError(t, r.Monitor(context.Background()))
	require.NoError(t, r.Close())

	assert.Empty(t, collect(ch))
	stats := r.Stats()
	assert.Equal(t, uint64(0), stats.Forwarded)
	assert.Equal(t, uint64(1), stats.ParseFailures)
}

func TestMonitorCountsNonDecimalLines(t *testing.T) {
	r := New(NewTestPort("inf,100\n0x1p4,50\n1_0,5\n90,100\n"))
	_, ch := r.Subscribe()

	require.NoError(t, r.Monitor(context.Background()))
	require.NoError(t, r.Close())

	events := collect(ch)
	require.Len(t, events, 1)
	assert.Equal(t, 90.0, events[0].Sample.Angle)
	assert.Equal(t, 100.0, events[0].Sample.Distance)

	stats := r.Stats()
	assert.Equal(t, uint64(4), stats.Lines)
	assert.Equal(t, uint64(1), stats.Forwarded)
	assert.Equal(t, uint64(3), stats.ParseFailures)
}

func TestMonitorMixedInput(t *testing.T) {
	r := New(NewTestPort("10,20\n\nbad\nSWEEP,x\n30,40\n"))
	_, ch := r.Subscribe()

	require.NoError(t, r.Monitor(context.Background()))
	require.NoError(t, r.Close())

	assert.Len(t, collect(ch), 2)
	stats := r.Stats()
	assert.Equal(t, uint64(5), stats.Lines)
	assert.Equal(t, uint64(2), stats.ParseFailures)
}

func TestFanOutToEverySubscriber(t *testing.T) {
	r := New(NewTestPort("1,2\n3,4\n"))
	_, a := r.Subscribe()
	_, b := r.Subscribe()
	assert.Equal(t, 2, r.Stats().Subscribers)

	require.NoError(t, r.Monitor(context.Background()))
	require.NoError(t, r.Close())

	assert.Len(t, collect(a), 2)
	assert.Len(t, collect(b), 2)
}

func TestUnsubscribe(t *testing.T) {
	r := New(NewTestPort("1,2\n"))
	id, ch := r.Subscribe()
	r.Unsubscribe(id)
	r.Unsubscribe(id) // second call is a no-op

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
	assert.Equal(t, 0, r.Stats().Subscribers)

	require.NoError(t, r.Monitor(context.Background()))
	assert.Equal(t, uint64(1), r.Stats().Forwarded)
}

func TestSlowSubscriberDrops(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString("90,100\n")
	}
	r := New(NewTestPort(sb.String()))
	_, ch := r.Subscribe()

	require.NoError(t, r.Monitor(context.Background()))

	stats := r.Stats()
	assert.Equal(t, uint64(100), stats.Forwarded)
	assert.Equal(t, uint64(100-cap(ch)), stats.Dropped)
	assert.Len(t, ch, cap(ch))
}

func TestSubscribeAfterClose(t *testing.T) {
	r := New(NewTestPort(""))
	require.NoError(t, r.Close())
	_, ch := r.Subscribe()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestMonitorContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	port := &pipePort{PipeReader: pr}
	r := New[*pipePort](port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Monitor(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
}

type pipePort struct{ *io.PipeReader }

func (p *pipePort) Write(b []byte) (int, error) { return len(b), nil }

func TestMonitorReadError(t *testing.T) {
	wantErr := errors.New("device unplugged")
	port := &errPort{err: wantErr}
	r := New[*errPort](port)
	assert.ErrorIs(t, r.Monitor(context.Background()), wantErr)
}

type errPort struct{ err error }

func (p *errPort) Read([]byte) (int, error)    { return 0, p.err }
func (p *errPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *errPort) Close() error                { return nil }

func TestSendCommand(t *testing.T) {
	port := NewTestPort("")
	r := New(port)

	require.NoError(t, r.RequestHandshake())
	require.NoError(t, r.SendCommand("P6000\n"))
	assert.Equal(t, "SWEEP?\nP6000\n", port.Written())

	port.writeErr = errors.New("boom")
	assert.Error(t, r.SendCommand("x"))

	assert.ErrorIs(t, New(&shortPort{}).SendCommand("abc"), ErrWriteFailed)
}

func TestRelayWithDemoPort(t *testing.T) {
	port := sensor.NewDemoPort(200, 7200*time.Millisecond, time.Millisecond, 7)
	r := New(port)
	_, ch := r.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Monitor(ctx)

	var samples int
	timeout := time.After(2 * time.Second)
	for samples < 5 {
		select {
		case ev := <-ch:
			if ev.Type == EventSample {
				samples++
			}
		case <-timeout:
			t.Fatal("no samples from demo port")
		}
	}
	require.NoError(t, r.Close())
	assert.Equal(t, 7200*time.Millisecond, r.SweepPeriod())
}

func TestPortOptions(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "N"}, opts)

	mode, err := PortOptions{BaudRate: 115200, StopBits: 2, Parity: "even"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{BaudRate: 115200, DataBits: 8, StopBits: serial.TwoStopBits, Parity: serial.EvenParity}, mode)

	for _, bad := range []PortOptions{
		{DataBits: 9},
		{StopBits: 3},
		{Parity: "mark"},
	} {
		_, err := bad.SerialMode()
		assert.Error(t, err, "%+v", bad)
	}
}

func TestOpenWithoutPath(t *testing.T) {
	_, err := Open("", PortOptions{})
	assert.Error(t, err)
}
