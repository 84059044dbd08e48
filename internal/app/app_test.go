package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"servo-radar.klederson.com/internal/config"
	"servo-radar.klederson.com/internal/monitoring"
	"servo-radar.klederson.com/internal/relay"
	"servo-radar.klederson.com/internal/sensor"
	"servo-radar.klederson.com/internal/timeutil"
)

func init() {
	monitoring.SetOutput(nil)
}

type fakeFeed struct {
	mu           sync.Mutex
	ch           chan relay.Event
	unsubscribed []string
}

func (f *fakeFeed) Subscribe() (string, <-chan relay.Event) {
	f.ch = make(chan relay.Event, 4)
	return "viewer-1", f.ch
}

func (f *fakeFeed) Unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, id)
}

func (f *fakeFeed) Stats() relay.Stats {
	return relay.Stats{Lines: 2, Forwarded: 1, ParseFailures: 1}
}

func newModel(t *testing.T) (AppModel, *timeutil.MockClock, *fakeFeed) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2024, 3, 9, 14, 32, 0, 0, time.UTC))
	feed := &fakeFeed{}
	m := New(config.Default().Display, feed, "demo", clock)
	return m, clock, feed
}

func update(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(AppModel)
	require.True(t, ok)
	return am, cmd
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestSampleUpdatesReadout(t *testing.T) {
	m, _, _ := newModel(t)

	m, _ = update(t, m, SampleMsg{Sample: sensor.Sample{Angle: 90, Distance: 100}})

	r := m.shared.session.Readout()
	assert.Equal(t, "BRG: 90", r.Bearing)
	assert.Equal(t, "RNG: 100", r.Range)
	assert.Equal(t, uint64(1), m.shared.session.Samples())
}

func TestPauseDropsSamples(t *testing.T) {
	m, _, _ := newModel(t)

	m, _ = update(t, m, key('p'))
	assert.False(t, m.scanning)
	m, _ = update(t, m, SampleMsg{Sample: sensor.Sample{Angle: 10, Distance: 10}})
	assert.Equal(t, uint64(0), m.shared.session.Samples())

	m, _ = update(t, m, key('p'))
	assert.True(t, m.scanning)
}

func TestKeysToggleSession(t *testing.T) {
	m, _, _ := newModel(t)

	m, _ = update(t, m, key('l'))
	assert.Equal(t, config.PolicyLine, m.shared.session.Policy().Name())

	m, _ = update(t, m, key('m'))
	assert.Equal(t, config.SweepBounce, m.shared.session.Sweep().Mode)

	m, _ = update(t, m, SampleMsg{Sample: sensor.Sample{Angle: 90, Distance: 50}})
	m, _ = update(t, m, key('c'))
	assert.Empty(t, m.shared.session.History())
}

func TestTickPrunesAndRefreshesStats(t *testing.T) {
	m, clock, _ := newModel(t)
	m, _ = update(t, m, SampleMsg{Sample: sensor.Sample{Angle: 90, Distance: 100}})
	require.NotEmpty(t, m.shared.session.Marks(clock.Now()))

	clock.Advance(config.Default().Display.FadeDuration())
	m, cmd := update(t, m, TickMsg(clock.Now()))

	assert.NotNil(t, cmd)
	assert.Empty(t, m.shared.session.Marks(clock.Now()))
	assert.Equal(t, uint64(1), m.stats.ParseFailures)
}

func TestHandshakeAdoptsPeriod(t *testing.T) {
	m, _, _ := newModel(t)
	m, _ = update(t, m, HandshakeMsg{Period: 6 * time.Second})
	assert.Equal(t, 6*time.Second, m.shared.session.Display().SweepPeriod)
}

func TestQuitUnsubscribes(t *testing.T) {
	m, _, feed := newModel(t)
	m.shared.subID = "viewer-1"

	_, cmd := update(t, m, key('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, []string{"viewer-1"}, feed.unsubscribed)
}

func TestFeedErrorsShowInStatus(t *testing.T) {
	m, _, _ := newModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, ScanErrorMsg{Err: errors.New("port vanished")})

	assert.Contains(t, ansi.Strip(m.View()), "[NO SIGNAL]")
}

func TestView(t *testing.T) {
	m, _, _ := newModel(t)
	assert.Equal(t, "Initializing servo radar...", m.View())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, SampleMsg{Sample: sensor.Sample{Angle: 45, Distance: 150}})

	plain := ansi.Strip(m.View())
	assert.Contains(t, plain, "SERVO-RADAR")
	assert.Contains(t, plain, "SCOPE")
	assert.Contains(t, plain, "READOUT")
	assert.Contains(t, plain, "[SCANNING]")
	assert.Contains(t, plain, "# echo")
}

func TestEventMsg(t *testing.T) {
	assert.Equal(t, SampleMsg{Sample: sensor.Sample{Angle: 1, Distance: 2}},
		eventMsg(relay.Event{Type: relay.EventSample, Sample: sensor.Sample{Angle: 1, Distance: 2}}))
	assert.Equal(t, HandshakeMsg{Period: time.Second},
		eventMsg(relay.Event{Type: relay.EventHandshake, SweepPeriod: time.Second}))
	assert.Nil(t, eventMsg(relay.Event{Type: "other"}))
}
