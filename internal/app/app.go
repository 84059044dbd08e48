package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"servo-radar.klederson.com/internal/config"
	"servo-radar.klederson.com/internal/monitoring"
	"servo-radar.klederson.com/internal/radar"
	"servo-radar.klederson.com/internal/relay"
	"servo-radar.klederson.com/internal/timeutil"
	"servo-radar.klederson.com/internal/ui"
)

// Feed is the part of a relay the terminal display consumes.
type Feed interface {
	Subscribe() (string, <-chan relay.Event)
	Unsubscribe(id string)
	Stats() relay.Stats
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	session *radar.Session
	feed    Feed
	clock   timeutil.Clock
	subID   string
}

// AppModel is the root Bubble Tea model for the servo radar.
type AppModel struct {
	width  int
	height int

	scanning   bool
	feedClosed bool
	source     string
	lastErr    error

	shared *shared

	// Cached snapshot
	stats relay.Stats
}

// New creates a new AppModel. source labels the sensor in the menu bar.
func New(d config.Display, feed Feed, source string, clock timeutil.Clock) AppModel {
	return AppModel{
		scanning: true,
		source:   source,
		shared: &shared{
			session: radar.NewSession(d, config.SVGWidth, config.SVGHeight, clock.Now()),
			feed:    feed,
			clock:   clock,
		},
	}
}

func (m AppModel) Init() tea.Cmd {
	return tickCmd()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.shared.session.Tick(m.shared.clock.Now())
		m.stats = m.shared.feed.Stats()
		return m, tickCmd()

	case SampleMsg:
		if m.scanning {
			m.shared.session.Ingest(msg.Sample, m.shared.clock.Now())
		}
		return m, nil

	case HandshakeMsg:
		if err := m.shared.session.AdoptSweepPeriod(msg.Period); err != nil {
			monitoring.Log.WithFields(logrus.Fields{
				"reported": msg.Period,
			}).WithError(err).Warn("adopting sensor sweep period")
		}
		return m, nil

	case FeedClosedMsg:
		m.feedClosed = true
		return m, nil

	case ScanErrorMsg:
		m.lastErr = msg.Err
		monitoring.Log.WithError(msg.Err).Error("sensor feed failed")
		return m, nil
	}

	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.stopFeed()
		return m, tea.Quit

	case "p", "P":
		m.scanning = !m.scanning

	case "c", "C":
		m.shared.session.Clear()

	case "m", "M":
		m.shared.session.ToggleSweepMode()

	case "l", "L":
		m.shared.session.TogglePolicy()
	}

	return m, nil
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing servo radar..."
	}

	menuH := 1
	statusH := 1
	bodyH := m.height - menuH - statusH
	if bodyH < 8 {
		bodyH = 8
	}

	radarW := m.width * 3 / 4
	if radarW < 30 {
		radarW = 30
	}
	sideW := m.width - radarW
	if sideW < 24 {
		sideW = 24
		radarW = m.width - sideW
	}

	s := m.shared.session
	now := m.shared.clock.Now()
	d := s.Display()

	menuBar := ui.RenderMenuBar(m.width, m.source, m.scanning)

	// border, title line and legend
	innerW := radarW - 4
	innerH := bodyH - 4
	if innerW < 10 {
		innerW = 10
	}
	if innerH < 4 {
		innerH = 4
	}
	scope := radar.Render(innerW, innerH, s, now)
	legend := radar.RenderLegend(innerW)
	radarPanel := ui.RenderRadarPanel(radarW, bodyH, d.MaxRange, scope, legend)

	readout := ui.RenderReadoutPanel(ui.Readout{
		Text:     s.Readout(),
		Bearing:  s.Last().Angle,
		Range:    s.Last().Distance,
		Nearest:  s.NearestEcho(),
		MaxRange: d.MaxRange,
		Sweep:    d.SweepPeriod,
		History:  s.History(),
		Stats:    m.stats,
	}, sideW, bodyH)

	statusBar := ui.RenderStatusBar(m.width, ui.Status{
		Scanning:   m.scanning,
		FeedClosed: m.feedClosed || m.lastErr != nil,
		Samples:    s.Samples(),
		Failures:   m.stats.ParseFailures,
		SweepDeg:   s.Sweep().Degrees(),
		MaxRange:   d.MaxRange,
		Policy:     s.Policy().Name(),
		SweepMode:  s.Sweep().Mode,
	})

	return ui.ComposeLayout(menuBar, radarPanel, readout, statusBar)
}

// StartFeed subscribes to the relay and forwards its events to p. Must be
// called before p.Run().
func (m *AppModel) StartFeed(p *tea.Program) {
	id, events := m.shared.feed.Subscribe()
	m.shared.subID = id

	go func() {
		for ev := range events {
			if msg := eventMsg(ev); msg != nil {
				p.Send(msg)
			}
		}
		p.Send(FeedClosedMsg{})
	}()
}

func eventMsg(ev relay.Event) tea.Msg {
	switch ev.Type {
	case relay.EventSample:
		return SampleMsg{Sample: ev.Sample}
	case relay.EventHandshake:
		return HandshakeMsg{Period: ev.SweepPeriod}
	}
	return nil
}

func (m *AppModel) stopFeed() {
	if m.shared.subID != "" {
		m.shared.feed.Unsubscribe(m.shared.subID)
		m.shared.subID = ""
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
