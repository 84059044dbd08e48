// Package web serves the radar to browsers: a WebSocket event stream of
// sensor samples and SVG frames drawn from a server-side display session.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"servo-radar.klederson.com/internal/config"
	"servo-radar.klederson.com/internal/monitoring"
	"servo-radar.klederson.com/internal/relay"
)

const shutdownTimeout = 5 * time.Second

// Envelope is one WebSocket message.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// SweepData announces the sensor's sweep period.
type SweepData struct {
	SweepPeriodMs int64 `json:"sweepPeriodMs"`
}

// ConfigResponse is the body of /api/config.
type ConfigResponse struct {
	App           string    `json:"app"`
	Version       string    `json:"version"`
	MaxRange      float64   `json:"maxRange"`
	SweepPeriodMs int64     `json:"sweepPeriodMs"`
	FadeMs        int64     `json:"fadeMs"`
	Rings         []float64 `json:"rings"`
	Bearings      []float64 `json:"bearings"`
	PaintPolicy   string    `json:"paintPolicy"`
	SweepMode     string    `json:"sweepMode"`
}

// EnvelopeFor converts a relay event to its wire form.
func EnvelopeFor(ev relay.Event) Envelope {
	if ev.Type == relay.EventHandshake {
		return Envelope{Event: "sweep", Data: SweepData{SweepPeriodMs: ev.SweepPeriod.Milliseconds()}}
	}
	return Envelope{Event: "radarData", Data: ev.Sample}
}

// Server is the HTTP front-end.
type Server struct {
	echo     *echo.Echo
	source   Source
	view     *View
	upgrader websocket.Upgrader
}

// NewServer builds the router.
func NewServer(source Source, view *View) *Server {
	s := &Server{
		echo:   echo.New(),
		source: source,
		view:   view,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}\n",
		Output: monitoring.Log.WriterLevel(logrus.DebugLevel),
	}))
	e.Use(middleware.Recover())

	e.GET("/health", s.handleHealth)
	e.GET("/radar.svg", s.handleSVG)
	e.GET("/ws", s.handleWS)

	api := e.Group("/api")
	api.GET("/config", s.handleConfig)
	api.GET("/stats", s.handleStats)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Log.WithField("listen", addr).Info("web front-end started")
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleConfig(c echo.Context) error {
	d := s.view.Display()
	return c.JSON(http.StatusOK, ConfigResponse{
		App:           config.AppName,
		Version:       config.AppVersion,
		MaxRange:      d.MaxRange,
		SweepPeriodMs: d.SweepPeriod.Milliseconds(),
		FadeMs:        d.FadeDuration().Milliseconds(),
		Rings:         d.Rings,
		Bearings:      d.Bearings,
		PaintPolicy:   d.PaintPolicy,
		SweepMode:     d.SweepMode,
	})
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.source.Stats())
}

func (s *Server) handleSVG(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "image/svg+xml")
	res.Header().Set(echo.HeaderCacheControl, "no-store")
	res.WriteHeader(http.StatusOK)
	s.view.WriteSVG(res)
	return nil
}

func (s *Server) handleWS(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	id, events := s.source.Subscribe()
	defer s.source.Unsubscribe(id)

	log := monitoring.Log.WithFields(logrus.Fields{
		"subscriber": id,
		"remote":     c.RealIP(),
	})
	log.Info("viewer connected")

	// the client never sends anything we act on; reading only detects close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			log.Info("viewer disconnected")
			return nil

		case ev, ok := <-events:
			if !ok {
				if err := ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "")); err != nil {
					log.WithError(err).Debug("failed to send close")
				}
				return nil
			}
			if err := ws.WriteJSON(EnvelopeFor(ev)); err != nil {
				log.WithError(err).Warn("failed to send event")
				return nil
			}
		}
	}
}
