package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"servo-radar.klederson.com/internal/app"
	"servo-radar.klederson.com/internal/config"
	"servo-radar.klederson.com/internal/monitoring"
	"servo-radar.klederson.com/internal/relay"
	"servo-radar.klederson.com/internal/sensor"
	"servo-radar.klederson.com/internal/timeutil"
	"servo-radar.klederson.com/internal/web"
)

var (
	flagConfig   string
	flagDemo     bool
	flagPort     string
	flagBaud     int
	flagRange    float64
	flagSweep    time.Duration
	flagPolicy   string
	flagListen   string
	flagLogFile  string
	flagLogLevel string
)

// sensorRelay is a relay over either a real serial port or the demo
// generator.
type sensorRelay interface {
	Subscribe() (string, <-chan relay.Event)
	Unsubscribe(id string)
	Stats() relay.Stats
	Monitor(ctx context.Context) error
	RequestHandshake() error
	Close() error
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "servo-radar",
		Short: "Servo Radar - live polar display for a sweeping range sensor",
		Long: `Servo Radar reads "<angle>,<distance>" lines from an ultrasonic range
sensor on a sweeping servo and paints them on a half-disc radar scope with
fading echoes, in the terminal or in a browser.

Use --demo to run without hardware.`,
		SilenceUsage: true,
		RunE:         runTerminal,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Relay the sensor to browsers over WebSocket and SVG",
		RunE:  runServe,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "YAML config file")
	pf.BoolVar(&flagDemo, "demo", false, "Run with generated samples (no sensor required)")
	pf.StringVar(&flagPort, "port", "", "Serial port of the sensor, e.g. /dev/ttyUSB0")
	pf.IntVar(&flagBaud, "baud", config.DefaultBaudRate, "Serial baud rate")
	pf.Float64Var(&flagRange, "range", config.MaxRange, "Maximum radar range in centimeters")
	pf.DurationVar(&flagSweep, "sweep", config.SweepPeriod, "Servo sweep period (0 to 180 degrees)")
	pf.StringVar(&flagPolicy, "policy", config.PolicyArc, "Paint policy: arc or line")
	pf.StringVar(&flagLogFile, "log-file", "", "Write diagnostic logs to this file")
	pf.StringVar(&flagLogLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
	serveCmd.Flags().StringVar(&flagListen, "listen", config.DefaultListen, "HTTP listen address")

	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies any flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("demo") {
		cfg.Demo = flagDemo
	}
	if flags.Changed("port") {
		cfg.Serial.Path = flagPort
	}
	if flags.Changed("baud") {
		cfg.Serial.BaudRate = flagBaud
	}
	if flags.Changed("range") {
		cfg.Display.MaxRange = flagRange
	}
	if flags.Changed("sweep") {
		cfg.Display.SweepPeriod = flagSweep
	}
	if flags.Changed("policy") {
		cfg.Display.PaintPolicy = flagPolicy
	}
	if flags.Changed("listen") {
		cfg.Listen = flagListen
	}
	if flags.Changed("log-file") {
		cfg.LogFile = flagLogFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSensor returns the relay and a label for the menu bar.
func openSensor(cfg *config.Config) (sensorRelay, string, error) {
	if cfg.Demo {
		port := sensor.NewDemoPort(cfg.Display.MaxRange, cfg.Display.SweepPeriod,
			config.DemoTickInterval, time.Now().UnixNano())
		return relay.New[relay.Port](port), "demo", nil
	}

	r, err := relay.Open(cfg.Serial.Path, relay.OptionsFromConfig(cfg.Serial))
	if err != nil {
		return nil, "", err
	}
	return r, cfg.Serial.Path, nil
}

func runTerminal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := monitoring.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	// the alt screen owns the terminal, so logs go to a file or nowhere
	if cfg.LogFile != "" {
		f, err := monitoring.OpenLogFile(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
	} else {
		monitoring.SetOutput(nil)
	}

	src, label, err := openSensor(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	model := app.New(cfg.Display, src, label, timeutil.RealClock{})
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithFPS(config.TargetFPS),
	)

	// subscribe before the relay starts reading so the boot handshake is seen
	model.StartFeed(p)

	go func() {
		if err := src.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.Send(app.ScanErrorMsg{Err: err})
		}
	}()

	if err := src.RequestHandshake(); err != nil {
		monitoring.Log.WithError(err).Warn("sweep period query failed")
	}

	_, err = p.Run()
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := monitoring.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	if cfg.LogFile != "" {
		f, err := monitoring.OpenLogFile(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
	}

	src, label, err := openSensor(cfg)
	if err != nil {
		return err
	}
	defer src.Close()
	monitoring.Log.WithField("source", label).Info("sensor opened")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	view := web.NewView(cfg.Display, timeutil.RealClock{})
	viewID, viewEvents := src.Subscribe()
	defer src.Unsubscribe(viewID)

	var wg sync.WaitGroup

	// run the monitor routine to manage IO on the sensor port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := src.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Log.WithError(err).Error("failed to monitor sensor")
		}
		monitoring.Log.Info("monitor routine terminated")
		stop()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		view.Run(ctx, viewEvents)
	}()

	if err := src.RequestHandshake(); err != nil {
		monitoring.Log.WithError(err).Warn("sweep period query failed")
	}

	serveErr := web.NewServer(src, view).Start(ctx, cfg.Listen)
	stop()
	wg.Wait()
	monitoring.Log.Info("graceful shutdown complete")
	return serveErr
}
