package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Conceptual-Machines/dawscript-go/config"
	"github.com/Conceptual-Machines/dawscript-go/gadget"
	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/Conceptual-Machines/dawscript-go/host/bitwig"
	"github.com/Conceptual-Machines/dawscript-go/host/cli"
	"github.com/Conceptual-Machines/dawscript-go/host/live"
	"github.com/Conceptual-Machines/dawscript-go/host/reaper"
	"github.com/Conceptual-Machines/dawscript-go/loader"
	"github.com/Conceptual-Machines/dawscript-go/metrics"
	"github.com/Conceptual-Machines/dawscript-go/web"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var (
	configPath  string
	logLevel    string
	bitwigPort  int
	webEnabled  bool
	gadgetsPath string
)

var rootCmd = &cobra.Command{
	Use:   "dawscript",
	Short: "Run a controller script against the detected DAW",
	Long: `dawscript detects the host it runs in (REAPER, Ableton Live, Bitwig Studio)
and falls back to a standalone mode that only reads MIDI inputs. The built-in
controller prints the project tracks and incoming MIDI, runs gadgets from a
YAML file and can expose the host to browser UIs over a WebSocket bridge.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "dawscript.yaml", "Path to the YAML config file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Flags().IntVar(&bitwigPort, "bitwig-port", 0, "Port of the Bitwig extension bridge")
	rootCmd.Flags().BoolVar(&webEnabled, "web", false, "Serve the WebSocket bridge and htdocs")
	rootCmd.Flags().StringVar(&gadgetsPath, "gadgets", "", "Gadget YAML file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Could not load .env file: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("bitwig-port") {
		cfg.Bitwig.Port = bitwigPort
	}
	if flags.Changed("web") {
		cfg.Web.Enabled = webEnabled
	}
	if flags.Changed("gadgets") {
		cfg.GadgetsFile = gadgetsPath
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
		}); err != nil {
			logger.WithError(err).Warn("sentry disabled")
		}
		defer sentry.Flush(2 * time.Second)
	}
	m := metrics.NewSentryMetrics()

	controller, err := newController(cfg, logger, m)
	if err != nil {
		return err
	}

	var drv drivers.Driver
	if d, err := rtmididrv.New(); err != nil {
		logger.WithError(err).Warn("MIDI input unavailable")
	} else {
		drv = d
		defer d.Close()
	}

	fallback := cli.NewAdapter(drv, cfg.CLITick, logger)
	ld := loader.New(fallback, m, logger,
		loader.Func{AdapterName: "reaper", ProbeFunc: reaper.Probe, RunFunc: reaper.Run},
		loader.Func{AdapterName: "live", ProbeFunc: live.Probe, RunFunc: live.Run},
		bitwig.NewAdapter(cfg.Bitwig.Addr(), cfg.Bitwig.Tick, logger),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = ld.Run(ctx, controller,
		host.WithEchoWindow(cfg.EchoWindow),
		host.WithMetrics(m),
		host.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	// REAPER returns after the first tick and keeps running on its defer loop.
	<-ctx.Done()
	return nil
}

func newController(cfg *config.Config, logger *logrus.Logger, m *metrics.SentryMetrics) (any, error) {
	c := &console{logger: logger, inputs: cfg.MIDIInputs}
	if cfg.GadgetsFile != "" {
		g, err := gadget.Load(cfg.GadgetsFile)
		if err != nil {
			return nil, err
		}
		logger.Infof("loaded %d gadgets from %s", len(g.Gadgets), cfg.GadgetsFile)
		c.gadgets = gadget.NewController(g, logger)
	}

	if !cfg.Web.Enabled {
		return c, nil
	}
	srv := web.NewServer(web.Options{
		WSPort:   cfg.Web.WSPort,
		HTTPPort: cfg.Web.HTTPPort,
		Htdocs:   cfg.Web.Htdocs,
	}, m, logger)
	return &web.Controller{Inner: c, Server: srv, ServiceName: "dawscript"}, nil
}
