package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"job-scanner/kiosk"
	"job-scanner/scanner"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.4"

const kioskLogFile = "job-scanner.log"

func main() {
	var configPath string
	var dbDriver string
	var dbHost string
	var dbPath string
	var hostname string
	var refreshInterval time.Duration
	var headless bool
	var logLevel string
	var logOutput string
	var metricsAddr string
	var noSound bool
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "YAML config file path.")
	flag.StringVar(&dbDriver, "db-driver", scanner.DriverPostgres, "Database driver: postgres or sqlite (overrides config.database.driver).")
	flag.StringVar(&dbHost, "db-host", "", "Postgres host (overrides config.database.host).")
	flag.StringVar(&dbPath, "db-path", "", "SQLite database file (overrides config.database.path).")
	flag.StringVar(&hostname, "hostname", "", "Terminal identifier; defaults to the OS hostname.")
	flag.DurationVar(&refreshInterval, "refresh-interval", scanner.DefaultRefreshInterval, "Location refresh period.")
	flag.BoolVar(&headless, "headless", false, "Read job numbers from stdin, one per line, instead of drawing the kiosk screen.")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error.")
	flag.StringVar(&logOutput, "log-output", "", "Log destination: stderr, stdout or a file path. Kiosk mode defaults to "+kioskLogFile+".")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9105).")
	flag.BoolVar(&noSound, "no-sound", false, "Disable audio feedback.")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit.")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	visited := map[string]bool{}
	flag.CommandLine.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})

	// Base config from file (optional)
	fileCfg := &scanner.Config{}
	if configPath != "" {
		cfg, err := scanner.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(2)
		}
		fileCfg = cfg
	}

	// Merge config + CLI overrides
	cfg := *fileCfg
	if visited["db-driver"] {
		cfg.Database.Driver = dbDriver
	}
	if visited["db-host"] {
		cfg.Database.Host = dbHost
	}
	if visited["db-path"] {
		cfg.Database.Path = dbPath
	}
	if visited["hostname"] {
		cfg.Terminal.Hostname = hostname
	}
	if visited["refresh-interval"] {
		cfg.Terminal.RefreshInterval = refreshInterval
	}
	if visited["headless"] {
		cfg.UI.Headless = headless
	}
	if visited["log-level"] {
		cfg.Log.Level = logLevel
	}
	if visited["log-output"] {
		cfg.Log.Output = logOutput
	}
	if visited["metrics-addr"] {
		cfg.Metrics.ListenAddr = metricsAddr
	}
	if visited["no-sound"] && noSound {
		off := false
		cfg.Sound.Enabled = &off
	}
	// The kiosk screen owns the terminal; logs go to a file unless told otherwise.
	if !cfg.UI.Headless && cfg.Log.Output == "" {
		cfg.Log.Output = kioskLogFile
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	log, logCloser, err := scanner.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(2)
	}
	defer logCloser.Close()

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("terminal stopped")
		fmt.Fprintf(os.Stderr, "job-scanner: %v\n", err)
		_ = logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg scanner.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identity := scanner.NewIdentity(cfg.Terminal)
	hostname, ip := identity.Resolve()
	log = log.With().Str("hostname", hostname).Logger()
	log.Info().
		Str("version", version).
		Str("ip", ip).
		Str("db", scanner.RedactedDSN(cfg.Database)).
		Bool("headless", cfg.UI.Headless).
		Msg("starting terminal")

	store, err := scanner.OpenStore(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	// An unreachable database must not keep the terminal from starting; the
	// session reports it and recovers on the next refresh.
	if err := store.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("database unreachable, schema bootstrap skipped")
	} else if err := store.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("schema bootstrap failed")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := scanner.NewMetrics(reg)
	if cfg.Metrics.ListenAddr != "" {
		srv := startMetricsServer(cfg.Metrics.ListenAddr, reg, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	session := scanner.NewSession(
		hostname,
		scanner.NewLocationResolver(store, log, metrics),
		scanner.NewEventSubmitter(store, identity, log, metrics),
		scanner.NewFeedback(cfg.Sound, log),
		metrics,
		log,
	)

	if cfg.UI.Headless {
		loop := scanner.NewLoop(scanner.LoopConfig{RefreshInterval: cfg.Terminal.RefreshInterval}, session, os.Stdin, os.Stdout, log)
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	model := kiosk.New(ctx, session, kiosk.Options{
		Hostname:        hostname,
		IP:              ip,
		Version:         version,
		RefreshInterval: cfg.Terminal.RefreshInterval,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("kiosk: %w", err)
	}
	log.Info().Msg("terminal stopped")
	return nil
}

func startMetricsServer(addr string, reg *prometheus.Registry, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}
