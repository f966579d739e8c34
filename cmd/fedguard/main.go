package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oarkflow/log"

	"github.com/oarkflow/fedguard"
)

func main() {
	var (
		configDir = flag.String("config", "configs", "directory of simulation config JSON files")
		port      = flag.String("port", "3000", "HTTP listen port")
		dbPath    = flag.String("db", "", "SQLite path for round history persistence (empty disables)")
		scenario  = flag.String("scenario", "", "YAML scenario to run before serving")
		interval  = flag.Duration("interval", 0, "auto-advance interval (0 disables the timer)")
		verbose   = flag.Bool("verbose", false, "enable per-round debug logging")
	)
	flag.Parse()

	logger := log.Logger{
		Level:      log.InfoLevel,
		TimeFormat: "15:04:05",
		Writer:     &log.ConsoleWriter{ColorOutput: true},
	}
	if *verbose {
		logger.Level = log.DebugLevel
	}

	if err := run(*configDir, *port, *dbPath, *scenario, *interval, &logger); err != nil {
		logger.Error().Err(err).Msg("fedguard exited")
		os.Exit(1)
	}
}

func run(configDir, port, dbPath, scenarioPath string, interval time.Duration, logger *log.Logger) error {
	cfg, err := fedguard.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	metrics := fedguard.NewInMemoryMetricsCollector()
	ledger := fedguard.NewRoundLedger(0)

	var history fedguard.HistoryStore
	if dbPath != "" {
		store, err := fedguard.NewSQLiteHistoryStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()
		history = store
	}

	opts := []fedguard.EngineOption{
		fedguard.WithMetrics(metrics),
		fedguard.WithLedger(ledger),
		fedguard.WithLogger(logger),
	}
	if history != nil {
		opts = append(opts, fedguard.WithHistoryStore(history))
	}

	engine, err := fedguard.NewEngine(cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	if scenarioPath != "" {
		sc, err := fedguard.LoadScenario(scenarioPath)
		if err != nil {
			return err
		}
		results, err := fedguard.RunScenario(engine, sc)
		if err != nil {
			return err
		}
		for _, r := range results {
			logger.Info().
				Str("step", r.Step).
				Int("round", r.Round).
				Float64("accuracy", r.Accuracy).
				Float64("asr", r.ASR).
				Int("rejected", r.Rejected).
				Int("maliciousAccepted", r.MaliciousAccepted).
				Msg("scenario step complete")
		}
	}

	watcher, err := fedguard.WatchConfig(engine, configDir)
	if err != nil {
		logger.Warn().Err(err).Str("dir", configDir).Msg("config hot-reload disabled")
	}

	app := fedguard.NewServer(engine, fedguard.ServerOptions{
		Metrics:             metrics,
		Ledger:              ledger,
		History:             history,
		MaxAdvancePerMinute: 600,
	})

	stopTicker := make(chan struct{})
	if interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					engine.Advance()
				case <-stopTicker:
					return
				}
			}
		}()
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		logger.Info().Msg("shutting down gracefully")
		close(stopTicker)
		if watcher != nil {
			if err := watcher.Stop(); err != nil {
				logger.Error().Err(err).Msg("error stopping config watcher")
			}
		}
		if err := app.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("error shutting down server")
		}
	}()

	logger.Info().Str("port", port).Str("config", configDir).Msg("fedguard listening")
	return app.Listen(":" + port)
}
