// Command livespell is the main entry point for the livespell server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/livespell/internal/app"
	"github.com/MrWong99/livespell/internal/config"
	"github.com/MrWong99/livespell/internal/observe"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file (empty: built-in defaults)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	// The watcher callback needs the app, which is built from the watcher's
	// first load. Callbacks only fire once Run polls.
	var application *app.App
	cfg, watcher, err := loadConfig(*configPath, func(d config.ConfigDiff) {
		application.ApplyConfig(d)
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "livespell: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "livespell: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(app.SlogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	slog.Info("livespell starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
		SampleRatio:    cfg.Server.TraceSampleRatio,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg.Providers.LLM)

	providers, err := app.BuildProviders(cfg, reg, metrics)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(os.Stdout, cfg)

	// ── Application ───────────────────────────────────────────────────────────
	opts := []app.Option{
		app.WithMetrics(metrics),
		app.WithMetricsHandler(promhttp.Handler()),
		app.WithLogLevel(&level),
		app.WithCloser(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return otelShutdown(ctx)
		}),
	}

	if watcher != nil {
		opts = append(opts, app.WithWatcher(watcher))
	}

	application, err = app.New(ctx, cfg, providers, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready; press Ctrl+C to shut down")

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// loadConfig returns the built-in defaults when path is empty. Otherwise it
// loads path through a [config.Watcher] that reports later edits to onChange.
func loadConfig(path string, onChange func(config.ConfigDiff)) (*config.Config, *config.Watcher, error) {
	if path == "" {
		cfg := &config.Config{}
		cfg.ApplyDefaults()
		if err := config.Validate(cfg); err != nil {
			return nil, nil, err
		}
		return cfg, nil, nil
	}
	w, err := config.NewWatcher(path, onChange)
	if err != nil {
		return nil, nil, err
	}
	return w.Current(), w, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "╔═══════════════════════════════════════╗")
	fmt.Fprintln(w, "║        livespell startup summary      ║")
	fmt.Fprintln(w, "╠═══════════════════════════════════════╣")
	printProvider(w, "Analysis", cfg.Providers.Analysis.Name, cfg.Providers.Analysis.Model)
	for i, fb := range cfg.Providers.Fallback {
		printProvider(w, fmt.Sprintf("Fallback %d", i+1), fb.Name, fb.Model)
	}
	printProvider(w, "Files", cfg.Providers.Files.Name, "")
	printProvider(w, "Language", cfg.Providers.Language.Name, "")
	if cfg.Providers.Analysis.Name == "llm" {
		printProvider(w, "LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	}
	fmt.Fprintf(w, "║  Min length      : %-19d ║\n", cfg.Session.MinLength)
	fmt.Fprintf(w, "║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	fmt.Fprintln(w, "╚═══════════════════════════════════════╝")
}

func printProvider(w io.Writer, kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Fprintf(w, "║  %-12s    : %-19s ║\n", kind, value)
}
