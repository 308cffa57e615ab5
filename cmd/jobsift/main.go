package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/jobsift/api"
	"github.com/use-agent/jobsift/config"
	"github.com/use-agent/jobsift/engine"
	"github.com/use-agent/jobsift/pipeline"
	"github.com/use-agent/jobsift/store"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	serve := flag.Bool("serve", false, "run the HTTP API server instead of a one-shot scrape")
	flag.StringVar(&cfg.Search.URL, "url", cfg.Search.URL, "search-results page to scrape")
	flag.IntVar(&cfg.Search.MaxDetails, "max", cfg.Search.MaxDetails, "how many jobs get a detail-page fetch")
	flag.BoolVar(&cfg.Search.ListingOnly, "listing-only", cfg.Search.ListingOnly, "skip detail enrichment")
	flag.StringVar(&cfg.Search.ExportPath, "export", cfg.Search.ExportPath, "write results to this file")
	flag.StringVar(&cfg.Search.ExportFormat, "format", cfg.Search.ExportFormat, "export format: json or markdown")
	flag.StringVar(&cfg.Engine.ProxyURL, "proxy", cfg.Engine.ProxyURL, "proxy URL (http, https, socks5, socks5h)")
	flag.BoolVar(&cfg.Engine.EnableBrowser, "browser", cfg.Engine.EnableBrowser, "escalate to headless Chrome when plain HTTP is rejected")
	flag.StringVar(&cfg.Store.Path, "db", cfg.Store.Path, "sqlite file tracking jobs seen across runs")
	flag.Parse()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	// ── 3. Build the fetch engine ───────────────────────────────────
	eng, cleanup, err := buildEngine(cfg.Engine)
	if err != nil {
		slog.Error("failed to initialise fetch engine", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if *serve {
		runServer(eng, cfg)
		return
	}
	os.Exit(runOnce(eng, cfg))
}

// buildEngine assembles the engine chain: the TLS-fingerprinted HTTP
// engine alone, or a dispatcher that escalates to headless Chrome.
func buildEngine(cfg config.EngineConfig) (engine.Engine, func(), error) {
	httpEngine, err := engine.NewHTTPEngine(cfg.ProxyURL, cfg.HTTPTimeout)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.EnableBrowser {
		return httpEngine, func() {}, nil
	}

	browserEngine := engine.NewBrowserEngine(engine.BrowserConfig{
		Proxy:     cfg.ProxyURL,
		NoSandbox: cfg.NoSandbox,
		Bin:       cfg.BrowserBin,
		Timeout:   cfg.BrowserTimeout,
	})
	memory := engine.NewDomainMemory(cfg.MemoryTTL)
	dispatcher := engine.NewDispatcher([]engine.Engine{httpEngine, browserEngine}, memory)
	slog.Info("browser escalation enabled", "memory_ttl", cfg.MemoryTTL)
	return dispatcher, browserEngine.Close, nil
}

// runOnce executes a single scrape and returns the process exit code.
func runOnce(eng engine.Engine, cfg *config.Config) int {
	if cfg.Search.URL == "" {
		fmt.Fprintln(os.Stderr, "jobsift: no search URL (use -url or JOBSIFT_SEARCH_URL)")
		flag.Usage()
		return 2
	}

	p := pipeline.New(eng, pipeline.Options{
		SearchURL:    cfg.Search.URL,
		MaxDetails:   cfg.Search.MaxDetails,
		ListingOnly:  cfg.Search.ListingOnly,
		DetailRPS:    cfg.Search.DetailRPS,
		ExportPath:   cfg.Search.ExportPath,
		ExportFormat: cfg.Search.ExportFormat,
	})

	if cfg.Store.Path != "" {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			slog.Error("failed to open seen-jobs store", "path", cfg.Store.Path, "error", err)
			return 1
		}
		defer db.Close()
		p.SetStore(db)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := p.Run(ctx)
	if err != nil {
		slog.Error("scrape failed", "error", err, "state", string(p.State()))
		return 1
	}
	if len(result.Jobs) == 0 {
		// A page that parsed to zero cards is worth a failing exit code:
		// either the search matched nothing or the site served a layout
		// we cannot read. The diagnostics say which.
		fmt.Fprintln(os.Stderr, "jobsift: no jobs found")
		return 1
	}

	slog.Info("scrape complete",
		"jobs", len(result.Jobs),
		"total_available", result.TotalCount,
		"diagnostics", len(result.Diagnostics),
		"listing_ms", result.Timing.ListingMs,
		"detail_ms", result.Timing.DetailMs,
	)
	return 0
}

// runServer starts the HTTP API and blocks until a shutdown signal.
func runServer(eng engine.Engine, cfg *config.Config) {
	startTime := time.Now()
	router := api.NewRouter(eng, cfg, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("jobsift stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
