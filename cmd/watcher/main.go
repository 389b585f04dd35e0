// Package main provides the watcher daemon that ingests cybersecurity news,
// dispatches alerts and sends periodic digests.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cybernews/internal/app"
	"cybernews/internal/logger"
	"cybernews/internal/pipeline"
)

func main() {
	// 1. Define Command-Line Flags
	// ---------------------------
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration")
	once := flag.Bool("once", false, "Run the pipeline once and exit")
	digestOnExit := flag.Bool("digest", false, "With -once, send a digest after the run")
	interval := flag.Duration("interval", 30*time.Minute, "Time between ingestion runs")
	digestInterval := flag.Duration("digest-interval", 24*time.Hour, "Time between digests (0 disables)")
	metricsAddr := flag.String("metrics-addr", "", "Override metrics.listen_addr")
	logLevel := flag.String("log-level", "", "Override logging.level")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Wire Collaborators
	// ---------------------
	a, err := app.Open(ctx, *configPath)
	if err != nil {
		logger.NewLogger("info").Error("Failed to start watcher", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	log := a.Log
	if *logLevel != "" {
		log.SetLevel(*logLevel)
	}

	// Library code logging through slog lands in the same handler.
	slog.SetDefault(log.Slog())

	log.Info("Starting cybernews watcher", "config", a.Config.String(), "sink", a.Sink.Name())

	p, err := pipeline.Build(a.Config, a.Engine, log)
	if err != nil {
		log.Error("Invalid source configuration", "error", err)
		a.Close()
		os.Exit(1)
	}

	addr := a.Config.Metrics.ListenAddr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}

	if addr != "" {
		srv := serveMetrics(addr, log)
		defer shutdown(srv)
	}

	// 3. Run
	// ------
	if *once {
		report := p.Run(ctx)
		printReport(report)

		if *digestOnExit {
			sendDigest(ctx, a, log)
		}

		if len(report.FailedSources()) == len(report.Sources) {
			a.Close()
			os.Exit(1)
		}

		return
	}

	loop(ctx, p, a, log, *interval, *digestInterval)
	log.Info("Watcher stopped")
}

func loop(ctx context.Context, p *pipeline.Pipeline, a *app.App, log *logger.Logger, interval, digestInterval time.Duration) {
	runTicker := time.NewTicker(interval)
	defer runTicker.Stop()

	var digestC <-chan time.Time

	if digestInterval > 0 {
		digestTicker := time.NewTicker(digestInterval)
		defer digestTicker.Stop()

		digestC = digestTicker.C
	}

	p.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-runTicker.C:
			p.Run(ctx)
		case <-digestC:
			sendDigest(ctx, a, log)
		}
	}
}

func sendDigest(ctx context.Context, a *app.App, log *logger.Logger) {
	d, err := a.Digest(ctx)
	if err != nil {
		log.Error("Digest failed", "error", err)

		return
	}

	log.Info("Digest complete", "items", len(d.Items), "total", d.Total)
}

func serveMetrics(addr string, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", "error", err)
		}
	}()

	log.Info("Serving metrics", "addr", addr)

	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
}

func printReport(r pipeline.RunReport) {
	fmt.Println("\n------------------------------------------------")
	fmt.Printf("📊 Run Report\n")
	fmt.Println("------------------------------------------------")
	fmt.Printf("Articles: %d normalized, %d unique, %d classified, %d irrelevant\n",
		r.Normalized, r.Unique, r.Classified, r.Irrelevant)
	fmt.Printf("Alerts: %d dispatched, %d suppressed, %d failed\n", r.Dispatched, r.Suppressed, r.Failed)
	fmt.Printf("Fetch: %s\n", r.Fetch.String())

	for _, s := range r.Sources {
		status := "ok"
		if s.Failed {
			status = "FAILED"
		}

		fmt.Printf("  - %s: %s (%d articles, %d degraded, %d failed urls)\n",
			s.SourceID, status, s.Articles, len(s.Degraded), len(s.FailedURLs))
	}

	if len(r.Errors) > 0 {
		fmt.Printf("⚠️  Errors encountered: %d\n", len(r.Errors))

		for _, e := range r.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("Total Duration: %v\n", r.Finished.Sub(r.Started).Round(time.Millisecond))
	fmt.Println("------------------------------------------------")
}
