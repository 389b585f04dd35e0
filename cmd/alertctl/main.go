// Package main provides the operator tool for the alert engine: test
// notifications, on-demand digests and replay of failed alerts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cybernews/internal/app"
	"cybernews/internal/formatter"
	"cybernews/internal/logger"
	"cybernews/internal/models"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration")
	test := flag.Bool("test", false, "Send a test alert through the configured sinks")
	digest := flag.Bool("digest", false, "Send a digest of the saved medium and high articles")
	preview := flag.Bool("preview", false, "With -digest, print the digest without sending it")
	replay := flag.Bool("replay", false, "Re-send alerts whose delivery failed")
	list := flag.Bool("list", false, "List alerts waiting for replay")
	historySize := flag.Bool("history-size", false, "Print the number of dispatched dedup keys")

	flag.Parse()

	if !*test && !*digest && !*replay && !*list && !*historySize {
		fmt.Println("Error: choose one of -test, -digest, -replay, -list, -history-size")
		fmt.Println("Usage: alertctl -config <path> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx := context.Background()

	a, err := app.Open(ctx, *configPath)
	if err != nil {
		logger.NewLogger("info").Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	code := 0

	switch {
	case *test:
		code = handleTest(ctx, a)
	case *digest:
		code = handleDigest(ctx, a, *preview)
	case *replay:
		code = handleReplay(ctx, a)
	case *list:
		code = handleList(a)
	case *historySize:
		code = handleHistorySize(ctx, a)
	}

	if code != 0 {
		a.Close()
		os.Exit(code)
	}
}

func handleTest(ctx context.Context, a *app.App) int {
	if err := a.Engine.SendTest(ctx); err != nil {
		a.Log.Error("Test alert failed", "error", err)

		return 1
	}

	fmt.Printf("✓ Test alert sent via %s\n", a.Sink.Name())

	return 0
}

func handleDigest(ctx context.Context, a *app.App, preview bool) int {
	if preview {
		d, err := a.DigestSaved(ctx, true)
		if err != nil {
			a.Log.Error("Failed to build digest", "error", err)

			return 1
		}

		fmt.Println(formatter.DigestTable(d))
		fmt.Printf("\n%d of %d items shown (since %s)\n", len(d.Items), d.Total, sinceLabel(d))

		return 0
	}

	d, err := a.DigestSaved(ctx, false)
	if err != nil {
		a.Log.Error("Digest failed", "error", err)

		return 1
	}

	if len(d.Items) == 0 {
		fmt.Printf("No new medium or high severity articles since %s\n", sinceLabel(d))

		return 0
	}

	fmt.Println(formatter.DigestTable(d))
	fmt.Printf("\n✓ Digest sent: %d items\n", d.Total)

	return 0
}

func sinceLabel(d models.Digest) string {
	if d.Since.IsZero() {
		return "the beginning"
	}

	return d.Since.Format(time.RFC3339)
}

func handleReplay(ctx context.Context, a *app.App) int {
	report, err := a.Engine.Replay(ctx)

	fmt.Printf("Replay: delivered=%d skipped=%d failed=%d\n", report.Delivered, report.Skipped, report.Failed)

	if err != nil {
		a.Log.Error("Replay incomplete", "error", err)

		return 1
	}

	return 0
}

func handleList(a *app.App) int {
	records, err := a.Engine.Pending()
	if err != nil {
		a.Log.Error("Failed to list pending alerts", "error", err)

		return 1
	}

	if len(records) == 0 {
		fmt.Println("No pending alerts")

		return 0
	}

	fmt.Println(formatter.AlertTable(records))
	fmt.Printf("\n%d pending (%s)\n", len(records), severitySummary(records))

	return 0
}

func handleHistorySize(ctx context.Context, a *app.App) int {
	n, err := a.History.Size(ctx)
	if err != nil {
		a.Log.Error("Failed to read history", "error", err)

		return 1
	}

	fmt.Printf("%d dispatched alerts in %s history\n", n, a.Config.Storage.History)

	return 0
}

func severitySummary(records []models.AlertRecord) string {
	counts := make(map[models.Severity]int)
	for _, r := range records {
		counts[r.Severity]++
	}

	return fmt.Sprintf("high=%d medium=%d low=%d",
		counts[models.SeverityHigh], counts[models.SeverityMedium], counts[models.SeverityLow])
}
