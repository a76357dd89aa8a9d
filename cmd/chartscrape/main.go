package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/v0xg/chartscrape/internal/browser"
	"github.com/v0xg/chartscrape/internal/chart"
	"github.com/v0xg/chartscrape/internal/extractor"
	"github.com/v0xg/chartscrape/internal/scrape"
	"github.com/v0xg/chartscrape/internal/server"
	"github.com/v0xg/chartscrape/internal/site"
	"github.com/v0xg/chartscrape/internal/snapshot"
)

var (
	baseURL       string
	snapshotPath  string
	selectorsFile string
	chromeBin     string
	navTimeout    time.Duration
	debugDir      string
	stealthMode   bool
	verbose       bool

	port          string
	maxConcurrent int

	date      string
	timeOfDay string
	city      string
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chartscrape",
		Short: "Fetch birth charts from astro-seek through a headless browser",
		Long: `chartscrape fills in the astro-seek birth chart form in a headless Chrome,
waits for the results page, and extracts the zodiac sign, planet positions
and house placements into JSON.

Example:
  chartscrape fetch --date 1990-05-14 --time 08:30 --city Prague
  chartscrape serve --port 3000`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&baseURL, "url", env("CHARTSCRAPE_BASE_URL", site.BaseURL), "Birth chart form URL")
	pf.StringVar(&snapshotPath, "snapshot", env("CHARTSCRAPE_SNAPSHOT", snapshot.DefaultPath), "File holding the latest chart")
	pf.StringVar(&selectorsFile, "selectors", env("CHARTSCRAPE_SELECTORS", ""), "YAML file overriding DOM selectors")
	pf.StringVar(&chromeBin, "chrome", env("CHARTSCRAPE_CHROME_BIN", ""), "Chrome/Chromium binary (default: auto-detect)")
	pf.DurationVar(&navTimeout, "timeout", envDuration("CHARTSCRAPE_NAV_TIMEOUT", 30*time.Second), "Timeout for each page wait")
	pf.StringVar(&debugDir, "debug-dir", env("CHARTSCRAPE_DEBUG_DIR", ""), "Save a screenshot here when a scrape fails")
	pf.BoolVar(&stealthMode, "stealth", false, "Open the page with stealth evasions")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	rootCmd.AddCommand(newServeCmd(), newFetchCmd(), newExtractCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&port, "port", env("PORT", "3000"), "Listen port")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", envInt("CHARTSCRAPE_MAX_CONCURRENT", 1), "Scrapes allowed in flight")
	return cmd
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch one birth chart and print it",
		Args:  cobra.NoArgs,
		RunE:  runFetch,
	}
	cmd.Flags().StringVar(&date, "date", "", "Birth date, YYYY-MM-DD")
	cmd.Flags().StringVar(&timeOfDay, "time", "", "Birth time, HH:MM")
	cmd.Flags().StringVar(&city, "city", "", "Birth city")
	return cmd
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <results.html>",
		Short: "Extract a chart from a saved results page",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger(true)
	slog.SetDefault(log)

	svc, store, err := newService(log, maxConcurrent)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return server.Serve(ctx, ":"+port, server.Router(svc, store, log), log)
}

func runFetch(cmd *cobra.Command, args []string) error {
	log := newLogger(false)

	input := chart.Input{Date: date, Time: timeOfDay, City: city}
	if err := input.Validate(); err != nil {
		return err
	}

	logVerbose("Starting chartscrape")
	logVerbose("  URL: %s", baseURL)
	logVerbose("  Date: %s  Time: %s  City: %s", date, timeOfDay, city)

	svc, store, err := newService(log, 1)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(os.Stderr, "→ Fetching chart for %s... ", city)
	rec, err := svc.Fetch(ctx, input)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed")
		return fmt.Errorf("scrape failed: %w", err)
	}
	fmt.Fprintln(os.Stderr, "done")

	if missing := rec.Missing(); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "⚠ Not found on page: %v\n", missing)
	}
	fmt.Fprintf(os.Stderr, "✓ Saved to %s\n", store.Path())

	return printRecord(rec)
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := newLogger(false)

	sel, err := loadSelectors()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	rec, err := extractor.FromHTML(f, sel, log)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}
	return printRecord(rec)
}

func newService(log *slog.Logger, concurrent int) (*scrape.Service, *snapshot.Store, error) {
	sel, err := loadSelectors()
	if err != nil {
		return nil, nil, err
	}

	launcher := browser.NewLauncher(browser.Options{
		Bin:     chromeBin,
		Timeout: navTimeout,
		Stealth: stealthMode,
		Logger:  log,
	})
	store := snapshot.New(snapshotPath)

	svc := scrape.New(scrape.BrowserLauncher(launcher), store, scrape.Options{
		URL:           baseURL,
		Selectors:     sel,
		MaxConcurrent: concurrent,
		DebugDir:      debugDir,
		Logger:        log,
	})
	return svc, store, nil
}

func loadSelectors() (site.Selectors, error) {
	if selectorsFile == "" {
		return site.Default(), nil
	}
	logVerbose("  Selectors: %s", selectorsFile)
	return site.Load(selectorsFile)
}

func printRecord(rec chart.Record) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// newLogger builds the process logger; JSON for the server, text otherwise
func newLogger(jsonOutput bool) *slog.Logger {
	var lvl slog.Level
	switch env("LOG_LEVEL", "info") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
