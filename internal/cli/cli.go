package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pfrederiksen/tb-locations/internal/config"
	"github.com/pfrederiksen/tb-locations/internal/logger"
	"github.com/pfrederiksen/tb-locations/internal/scraper"
	"github.com/pfrederiksen/tb-locations/internal/storage"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagOut     string
	flagFormat  string
	flagVerbose bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tb-locations [existing-csv]",
		Short: "Collect Taco Bell store locations for California",
		Long: `Crawls the Taco Bell locator pages for California and writes every store
found to a CSV table. If an existing CSV is given, its rows are merged in
first and newly scraped duplicates are dropped.`,
		Example:      "  tb-locations taco_bell_california_partial.csv --out full.csv",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runCollect,
	}

	cmd.Flags().StringVar(&flagOut, "out", config.DefaultOutput, "Output CSV path")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Summary format: text or json")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging and print metrics")

	return cmd
}

// runCollect is the main command logic
func runCollect(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	cfg, cfgErr := config.FromEnv()

	level, levelErr := logger.ParseLevel(cfg.LogLevel)
	if flagVerbose {
		level, levelErr = logger.LevelDebug, nil
	}
	logger.SetDefault(logger.New(level, os.Stderr))

	// bad settings fall back to defaults rather than stopping the run
	if cfgErr != nil {
		logger.Warn("ignoring invalid environment setting", logger.Fields{"error": cfgErr.Error()})
	}
	if levelErr != nil {
		logger.Warn("ignoring invalid log level", logger.Fields{"error": levelErr.Error()})
	}

	var existing string
	if len(args) == 1 {
		existing = args[0]
	}

	crawler, err := scraper.New(cfg, scraper.NewHTTPFetcher(cfg))
	if err != nil {
		return fmt.Errorf("creating crawler: %w", err)
	}

	started := time.Now()
	harvest := crawler.Collect(cmd.Context())
	logger.RecordTiming("run.crawl", time.Since(started))

	saved, err := storage.Persist(harvest.Records, existing, flagOut, cfg.RegionCode())
	if err != nil {
		return fmt.Errorf("saving table: %w", err)
	}
	logger.Info("saved table", logger.Fields{"path": saved.Path, "rows": saved.Rows})

	result := &OutputResult{
		SavedAt:      time.Now().UTC(),
		Path:         saved.Path,
		Rows:         saved.Rows,
		Scraped:      len(harvest.Records),
		Cities:       harvest.Cities,
		FailedCities: harvest.FailedCities,
		Fallback:     harvest.Fallback,
		Merged:       saved.Merged,
		Existing:     saved.Existing,
	}
	if harvest.IndexErr != nil {
		result.IndexError = harvest.IndexErr.Error()
	}
	if harvest.Fallback {
		result.Scraped = 0
	}
	if flagVerbose {
		result.Metrics = logger.GetMetricsSnapshot()
	}

	if err := WriteOutput(cmd.OutOrStdout(), result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}
