package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vzahanych/weather-data-fetcher/internal/config"
	"github.com/vzahanych/weather-data-fetcher/internal/fetcher"
	"github.com/vzahanych/weather-data-fetcher/internal/service"
	"github.com/vzahanych/weather-data-fetcher/internal/store"
)

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every dataset for every configured location once",
		Long: `Runs a single pass over all configured locations, downloading the forecast,
historical and yearly daily datasets and writing each one to {location}_{dataset}.json
in the data directory. Failed items are reported and skipped; the command still succeeds.`,
		Args: cobra.NoArgs,
		RunE: runFetch,
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()

	runner, fs, err := newRunner(cfg)
	if err != nil {
		return err
	}

	log.Info("Fetching weather data",
		zap.String("data_dir", fs.Dir()),
		zap.Int("locations", len(cfg.Locations)))

	report := runner.Run(cmd.Context())
	printReport(cmd.OutOrStdout(), report)

	if !report.OK() {
		log.Warn("Some datasets were not updated",
			zap.String("run_id", report.RunID),
			zap.Int("failed", report.Failed()))
	}

	return nil
}

// newRunner wires the Open-Meteo service and file store shared by fetch and serve.
func newRunner(cfg *config.Config) (*fetcher.Runner, *store.FileStore, error) {
	fs, err := store.NewFileStore(cfg.Fetch.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := fs.Ensure(); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	svc := service.NewOpenMeteoServiceWithConfig(cfg.Fetch, log, tele)
	return fetcher.NewRunner(svc, fs, cfg.WeatherLocations(), log, tele), fs, nil
}

func printReport(w io.Writer, report *fetcher.Report) {
	for _, res := range report.Results {
		switch res.Status {
		case fetcher.StatusOK:
			fmt.Fprintf(w, "✓ %s %s -> %s\n", res.Location, res.Dataset, res.File)
		case fetcher.StatusSkipped, fetcher.StatusDisabled:
			fmt.Fprintf(w, "- %s %s %s\n", res.Location, res.Dataset, res.Status)
		default:
			fmt.Fprintf(w, "✗ %s %s: %s\n", res.Location, res.Dataset, res.Error)
		}
	}
	fmt.Fprintf(w, "%d succeeded, %d failed in %s\n",
		report.Succeeded(), report.Failed(), report.Duration().Round(time.Millisecond))
}
