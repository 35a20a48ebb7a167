package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vzahanych/weather-data-fetcher/internal/config"
	"github.com/vzahanych/weather-data-fetcher/internal/server"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the data directory and trigger fetch runs over HTTP",
		Long: `Starts the HTTP server that exposes the fetched JSON files under /data, per-location
dataset status and monthly averages under /api, and POST /api/fetch to run a fetch pass.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()

	runner, fs, err := newRunner(cfg)
	if err != nil {
		return err
	}

	log.Info("Starting weather data server",
		zap.String("config_path", configPath),
		zap.String("data_dir", fs.Dir()),
		zap.Bool("telemetry_enabled", cfg.Telemetry.Enabled),
		zap.Int("server_port", cfg.Server.Port))

	srv := server.NewServer(cfg.Server, runner, fs, log, tele)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Error("Server error", zap.Error(err))
		}
		return err
	case <-cmd.Context().Done():
		log.Info("Shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Error during server shutdown", zap.Error(err))
			return err
		}

		log.Info("Server shutdown complete")
		return nil
	}
}
