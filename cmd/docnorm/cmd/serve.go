package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/docnorm/internal/ocr"
	"github.com/MeKo-Tech/docnorm/internal/server"
	"github.com/MeKo-Tech/docnorm/internal/version"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for normalization and extraction",
	Long: `Start an HTTP server exposing the normalizer and the OCR engines.

The server provides the following endpoints:
  POST /v1/normalize - Rectify an uploaded document, returns PNG
  POST /v1/extract   - Normalize and recognize the fields of a layout
  GET  /ws/extract   - Streaming extraction over WebSocket
  GET  /engines      - List configured engines
  GET  /health       - Health check endpoint
  GET  /metrics      - Prometheus metrics

Examples:
  docnorm serve
  docnorm serve --port 8080
  docnorm serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := GetConfig()

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		corsOrigin := cfg.Server.CORSOrigin
		if cmd.Flags().Changed("cors-origin") {
			corsOrigin, _ = cmd.Flags().GetString("cors-origin")
		}

		maxUploadMB := cfg.Server.MaxUploadMB
		if cmd.Flags().Changed("max-upload-size") {
			maxUploadMB, _ = cmd.Flags().GetInt("max-upload-size")
		}

		timeout := cfg.Server.TimeoutSec
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetInt("timeout")
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}

		rateLimitEnabled := cfg.Server.RateLimitEnabled
		if cmd.Flags().Changed("rate-limit-enabled") {
			rateLimitEnabled, _ = cmd.Flags().GetBool("rate-limit-enabled")
		}

		requestsPerMinute := cfg.Server.RequestsPerMinute
		if cmd.Flags().Changed("requests-per-minute") {
			requestsPerMinute, _ = cmd.Flags().GetInt("requests-per-minute")
		}

		maxDataPerDay := cfg.Server.MaxDataPerDayMB
		if cmd.Flags().Changed("max-data-per-day") {
			maxDataPerDay, _ = cmd.Flags().GetInt64("max-data-per-day")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		normalizer, release, err := buildNormalizer(cfg)
		if err != nil {
			return err
		}
		defer release()

		dispatcher, err := buildDispatcher(ctx, cfg, ocr.WithObserver(server.MetricsObserver{}))
		if err != nil {
			return err
		}

		srv, err := server.New(server.Config{
			Host:            host,
			Port:            port,
			CORSOrigin:      corsOrigin,
			MaxUploadMB:     int64(maxUploadMB),
			Timeout:         time.Duration(timeout) * time.Second,
			ShutdownTimeout: time.Duration(shutdownTimeout) * time.Second,
			DefaultEngine:   cfg.OCR.DefaultEngine,
			DefaultLang:     cfg.OCR.DefaultLang,
			RateLimit: server.RateLimitConfig{
				Enabled:           rateLimitEnabled,
				RequestsPerMinute: requestsPerMinute,
				MaxDataPerDayMB:   maxDataPerDay,
			},
			Version: version.Version,
		}, normalizer, dispatcher)
		if err != nil {
			return err
		}

		slog.Info("Starting server",
			"addr", srv.Addr(),
			"engines", dispatcher.Registry().Names(),
			"default_engine", cfg.OCR.DefaultEngine,
			"rate_limit", rateLimitEnabled)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origin")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 120, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable per-client rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "requests per minute per client")
	serveCmd.Flags().Int64("max-data-per-day", 0, "upload quota per client and day in MB (0 = unlimited)")
	rootCmd.AddCommand(serveCmd)
}
