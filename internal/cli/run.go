package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/shaiso/mqbridge/internal/bridge"
	"github.com/shaiso/mqbridge/internal/config"
	"github.com/shaiso/mqbridge/internal/telemetry"
)

// shutdownTimeout — сколько ждём остановки HTTP-сервера.
const shutdownTimeout = 5 * time.Second

// NewRunCmd создаёт команду запуска бриджа.
func NewRunCmd(configFn func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start consuming the process queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Инициализируем structured logging
			logger := telemetry.SetupLogger()
			logger.Info("starting mqbridge")

			cfg, err := config.Load(configFn())
			if err != nil {
				return err
			}

			// graceful shutdown
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

			b, err := bridge.New(cfg, bridge.Options{
				Logger:  logger,
				Metrics: metrics,
			})
			if err != nil {
				return err
			}
			defer b.Close()

			// HTTP mux: /healthz + /metrics
			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
				Handler:           newOpsHandler(b.Healthy, prometheus.DefaultGatherer),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				logger.Info("listening", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
					cancel()
				}
			}()

			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer shutdownCancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("http server shutdown", "error", err)
				}
			}()

			if err := b.Initialize(ctx); err != nil {
				return fmt.Errorf("initialize bridge: %w", err)
			}

			if err := b.Run(ctx); err != nil {
				return err
			}

			logger.Info("mqbridge stopped")
			return nil
		},
	}
}
