package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/terrain-cli/internal/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the terrain analysis HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg.Server.Port = resolvePort(servePort, cfg.Server.Port)
		env, err := initEnv(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		srv := api.New(env.Analyzer, env.Store, api.Options{
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
			CORSOrigins:    cfg.Server.CORSOrigins,
			Requests:       env.Metrics,
			Metrics:        env.Metrics.Handler(),
			Ping:           env.Store.Ping,
		})
		return startServer(ctx, srv.Handler(), cfg.Server.Port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// resolvePort prefers the flag value over the configured port.
func resolvePort(flagPort, configPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return configPort
}

// startServer serves h until ctx is cancelled, then shuts down gracefully.
func startServer(ctx context.Context, h http.Handler, port int) error {
	srv := api.NewHTTPServer(fmt.Sprintf(":%d", port), h)

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- eris.Wrap(err, "server listen")
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return <-errCh
}
