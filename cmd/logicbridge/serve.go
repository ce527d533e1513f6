package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/aretw0/logicbridge/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes named sessions over a JSON API. Prometheus metrics are served on
/metrics, or on a separate listener when metrics.addr is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		app, err := newApp(cmd.Context(), cmd, os.Stderr, reg)
		if err != nil {
			return err
		}
		defer app.Close()

		addr := app.Config.HTTP.Addr
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			addr = ":" + port
		}
		metrics := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

		opts := []httpAdapter.Option{httpAdapter.WithLogger(app.Logger)}
		servers := []*http.Server{}
		if app.Config.Metrics.Addr == "" {
			opts = append(opts, httpAdapter.WithMetrics(metrics))
		} else {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics)
			servers = append(servers, &http.Server{Addr: app.Config.Metrics.Addr, Handler: mux})
		}
		servers = append([]*http.Server{{
			Addr:              addr,
			Handler:           httpAdapter.NewHandler(app.Sessions, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}}, servers...)

		// Channel to listen for errors coming from the listeners.
		serverErrors := make(chan error, len(servers))
		for _, srv := range servers {
			go func() {
				app.Logger.Info("listening", "addr", srv.Addr)
				serverErrors <- srv.ListenAndServe()
			}()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			app.Logger.Info("shutting down")
		}

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Warn("graceful shutdown did not complete", "addr", srv.Addr, "error", err)
				errs = append(errs, srv.Close())
			}
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}
		app.Logger.Info("server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "P", "", "Port to listen on (overrides http.addr)")
}
