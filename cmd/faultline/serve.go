package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/faultline"
	"github.com/aretw0/faultline/internal/config"
	"github.com/aretw0/faultline/internal/presentation/tui"
	faulthttp "github.com/aretw0/faultline/pkg/adapters/http"
	"github.com/aretw0/faultline/pkg/fault"
	"github.com/aretw0/faultline/pkg/flags"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fault-injecting HTTP server",
	Long: `Starts an HTTP server whose requests flow through the fault pipeline
(TimeoutError, then DelaySimulation) before reaching the broker handler or,
with --upstream, a reverse proxy. The flag admin API is served under /admin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}
		upstream, _ := cmd.Flags().GetString("upstream")
		quiet, _ := cmd.Flags().GetBool("quiet")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		handler, closer, err := buildServer(ctx, cfg, logger, upstream)
		if err != nil {
			return err
		}
		defer closer()

		if !quiet {
			tui.PrintBanner(os.Stderr, faultline.Version)
		}
		return runServer(ctx, cfg.Listen, handler, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Address to listen on; overrides config")
	serveCmd.Flags().String("upstream", "", "Proxy requests to this URL instead of the built-in broker handler")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}

// buildServer wires the flag store, the cached provider, the fault pipeline
// and the admin API into one handler.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, upstream string) (http.Handler, func() error, error) {
	store, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	provider := flags.NewCached(store, cfg.CacheTTL,
		flags.WithLogger(logger),
		flags.WithFetchTimeout(time.Second),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := fault.NewMetrics(reg)

	pipeline := faultline.NewPipeline(provider, cfg,
		fault.WithLogger(logger),
		fault.WithMetrics(metrics),
	)

	terminal := fault.HandlerFunc(broker)
	if upstream != "" {
		target, err := url.Parse(upstream)
		if err != nil {
			closer()
			return nil, nil, fmt.Errorf("invalid upstream %q: %w", upstream, err)
		}
		terminal = fault.Wrap(httputil.NewSingleHostReverseProxy(target))
		logger.Info("Proxying to upstream", "url", target.String())
	}

	admin, err := faulthttp.NewHandler(store,
		faulthttp.WithLogger(logger),
		faulthttp.WithChangeHook(provider.Invalidate),
		faulthttp.WithMetrics(reg),
	)
	if err != nil {
		closer()
		return nil, nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Mount("/admin", http.StripPrefix("/admin", admin))
	r.Handle("/*", pipeline.Handler(terminal))

	return r, closer, nil
}

// broker is the built-in terminal handler: it acknowledges every request.
func broker(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]string{
		"status":     "accepted",
		"request_id": fault.RequestID(r),
		"path":       r.URL.Path,
	})
}

func runServer(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Starting faultline server", "address", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Start shutdown")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown did not complete", "timeout", 5*time.Second, "error", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("faultline server stopped gracefully")
		return nil
	}
}
