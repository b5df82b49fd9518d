package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jtbaccus/datahub-project/internal/api"
	"github.com/jtbaccus/datahub-project/internal/cache/redis"
	httptransport "github.com/jtbaccus/datahub-project/internal/transport/http"
)

var serveCmd = LeafCommand{
	Use:   "serve",
	Short: "Run the dashboard HTTP server",
	StrFlags: []StringFlag{
		{Name: "address", Usage: "listen address (overrides HTTP_ADDRESS)"},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		address, _ := cmd.Flags().GetString("address")
		if address == "" {
			address = rt.cfg.HTTPAddress
		}

		var cache api.RollupCache
		if rt.cfg.RedisAddr != "" {
			adapter, err := redis.New(rt.cfg.RedisAddr, rt.cfg.RollupCacheTTL)
			if err != nil {
				return err
			}
			defer func() { _ = adapter.Close() }()
			cache = adapter
			rt.logger.Info("rollup cache enabled", "addr", rt.cfg.RedisAddr)
		}

		handler := api.NewHandler(rt.repo, rt.aggregator, cache)
		mux := http.NewServeMux()
		handler.RegisterRoutes(mux)
		mux.Handle("/metrics", promhttp.Handler())

		server := httptransport.NewServer(httptransport.ServerConfig{Address: address}, mux)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			rt.logger.Info("dashboard listening", "address", address)
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			rt.logger.Info("dashboard stopped")
		}
		return nil
	},
}.Build()
