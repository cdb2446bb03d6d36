package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"activity-tracker/internal/app"
	"activity-tracker/internal/config"
)

func newServeCmd(e *env) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cfg, err := e.open()
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = cfg.HTTP.Address
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := a.HTTPServer(addr)
			errCh := make(chan error, 1)
			go func() {
				e.log.Info("listening", slog.String("addr", addr), slog.String("store", string(cfg.Store.Backend)))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}
			e.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default HTTP_ADDRESS)")
	return cmd
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations for the configured SQL backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.opts.LoadConfig()
			if err != nil {
				return err
			}
			switch cfg.Store.Backend {
			case config.BackendMySQL, config.BackendPostgres, config.BackendSQLite:
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "backend %s has no schema to migrate\n", cfg.Store.Backend)
				return nil
			}
			store, err := app.OpenStore(cmd.Context(), cfg.Store.Backend, cfg, e.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date\n", cfg.Store.Backend)
			return store.Close()
		},
	}
}
