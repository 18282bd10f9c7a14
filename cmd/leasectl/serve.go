package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/lease-engine/api"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API over the SQLite store, with the periodic tariff
continuity auditor in the background. SIGINT or SIGTERM stops accepting
connections and waits up to 30s for active requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			handler := api.NewHandler(store, a.log)
			router := api.NewRouter(handler, a.cfg.CORS.Origins)

			auditor := api.NewContinuityAuditor(store, a.log)
			auditor.Interval = a.cfg.Audit.Interval
			auditor.Enabled = a.cfg.Audit.Enabled
			auditor.Start()
			defer auditor.Stop()

			server := &http.Server{
				Addr:         a.cfg.Addr(),
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", server.Addr).Str("db", a.cfg.DB.Path).Msg("server starting")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errc:
				return err
			case <-quit:
			}

			a.log.Info().Msg("shutting down server")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return err
			}
			a.log.Info().Msg("server stopped")
			return nil
		},
	}
}
