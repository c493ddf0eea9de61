package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"smorty/internal/config"
	"smorty/internal/irstore"
	"smorty/internal/server"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve indexed event data over HTTP using the generated endpoint IRs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := config.OpenDB(cfg)
			if err != nil {
				return err
			}

			endpoints, err := irstore.New(baseDir()).ListEndpoints()
			if err != nil {
				return err
			}

			engine := server.New(db, endpoints, server.Options{}, log)
			httpServer := &http.Server{Addr: addr, Handler: engine}

			ctx, cancel := rootContext()
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpServer.ListenAndServe()
			}()
			log.Infow("serving", "addr", addr, "endpoints", len(endpoints))

			select {
			case err := <-errCh:
				if err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			case <-ctx.Done():
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				return httpServer.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
