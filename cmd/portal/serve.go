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

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const appname = "thesis portal"

func newServeCmd(c *cli) *cobra.Command {
	var noBanner bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local session gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !noBanner {
				displayAppname(appname)
			}

			a, err := newApp(c.cfg, afero.NewOsFs())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = log.Logger.WithContext(ctx)

			go func() {
				state, err := a.manager.Bootstrap(ctx)
				if err != nil {
					log.Warn().Err(err).Msg("session bootstrap finished with error")
				}
				log.Info().Str("state", string(state)).Msg("session bootstrap finished")
			}()

			srv := &http.Server{
				Addr:         c.cfg.Addr(),
				Handler:      newRouter(a),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: c.cfg.BackendTimeout() + 5*time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", c.cfg.Addr()).Msg("starting gateway")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err = <-errCh:
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down gateway")
			return shutdown(srv)
		},
	}
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "do not print the startup banner")

	return cmd
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
