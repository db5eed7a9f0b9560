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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"habitkit/internal/bootstrap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, health and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				if addr == "" {
					addr = app.Config.HTTP.Addr
				}
				return serve(ctx, app, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func serve(ctx context.Context, app *bootstrap.App, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Logger.Info("http listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := app.Challenges.Watch(ctx); err != nil {
			app.Logger.Warn("catalog watch stopped", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := app.RelayRemoteChanges(ctx); err != nil {
			app.Logger.Warn("redis subscription ended", "error", err)
		}
		return nil
	})
	return g.Wait()
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the in-progress list whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				if app.Redis == nil {
					return errors.New("watch needs redis.addr in the config")
				}
				if app.Config.UserID == "" {
					return errors.New("watch needs a user: set user_id, HABITKIT_USER_ID or --user")
				}
				changes, unsubscribe := app.SubscribeChanges()
				defer unsubscribe()

				g, ctx := errgroup.WithContext(ctx)
				g.Go(func() error { return app.RelayRemoteChanges(ctx) })
				g.Go(func() error {
					out := cmd.OutOrStdout()
					if err := printInProgress(ctx, out, app); err != nil {
						return err
					}
					for {
						select {
						case <-ctx.Done():
							return nil
						case <-changes:
							_, _ = fmt.Fprintf(out, "\n-- %s\n", time.Now().Format(time.TimeOnly))
							if err := printInProgress(ctx, out, app); err != nil {
								app.Logger.Warn("list in progress", "error", err)
							}
						}
					}
				})
				return g.Wait()
			})
		},
	}
}
