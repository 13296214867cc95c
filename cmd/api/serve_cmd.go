package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"saga-orchestrator/presenters"
)

const shutdownTimeout = 10 * time.Second

type serveCmd struct {
	port string
}

func (c *serveCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the management API, the event consumer and the background jobs",
	}
	cmd.Flags().StringVar(&c.port, "port", "", "listen port, overrides config")
	return cmd
}

func (c *serveCmd) run(cli *sagaCLI, cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.App(ctx)
	if err != nil {
		return err
	}
	port := c.port
	if port == "" {
		port = app.Config.Port
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           presenters.NewSagaHTTP(app).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err = app.EnsureTopics(ctx); err != nil {
		app.Logger.Warn("ensure_topics_err", zap.Error(err))
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lis, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return err
		}
		app.Logger.Info("starting_http_server", zap.String("port", port))
		if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		app.Logger.Warn("shutting_down_http_server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return app.ConsumeEvents(gCtx)
	})
	if app.Config.Job {
		g.Go(func() error {
			return app.RunTimeoutJob(gCtx)
		})
	}
	g.Go(func() error {
		return app.RunPurgeJob(gCtx)
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
