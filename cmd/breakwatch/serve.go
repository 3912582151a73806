package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newthinker/breakwatch/internal/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Follow the board and expose it on the local HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.log.Sync()

	a, err := buildApp(e)
	if err != nil {
		return err
	}

	server, err := api.NewServer(api.Config{
		Host:        e.cfg.Server.Host,
		Port:        e.cfg.Server.Port,
		MetricsPath: e.cfg.Metrics.Path,
	}, api.Dependencies{App: a, Metrics: e.metrics}, e.log.Named("api"))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	e.log.Info("starting breakwatch server",
		zap.String("addr", server.Addr()),
		zap.String("backend", e.cfg.Backend.BaseURL),
	)

	ctx, stop := signalContext()
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
