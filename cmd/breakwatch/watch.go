package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/newthinker/breakwatch/internal/app"
	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/render"
	"github.com/newthinker/breakwatch/internal/view"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const clearScreen = "\033[H\033[2J"

var (
	watchSearch    string
	watchDirection string
	watchNoClear   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the board live and redraw it on every update",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchSearch, "search", "s", "", "symbol substring filter")
	watchCmd.Flags().StringVar(&watchDirection, "direction", "ALL", "ALL, BULL (LONG) or BEAR (SHORT)")
	watchCmd.Flags().BoolVar(&watchNoClear, "no-clear", false, "append boards instead of redrawing the screen")
	rootCmd.AddCommand(watchCmd)
}

// buildApp wires the orchestrator with the configured notifiers.
func buildApp(e *env) (*app.App, error) {
	e.cfg.Backend.DefaultExchange = e.selectedExchange()
	a := app.New(e.cfg, e.client, e.log, app.WithMetrics(e.metrics))

	notifiers, err := app.NotifiersFromConfig(e.cfg.Notifiers)
	if err != nil {
		return nil, fmt.Errorf("configuring notifiers: %w", err)
	}
	for _, n := range notifiers {
		if err := a.RegisterNotifier(n); err != nil {
			return nil, fmt.Errorf("registering notifier: %w", err)
		}
	}
	return a, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runWatch(cmd *cobra.Command, args []string) error {
	direction, err := core.ParseDirection(watchDirection)
	if err != nil {
		return err
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.log.Sync()

	a, err := buildApp(e)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	filter := view.Filter{Search: watchSearch, Direction: direction}
	out := cmd.OutOrStdout()
	for {
		select {
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-a.Updates():
			if err := draw(out, a, filter); err != nil {
				e.log.Warn("rendering board", zap.Error(err))
			}
		}
	}
}

func draw(w io.Writer, a *app.App, f view.Filter) error {
	if !watchNoClear && w == os.Stdout {
		fmt.Fprint(w, clearScreen)
	} else {
		fmt.Fprintln(w)
	}
	if err := render.Header(w, a.Report(), f); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return render.Board(w, a.Board(f))
}
