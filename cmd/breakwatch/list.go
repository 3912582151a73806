package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/breakwatch/internal/app"
	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/feed"
	"github.com/newthinker/breakwatch/internal/render"
	"github.com/newthinker/breakwatch/internal/view"
	"github.com/spf13/cobra"
)

var (
	listSearch    string
	listDirection string
	listSorts     []string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch the board once and print it",
	Example: `  breakwatch list --exchange BSE --direction bull
  breakwatch list --sort 1d=pct --sort 52w=price:asc`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "symbol substring filter")
	listCmd.Flags().StringVar(&listDirection, "direction", "ALL", "ALL, BULL (LONG) or BEAR (SHORT)")
	listCmd.Flags().StringArrayVar(&listSorts, "sort", nil, "bucket=key[:asc] sort directive, repeatable")
	rootCmd.AddCommand(listCmd)
}

// idleSync never connects; the caller refetches explicitly.
type idleSync struct{}

func (idleSync) Start(context.Context) error { return nil }
func (idleSync) Stop()                       {}
func (idleSync) State() feed.State           { return feed.StateDisconnected }

func runList(cmd *cobra.Command, args []string) error {
	direction, err := core.ParseDirection(listDirection)
	if err != nil {
		return err
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.log.Sync()

	a := app.New(e.cfg, e.client, e.log, app.WithSyncFactory(func(string, feed.RefetchFunc) app.Synchronizer {
		return idleSync{}
	}))

	ctx := cmd.Context()
	if err := a.SelectExchange(ctx, e.selectedExchange()); err != nil {
		return err
	}
	if err := a.Refetch(ctx); err != nil {
		return err
	}
	for _, s := range listSorts {
		if err := applySort(a, s); err != nil {
			return err
		}
	}

	filter := view.Filter{Search: listSearch, Direction: direction}
	out := cmd.OutOrStdout()
	if err := render.Header(out, a.Report(), filter); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return render.Board(out, a.Board(filter))
}

// applySort parses "bucket=key[:asc]" and toggles the bucket accordingly.
func applySort(a *app.App, directive string) error {
	bucket, rest, ok := strings.Cut(directive, "=")
	if !ok {
		return fmt.Errorf("sort %q: expected bucket=key[:asc]", directive)
	}
	keyName, order, _ := strings.Cut(rest, ":")
	key, err := core.ParseSortKey(keyName)
	if err != nil {
		return err
	}

	d, err := a.ToggleSort(bucket, key)
	if err != nil {
		return err
	}
	if strings.EqualFold(order, string(core.SortAsc)) && d.Order != core.SortAsc {
		_, err = a.ToggleSort(bucket, key)
	}
	return err
}
