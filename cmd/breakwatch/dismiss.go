package main

import (
	"fmt"
	"strings"

	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/hidden"
	"github.com/newthinker/breakwatch/internal/render"
	"github.com/spf13/cobra"
)

var dismissCmd = &cobra.Command{
	Use:   "dismiss SYMBOL",
	Short: "Hide a breakout on the backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runDismiss,
}

var restoreCmd = &cobra.Command{
	Use:   "restore EXCHANGE:SYMBOL | SYMBOL",
	Short: "Restore a dismissed breakout",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

var hiddenCmd = &cobra.Command{
	Use:   "hidden",
	Short: "List dismissed breakouts",
	RunE:  runHidden,
}

func init() {
	rootCmd.AddCommand(dismissCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(hiddenCmd)
}

// keyFor accepts "EXCHANGE:SYMBOL" or a bare symbol on the selected exchange.
// The symbol keeps the case it was typed in, as the backend keys on it.
func keyFor(e *env, arg string) (core.DismissKey, error) {
	arg = strings.TrimSpace(arg)
	if !strings.Contains(arg, ":") {
		arg = strings.ToUpper(e.selectedExchange()) + ":" + arg
	}
	return core.ParseDismissKey(arg)
}

func runDismiss(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.log.Sync()

	k, err := keyFor(e, args[0])
	if err != nil {
		return err
	}
	if err := e.client.Dismiss(cmd.Context(), k.Symbol, k.Exchange); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "dismissed %s\n", k)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.log.Sync()

	k, err := keyFor(e, args[0])
	if err != nil {
		return err
	}
	list := hidden.New(e.client, e.log.Named("hidden"))
	if err := list.Restore(cmd.Context(), k.String()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", k)
	return nil
}

func runHidden(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.log.Sync()

	items, err := hidden.New(e.client, e.log.Named("hidden")).Open(cmd.Context())
	if err != nil {
		return err
	}
	return render.Hidden(cmd.OutOrStdout(), items)
}
