package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the backend clock and market session",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.log.Sync()

	status, err := e.client.Status(cmd.Context())
	if err != nil {
		return err
	}

	systemTime := "-"
	if !status.SystemTime.IsZero() {
		systemTime = status.SystemTime.Format(time.RFC3339)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Backend:\t%s\n", e.client.BaseURL())
	fmt.Fprintf(w, "System time:\t%s\n", systemTime)
	fmt.Fprintf(w, "Market state:\t%s\n", status.MarketState)
	fmt.Fprintf(w, "Market open:\t%t\n", status.IsMarketOpen)
	fmt.Fprintf(w, "Trade date:\t%s\n", status.TradeDate)
	return w.Flush()
}
