// Package render prints the dashboard as plain text tables.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/newthinker/breakwatch/internal/app"
	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/view"
)

const timeLayout = "15:04:05"

// Board writes every bucket of b, including empty ones, in board order.
func Board(w io.Writer, b view.Board) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for i, bucket := range b.Buckets {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "== %s (%d)%s ==\n", bucket.Title, len(bucket.Rows), sortLabel(bucket.Sort))
		if len(bucket.Rows) == 0 {
			fmt.Fprintln(tw, "  no breakouts")
			continue
		}
		fmt.Fprintln(tw, "SYMBOL\tCLOSE\tLEVEL\tPCT\tVOLUME\tCONF\tDETECTED")
		for _, row := range bucket.Rows {
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%s\t%s\t%s\t%s\n",
				row.Symbol,
				row.ClosePrice,
				row.BreakoutLevel,
				Pct(row.BreakoutPct),
				Volume(row.Volume),
				confirmed(row.VolumeConfirmation),
				detected(row),
			)
		}
	}
	return tw.Flush()
}

// Header writes the one-line dashboard summary shown above the board.
func Header(w io.Writer, r app.Report, f view.Filter) error {
	market := core.MarketUnknown
	clock := "-"
	trade := "-"
	if r.Status != nil {
		market = r.Status.MarketState
		if !r.Status.SystemTime.IsZero() {
			clock = r.Status.SystemTime.Format(timeLayout)
		}
		if r.Status.TradeDate != "" {
			trade = r.Status.TradeDate
		}
	}

	var parts []string
	parts = append(parts,
		"exchange="+r.Exchange,
		"market="+string(market),
		"trade_date="+trade,
		"server_time="+clock,
		"feed="+string(r.FeedState),
		fmt.Sprintf("breakouts=%d", r.Count),
	)
	if f.Search != "" {
		parts = append(parts, "search="+strings.ToUpper(f.Search))
	}
	if f.Direction != "" && f.Direction != core.DirectionAll {
		parts = append(parts, "direction="+string(f.Direction))
	}
	if r.Loading {
		parts = append(parts, "loading")
	}

	_, err := fmt.Fprintln(w, strings.Join(parts, "  "))
	return err
}

// Hidden writes the dismissed identifiers, one per line.
func Hidden(w io.Writer, items []string) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "no dismissed breakouts")
		return err
	}
	for _, item := range items {
		if _, err := fmt.Fprintln(w, item); err != nil {
			return err
		}
	}
	return nil
}

// Pct formats a signed percentage with an explicit sign.
func Pct(p float64) string {
	return fmt.Sprintf("%+.2f%%", p)
}

// Volume abbreviates large volumes (1.2K, 3.4M, 5.6B).
func Volume(v int64) string {
	f := float64(v)
	switch {
	case v >= 1_000_000_000 || v <= -1_000_000_000:
		return fmt.Sprintf("%.1fB", f/1e9)
	case v >= 1_000_000 || v <= -1_000_000:
		return fmt.Sprintf("%.1fM", f/1e6)
	case v >= 1_000 || v <= -1_000:
		return fmt.Sprintf("%.1fK", f/1e3)
	default:
		return fmt.Sprintf("%d", v)
	}
}

func sortLabel(d *view.Directive) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf(" [%s %s]", d.Key, d.Order)
}

func confirmed(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func detected(b core.Breakout) string {
	if b.DetectedAt.IsZero() {
		return "-"
	}
	return b.DetectedAt.Format(timeLayout)
}
