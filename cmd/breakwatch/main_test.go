package main

import (
	"testing"

	"github.com/newthinker/breakwatch/internal/app"
	"github.com/newthinker/breakwatch/internal/config"
	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/view"
)

func TestKeyFor(t *testing.T) {
	e := &env{cfg: config.Defaults()}

	k, err := keyFor(e, "reliance")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.String() != "NSE:reliance" {
		t.Errorf("expected NSE:reliance, got %s", k)
	}

	k, err = keyFor(e, "bse:tcs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.String() != "bse:tcs" {
		t.Errorf("expected bse:tcs, got %s", k)
	}

	if _, err := keyFor(e, "bse:"); err == nil {
		t.Error("expected error for empty symbol")
	}
}

func TestApplySort(t *testing.T) {
	a := app.New(config.Defaults(), nil, nil)

	if err := applySort(a, "1d=pct:asc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bucket, _ := a.Board(view.Filter{}).Bucket("1d")
	if bucket.Sort == nil || bucket.Sort.Key != core.SortByPct || bucket.Sort.Order != core.SortAsc {
		t.Errorf("expected breakout_pct asc, got %+v", bucket.Sort)
	}

	if err := applySort(a, "52w=price"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bucket, _ = a.Board(view.Filter{}).Bucket("52w")
	if bucket.Sort == nil || bucket.Sort.Order != core.SortDesc {
		t.Errorf("expected close_price desc, got %+v", bucket.Sort)
	}

	for _, bad := range []string{"1d", "1d=volume", "5y=pct"} {
		if err := applySort(a, bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
