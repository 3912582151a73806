// internal/api/handler/api/dashboard.go
package api

import (
	"context"

	"github.com/newthinker/breakwatch/internal/app"
	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/hidden"
	"github.com/newthinker/breakwatch/internal/view"
)

// Dashboard defines the interface needed from app.App.
type Dashboard interface {
	Exchange() string
	SelectExchange(ctx context.Context, exchange string) error
	Board(f view.Filter) view.Board
	ToggleSort(bucket string, key core.SortKey) (view.Directive, error)
	Report() app.Report
	Refetch(ctx context.Context) error
	Dismiss(ctx context.Context, symbol, exchange string) error
	Hidden() *hidden.List
}
