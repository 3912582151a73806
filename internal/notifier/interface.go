// Package notifier delivers new-breakout alerts to external channels.
package notifier

import (
	"context"

	"github.com/newthinker/breakwatch/internal/core"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Notifier defines the interface for breakout alert delivery
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers a single breakout alert
	Send(ctx context.Context, breakout core.Breakout) error

	// SendBatch delivers several breakout alerts in one message
	SendBatch(ctx context.Context, breakouts []core.Breakout) error
}
