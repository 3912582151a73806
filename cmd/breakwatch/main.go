package main

import (
	"fmt"
	"os"

	"github.com/newthinker/breakwatch/internal/client"
	"github.com/newthinker/breakwatch/internal/config"
	"github.com/newthinker/breakwatch/internal/logger"
	"github.com/newthinker/breakwatch/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	debug    bool
	exchange string
)

var rootCmd = &cobra.Command{
	Use:   "breakwatch",
	Short: "breakwatch - terminal dashboard for a breakout engine",
	Long: `breakwatch follows a breakout engine backend over HTTP and its push
channel, groups breakouts by horizon, and supports the dismiss/restore workflow.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVarP(&exchange, "exchange", "e", "", "exchange to show (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every command needs: validated config, logger and client.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Registry
	client  *client.Client
}

func setup() (*env, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	log, err := logger.New(debug, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
	}

	e := &env{cfg: cfg, log: log}
	if cfg.Metrics.Enabled {
		e.metrics = metrics.NewRegistry()
	}
	e.client = client.New(cfg.Backend.BaseURL, cfg.Backend.Timeout,
		client.WithLogger(log.Named("client")),
		client.WithMetrics(e.metrics),
	)
	return e, nil
}

// selectedExchange resolves the --exchange flag against the configured default.
func (e *env) selectedExchange() string {
	if exchange != "" {
		return exchange
	}
	return e.cfg.Backend.DefaultExchange
}
