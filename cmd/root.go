package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lukman83/matcha-stock/config"
	"github.com/lukman83/matcha-stock/internal/app"
	"github.com/lukman83/matcha-stock/internal/logger"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "matcha-stock",
	Short:         "Matcha Stock - restock scraper and notifier",
	Long:          "Checks matcha shops for availability, records stock history and tells subscribers when a product is back in stock.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.Root())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("database-url", "", "Database URL (postgres://... or sqlite://path)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: json, console")
	rootCmd.PersistentFlags().String("delay-profile", "", "Delay profile: cautious, normal, aggressive, fixed")
	rootCmd.PersistentFlags().Bool("respect-robots", true, "Respect robots.txt rules")
	rootCmd.PersistentFlags().String("proxy-file", "", "Path to proxy list file")
}

// initConfig layers defaults, the config file, the environment and flags,
// later sources winning.
func initConfig(root *cobra.Command) error {
	cfg = config.DefaultConfig()

	flags := root.PersistentFlags()
	if path, _ := flags.GetString("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return err
		}
	}
	cfg.LoadFromEnv()

	if v, _ := flags.GetString("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	if v, _ := flags.GetString("delay-profile"); v != "" {
		cfg.DelayProfile = v
	}
	if flags.Changed("respect-robots") {
		cfg.RespectRobots, _ = flags.GetBool("respect-robots")
	}
	if v, _ := flags.GetString("proxy-file"); v != "" {
		cfg.ProxyFile = v
	}
	return cfg.Validate()
}

// newApp builds the logger and the app for one command run. The returned
// cleanup closes the store and flushes the logger.
func newApp() (*app.App, func(), error) {
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := a.Close(); err != nil {
			log.Warnw("close store", "error", err)
		}
		_ = log.Sync()
	}
	return a, cleanup, nil
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
