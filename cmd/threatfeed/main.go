package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"threatfeed/internal/config"
	"threatfeed/internal/logging"
)

var version = "dev"

var (
	configPath string
)

var rootCmd = &cobra.Command{
	Use:     "threatfeed",
	Short:   "Security news collection and enrichment pipeline",
	Version: version,
	Long: `threatfeed collects security news from configured sources, categorizes
and enriches each article with an AI analysis, and stores the results
in a local SQLite database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file (default ~/.threatfeed/config.json)")
	rootCmd.AddCommand(runCmd, sweepCmd, statsCmd)
}

// loadConfig resolves the config path, loads it, and initializes logging.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.LogLevel)
	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
