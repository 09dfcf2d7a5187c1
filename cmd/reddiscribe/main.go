// Command reddiscribe reads, summarizes and drafts Reddit posts with
// local language models.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reddiscribe/internal/app"
	"reddiscribe/internal/config"
	"reddiscribe/internal/logging"
)

// version is stamped by the release build.
var version = "dev"

var (
	// Global flags
	debug    bool
	mockMode bool

	logger *zap.Logger
	theApp *app.App
)

var rootCmd = &cobra.Command{
	Use:   "reddiscribe",
	Short: "Read, summarize and draft Reddit posts with local language models",
	Long: `reddiscribe is a terminal Reddit companion for non-English speakers.

It fetches subreddit listings and comment threads from the public JSON
endpoints, summarizes posts into your language with a local Ollama
model (or Anthropic's API), and turns native-language drafts into
Reddit-ready English through a two-stage translate-then-polish
pipeline.

Summaries are cached in a local SQLite database, so a post is only
summarized once per locale.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if theApp != nil {
			_ = theApp.Close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// skipSetup reports whether a command runs without the composed app.
// The config and version commands must keep working even when the
// config file or the model runtime is broken.
func skipSetup(cmd *cobra.Command) bool {
	if cmd == rootCmd {
		return true
	}
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "config", "version", "help", "completion":
			return true
		}
	}
	return false
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("reddiscribe", version)
	},
}

func init() {
	// Assigned here rather than in the rootCmd literal: the closure calls
	// skipSetup, which refers back to rootCmd, and that is an
	// initialization cycle when written as part of the literal.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if skipSetup(cmd) {
			return nil
		}

		cfg, err := config.LoadOrInit()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if mockMode {
			cfg.Reddit.MockMode = true
		}

		level := cfg.App.LogLevel
		if debug {
			level = "debug"
		}
		logger, err = logging.New(level)
		if err != nil {
			return err
		}

		theApp, err = app.New(cfg, logger)
		return err
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&mockMode, "mock", false, "Serve canned Reddit data instead of fetching")

	rootCmd.AddCommand(postsCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(refineCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// humanize converts an operational error to its localized message at
// the command boundary. Cancellation is not an error.
func humanize(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return errors.New(theApp.Humanize(err))
}
