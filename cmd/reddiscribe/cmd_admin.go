package main

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reddiscribe/internal/config"
	"reddiscribe/internal/scheduler"
)

var (
	configForce bool
	serveNow    bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models installed in the local runtime",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		models, err := theApp.Models(ctx)
		if err != nil {
			return humanize(err)
		}
		if len(models) == 0 {
			fmt.Println("no models installed")
			return nil
		}
		out, err := theApp.Renderer().Models(models)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		if err := config.Default().Save(); err != nil {
			return err
		}
		fmt.Println("wrote", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("no config file yet, run 'reddiscribe config init'")
			}
			return err
		}
		return toml.NewEncoder(os.Stdout).Encode(cfg)
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the summary cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := theApp.ClearSummaries()
		if err != nil {
			return err
		}
		fmt.Printf("removed %d cached summaries\n", n)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh daemon",
	Long: `Fetches the configured subreddits on the refresh schedule and prewarms
summaries for the newest posts, so interactive reads hit the cache.
Runs until interrupted.`,
	RunE: runServe,
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	cacheCmd.AddCommand(cacheClearCmd)

	serveCmd.Flags().BoolVar(&serveNow, "now", false, "Run a refresh immediately on start")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := theApp.Config()

	sched, err := scheduler.New(cfg.Refresh.Timezone, logger)
	if err != nil {
		return err
	}
	refresh := func(ctx context.Context) error {
		return theApp.Reader().Prewarm(ctx)
	}
	if err := sched.AddJob("refresh", cfg.Refresh.Schedule, refresh); err != nil {
		return err
	}

	if serveNow {
		if err := sched.RunNow("refresh", refresh); err != nil {
			logger.Warn("initial refresh failed", zap.Error(err))
		}
	}

	sched.Start()

	ctx, cancel := signalContext()
	defer cancel()
	<-ctx.Done()

	logger.Info("shutting down")
	<-sched.Stop().Done()
	return nil
}
