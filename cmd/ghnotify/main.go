package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/ghnotify/pkg/config"
	"github.com/Sternrassler/ghnotify/pkg/logging"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	v := config.New()
	var configPath string

	cmd := &cobra.Command{
		Use:           "ghnotify",
		Short:         "GitHub notifications block for i3bar-compatible status bars",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/ghnotify/config.yaml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-pretty", false, "Human-readable logs on stderr")
	flags.Duration("interval", 0, "Poll interval (e.g. 30s)")
	flags.String("format", "", "Display format, e.g. \"{total} ({mention})\"")
	flags.String("api-server", "", "GitHub API base URL")
	flags.String("metrics-addr", "", "Listen address for /metrics, /health and /status")

	bind := map[string]string{
		"log.level":    "log-level",
		"log.pretty":   "log-pretty",
		"interval":     "interval",
		"format":       "format",
		"api_server":   "api-server",
		"metrics.addr": "metrics-addr",
	}
	for key, flag := range bind {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	load := func() (*config.Config, error) {
		cfg, err := config.Load(v, configPath)
		if err != nil {
			return nil, err
		}
		logging.Setup(cfg.LoggingConfig())
		return cfg, nil
	}

	cmd.AddCommand(runCmd(load))
	cmd.AddCommand(onceCmd(load))
	cmd.AddCommand(versionCmd())

	return cmd
}

type loader func() (*config.Config, error)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
