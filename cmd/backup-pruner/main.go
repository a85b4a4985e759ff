package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shyim/backup-pruner/internal/api"
	"github.com/shyim/backup-pruner/internal/config"
	"github.com/spf13/cobra"

	// Import storage backends for self-registration
	_ "github.com/shyim/backup-pruner/internal/storages"

	// Import notifiers for self-registration
	_ "github.com/shyim/backup-pruner/internal/notifiers"
)

var (
	cfg        = config.New()
	configPath string
	socketPath string

	rootCmd = &cobra.Command{
		Use:           "backup-pruner",
		Short:         "Retention policy engine for backup files",
		Long:          "Groups backup files, decides which ones to keep according to a retention policy and deletes the rest.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				f, err := config.ReadFile(configPath)
				if err != nil {
					return err
				}
				cfg.ApplyFile(f, cmd.Flags().Changed)
			}
			return setupLogging()
		},
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, pretty)")
	rootCmd.PersistentFlags().StringArrayVar(&cfg.StorageArgs, "storage", []string{}, "Storage pool configuration (format: pool.option=value)")
	rootCmd.PersistentFlags().StringVar(&cfg.DefaultStorage, "default-storage", "", "Default storage pool name")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", api.DefaultSocketPath, "Unix socket path for the daemon API")
	rootCmd.PersistentFlags().StringArrayVar(&cfg.NotifyArgs, "notify", []string{}, "Notification provider configuration (format: provider.option=value)")

	// Add commands
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
