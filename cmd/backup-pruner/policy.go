package main

import (
	"fmt"

	"github.com/shyim/backup-pruner/internal/retention"
	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the effective retention policy",
	Long:  "Parse the configured strategies and print them in order of precedence.",
	Args:  cobra.NoArgs,
	RunE:  runPolicy,
}

func init() {
	policyCmd.Flags().StringArrayVar(&cfg.Policy, "policy", cfg.Policy, "Retention strategy, repeat in order of precedence")
}

func runPolicy(cmd *cobra.Command, args []string) error {
	pipeline, err := retention.ParsePipeline(cfg.Policy)
	if err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Strategies, in order of precedence:")
	for i, name := range pipeline.Names() {
		fmt.Fprintf(out, "  %d. %s\n", i+1, name)
	}

	return nil
}
