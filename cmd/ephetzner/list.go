package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/ephetzner/internal/output"
	"github.com/jbweber/ephetzner/internal/vm"
)

// Output flags
var (
	outputFormat string
	noHeaders    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ephemeral servers",
	Long: `List all servers labeled Type=Ephemeral.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   YAML documents
  -o json   JSON array`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate output format
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := ensureToken(cfg, newPrompter(false)); err != nil {
			return err
		}

		ctx := context.Background()
		servers, err := vm.List(ctx, cfg)
		if err != nil {
			return err
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		result, err := formatter.FormatServerList(servers)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, yaml, json")
	listCmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Omit table headers")
}
