package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/ephetzner/internal/cloud"
	"github.com/jbweber/ephetzner/internal/output"
	"github.com/jbweber/ephetzner/internal/vm"
)

var adoptProject string

var adoptCmd = &cobra.Command{
	Use:   "adopt <server-id-or-name>",
	Short: "Label an existing server as ephemeral",
	Long: `Add the Type=Ephemeral and Project labels to a server that was not
created by ephetzner, so that list and delete can manage it.

Other labels on the server are kept.

Example:
  ephetzner adopt old-build-box --project ci`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := ensureToken(cfg, newPrompter(false)); err != nil {
			return err
		}

		ctx := context.Background()
		server, err := vm.Adopt(ctx, cfg, args[0], adoptProject)
		if err != nil {
			return fmt.Errorf("failed to adopt server: %w", err)
		}

		formatter, err := output.NewFormatter(output.Options{Format: output.FormatTable})
		if err != nil {
			return err
		}
		result, err := formatter.FormatServer(server)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

func init() {
	adoptCmd.Flags().StringVar(&adoptProject, "project", cloud.DefaultProject, "Value of the Project label")
}
