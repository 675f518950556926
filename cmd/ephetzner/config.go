package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/ephetzner/internal/config"
	"github.com/jbweber/ephetzner/internal/i18n"
)

var (
	configInitPath      string
	configInitOverwrite bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Manage the ephetzner configuration file.

Values in the file are overridden by environment variables:
  HETZNER_API_TOKEN, DUCKDNS_TOKEN, S3_ENDPOINT, S3_ACCESS_KEY,
  S3_SECRET_KEY, EPHETZNER_SSH_USER, EPHETZNER_SSH_KEY_PATH and
  EPHETZNER_SSH_PASSWORD.`,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "Where to write the template (default --config or the default location)")
	configInitCmd.Flags().BoolVar(&configInitOverwrite, "overwrite", false, "Replace an existing file")
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration template",
	Long: `Write a commented configuration template with 0600 permissions.

Example:
  ephetzner config init
  ephetzner config init --path ./ephetzner.yaml --overwrite`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			path = configPath
		}
		if path == "" {
			var err error
			if path, err = config.DefaultPath(); err != nil {
				return err
			}
		}

		if err := config.WriteTemplate(path, configInitOverwrite); err != nil {
			if errors.Is(err, config.ErrExists) {
				return errors.New(i18n.T("Configuration file already exists: %s", path))
			}
			return err
		}

		fmt.Println(i18n.T("Template saved to %s", path))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg.Masked())
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}

		fmt.Printf("# %s\n", i18n.T("Configuration"))
		fmt.Print(string(data))
		return nil
	},
}
