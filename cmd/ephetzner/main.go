package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jbweber/ephetzner/internal/config"
	"github.com/jbweber/ephetzner/internal/i18n"
	"github.com/jbweber/ephetzner/internal/logger"
	"github.com/jbweber/ephetzner/internal/prompt"
	"github.com/jbweber/ephetzner/internal/vm"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Global flags
var (
	configPath string
	logLevel   string
	langFlag   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ephetzner",
	Short: "ephetzner - Ephemeral Hetzner Cloud servers",
	Long: `ephetzner creates short-lived Hetzner Cloud servers and deletes them
again, optionally archiving a directory to S3-compatible storage first.

Servers created by ephetzner carry the labels Type=Ephemeral and
Project=<project>; only those servers are listed and deleted.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logLevel)

		if langFlag != "" {
			i18n.SetLanguage(i18n.Normalize(langFlag))
		} else {
			i18n.SetLanguage(i18n.Detect())
		}

		vm.Version = version
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default $EPHETZNER_CONFIG_PATH or ~/.config/ephetzner/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default $EPHETZNER_LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&langFlag, "lang", "", "Interface language: en or pl (default detected from the environment)")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(adoptCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
}

// loadConfig loads the config file and environment overrides.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newPrompter returns a prompter that only reads when stdin is a terminal
// and nonInteractive is unset.
func newPrompter(nonInteractive bool) *prompt.Prompter {
	return prompt.New(os.Stdin, os.Stdout, !nonInteractive && prompt.IsTerminal(os.Stdin))
}

// ensureToken asks for the Hetzner token when neither the file nor the
// environment provides one.
func ensureToken(cfg *config.AppConfig, p *prompt.Prompter) error {
	if cfg.Secrets.HetznerAPIToken != "" {
		return nil
	}
	if !p.Interactive() {
		return vm.ErrMissingToken
	}

	token, err := p.Secret(i18n.T("Hetzner API token"))
	if err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return vm.ErrMissingToken
	}
	cfg.Secrets.HetznerAPIToken = token

	save, err := p.Confirm(i18n.T("Save the token to the configuration file?"), true)
	if err != nil {
		log.Warn().Err(err).Msg("Token not saved")
		return nil
	}
	if save {
		if err := saveToken(token); err != nil {
			log.Warn().Err(err).Msg("Token not saved")
		}
	}
	return nil
}

// saveToken stores token in the config file without copying environment
// overrides into it.
func saveToken(token string) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	fileCfg, err := config.LoadFromFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		fileCfg = &config.AppConfig{}
	}

	fileCfg.Secrets.HetznerAPIToken = token
	if err := config.Save(fileCfg, path); err != nil {
		return err
	}

	log.Info().Str("path", path).Msg("Token saved")
	return nil
}
