package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jbweber/ephetzner/internal/cloud"
	"github.com/jbweber/ephetzner/internal/i18n"
	"github.com/jbweber/ephetzner/internal/output"
	"github.com/jbweber/ephetzner/internal/prompt"
	"github.com/jbweber/ephetzner/internal/vm"
)

// delete flags
var (
	deleteServerID       string
	deleteSkipBackup     bool
	deleteRemotePath     string
	deleteDestination    string
	deleteNonInteractive bool
	deleteYes            bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an ephemeral server, backing it up first",
	Long: `Delete a server labeled Type=Ephemeral.

Unless --skip-backup is given, a directory on the server is archived,
uploaded to S3-compatible storage and verified by checksum before the
server is deleted. If the backup fails for any reason the server is kept
and the command exits with a non-zero status.

Examples:
  ephetzner delete
  ephetzner delete --server-id lab --destination s3://backups/lab --yes
  ephetzner delete --server-id 12345 --skip-backup --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p := newPrompter(deleteNonInteractive)
		if err := ensureToken(cfg, p); err != nil {
			return err
		}

		// Step 1: Pick the server
		servers, err := vm.List(ctx, cfg)
		if err != nil {
			return err
		}
		if len(servers) == 0 {
			fmt.Println(i18n.T("No servers labeled as Ephemeral"))
			return nil
		}

		server, err := chooseServer(servers, deleteServerID, p)
		if err != nil {
			return err
		}

		// Step 2: Backup settings
		opts := vm.DeleteOptions{Server: server, Backup: !deleteSkipBackup}

		if opts.Backup && !cfg.HasStorageCredentials() {
			log.Warn().Msg("S3 credentials are incomplete, skipping backup")
			fmt.Println(i18n.T("S3 configuration incomplete – skipping backup."))
			opts.Backup = false
		}
		if opts.Backup && !cmd.Flags().Changed("skip-backup") {
			if opts.Backup, err = p.Confirm(i18n.T("Perform S3 backup?"), true); err != nil {
				return err
			}
		}

		if opts.Backup {
			opts.RemotePath = deleteRemotePath
			if !cmd.Flags().Changed("remote-path") {
				if opts.RemotePath, err = p.Ask(i18n.T("Provide remote backup path"), deleteRemotePath); err != nil {
					return err
				}
			}

			opts.Destination = deleteDestination
			if opts.Destination == "" {
				if opts.Destination, err = p.AskRequired(i18n.T("Provide S3 destination prefix (e.g. s3://bucket/path)")); err != nil {
					return err
				}
			}
		}

		// Step 3: Confirm and run
		opts.Confirm = func(s *cloud.Server) (bool, error) {
			fmt.Print(output.RenderSummary(i18n.T("Deletion confirmation"), deleteSummary(s, opts.Backup, time.Now())))

			ok := deleteYes
			if !ok {
				var err error
				if ok, err = p.Confirm(i18n.T("Continue?"), false); err != nil {
					return false, err
				}
			}
			if ok && opts.Backup {
				fmt.Println(i18n.T("Starting backup..."))
			}
			return ok, nil
		}

		result, err := vm.Delete(ctx, cfg, opts)
		switch {
		case errors.Is(err, vm.ErrCancelled):
			fmt.Println(i18n.T("Operation cancelled"))
			return nil
		case errors.Is(err, vm.ErrBackupFailed):
			return fmt.Errorf("%s: %w", i18n.T("Backup failed"), err)
		case err != nil:
			return err
		}

		if result.Backup != nil {
			fmt.Println(i18n.T("Backup finished: %s", result.Backup.Location))
		}
		fmt.Println(i18n.T("Server %s (%s) deleted successfully.", server.Name, strconv.FormatInt(server.ID, 10)))
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteServerID, "server-id", "", "ID or name of the server to delete")
	deleteCmd.Flags().BoolVar(&deleteSkipBackup, "skip-backup", false, "Delete without a backup")
	deleteCmd.Flags().StringVar(&deleteRemotePath, "remote-path", vm.DefaultRemotePath, "Directory on the server to back up")
	deleteCmd.Flags().StringVar(&deleteDestination, "destination", "", "S3 destination prefix, e.g. s3://bucket/path")
	deleteCmd.Flags().BoolVar(&deleteNonInteractive, "non-interactive", false, "Never prompt; fail when a required value is missing")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation")
}

// chooseServer matches want against ID or name, or asks when want is empty.
func chooseServer(servers []*cloud.Server, want string, p *prompt.Prompter) (*cloud.Server, error) {
	if want != "" {
		for _, s := range servers {
			if s.Name == want || strconv.FormatInt(s.ID, 10) == want {
				return s, nil
			}
		}
		return nil, errors.New(i18n.T("Server %s not found", want))
	}

	options := make([]string, len(servers))
	for i, s := range servers {
		ipv4 := s.IPv4
		if ipv4 == "" {
			ipv4 = i18n.T("no IPv4")
		}
		options[i] = fmt.Sprintf("%s (%d, %s)", s.Name, s.ID, ipv4)
	}

	idx, err := p.Select(i18n.T("Select server to delete"), options)
	if err != nil {
		return nil, err
	}
	return servers[idx], nil
}

func deleteSummary(s *cloud.Server, backup bool, now time.Time) []output.Row {
	name := s.Name
	if name == "" {
		name = i18n.T("unnamed")
	}

	ipv4 := s.IPv4
	if ipv4 == "" {
		ipv4 = i18n.T("no IPv4")
	}

	uptime := "-"
	if age := s.Age(now); age > 0 {
		uptime = i18n.T("%.1f h", age.Hours())
	}

	backupValue := i18n.T("No")
	if backup {
		backupValue = i18n.T("Yes")
	}

	return []output.Row{
		{Key: i18n.T("Server"), Value: fmt.Sprintf("%s (%d)", name, s.ID)},
		{Key: i18n.T("Type"), Value: s.ServerType},
		{Key: i18n.T("IPv4 address"), Value: ipv4},
		{Key: i18n.T("Uptime"), Value: uptime},
		{Key: i18n.T("Backup"), Value: backupValue},
	}
}
