package vm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jbweber/ephetzner/internal/backup"
	"github.com/jbweber/ephetzner/internal/cloud"
	"github.com/jbweber/ephetzner/internal/config"
	"github.com/jbweber/ephetzner/internal/naming"
	"github.com/jbweber/ephetzner/internal/status"
)

// DefaultRemotePath is the directory backed up when none is given.
const DefaultRemotePath = "/var/backups"

var (
	// ErrBackupFailed is returned when a requested backup failed or could
	// not be verified. The server is left intact.
	ErrBackupFailed = errors.New("backup failed, server was not deleted")

	// ErrCancelled is returned when the user declines to continue.
	ErrCancelled = errors.New("operation cancelled")

	// ErrNotEphemeral is returned when the target lacks the Type=Ephemeral label.
	ErrNotEphemeral = errors.New("server is not labeled as ephemeral")
)

// DeleteOptions describes a deletion.
type DeleteOptions struct {
	// Server is the server to delete. When nil, ServerID is looked up.
	Server *cloud.Server
	// ServerID is a numeric ID or a server name.
	ServerID string

	// Backup requests a backup before deletion.
	Backup bool
	// RemotePath is the directory to archive. Empty means DefaultRemotePath.
	RemotePath string
	// Destination is "s3://bucket/prefix" or "bucket/prefix".
	Destination string

	// Confirm, when set, is asked once the server is resolved and before any
	// backup starts. Returning false cancels the deletion.
	Confirm func(server *cloud.Server) (bool, error)
}

// DeleteResult reports how a deletion ended.
type DeleteResult struct {
	Server     *cloud.Server      `json:"server" yaml:"server"`
	Phase      status.Phase       `json:"phase" yaml:"phase"`
	Backup     *backup.Result     `json:"backup,omitempty" yaml:"backup,omitempty"`
	Conditions []status.Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Delete deletes an ephemeral server, backing it up first when requested.
//
// This orchestrates the deletion state machine:
//
//	Idle -> BackupRequested -> BackupInProgress -> BackupVerified -> ProceedToDelete -> Deleted
//	Idle -> ProceedToDelete -> Deleted                    (no backup)
//	BackupInProgress -> BackupFailed -> Aborted           (server kept)
//
// When the backup fails, cannot be verified, or its preconditions are not
// met, DeleteServer is never called and the error wraps ErrBackupFailed.
func Delete(ctx context.Context, cfg *config.AppConfig, opts DeleteOptions) (*DeleteResult, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	var runner backupRunner
	if opts.Backup {
		svc, err := newBackupService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		runner = svc
	}

	return deleteWithDeps(ctx, opts, provider, runner)
}

// deleteWithDeps deletes a server with injected dependencies.
// br may be nil when no backup is requested.
func deleteWithDeps(ctx context.Context, opts DeleteOptions, sp serverProvider, br backupRunner) (*DeleteResult, error) {
	// Step 1: Resolve the server
	server := opts.Server
	if server == nil {
		var err error
		server, err = sp.GetServer(ctx, opts.ServerID)
		if err != nil {
			return nil, err
		}
	}
	if server.Labels[cloud.LabelType] != cloud.TypeEphemeral {
		return nil, fmt.Errorf("%w: %s (%d)", ErrNotEphemeral, server.Name, server.ID)
	}

	d := status.NewDeletion(server.Name)
	result := &DeleteResult{Server: server}
	finish := func() *DeleteResult {
		result.Phase = d.Phase
		result.Conditions = d.Conditions
		return result
	}

	logger := log.With().Str("server", server.Name).Int64("server_id", server.ID).Logger()

	// Step 2: Confirm
	if opts.Confirm != nil {
		ok, err := opts.Confirm(server)
		if err != nil {
			_ = status.TransitionToAborted(d, "ConfirmationFailed", err.Error())
			return finish(), err
		}
		if !ok {
			_ = status.TransitionToAborted(d, "Cancelled", "Cancelled by user")
			return finish(), ErrCancelled
		}
	}

	// Step 3: Backup
	if opts.Backup {
		res, err := runBackup(ctx, d, server, opts, br)
		result.Backup = res
		if err != nil {
			logger.Error().Err(err).Msg("Backup failed, keeping server")
			_ = status.TransitionToAborted(d, "BackupFailed", err.Error())
			return finish(), fmt.Errorf("%w: %w", ErrBackupFailed, err)
		}
	}

	// Step 4: Delete
	if err := status.TransitionToProceedToDelete(d); err != nil {
		return finish(), err
	}
	if !status.MayDelete(d.Phase) {
		return finish(), fmt.Errorf("refusing to delete server %s in phase %s", server.Name, d.Phase)
	}

	logger.Info().Msg("Deleting server")
	if err := sp.DeleteServer(ctx, server.ID); err != nil {
		_ = status.TransitionToAborted(d, "DeleteFailed", err.Error())
		return finish(), err
	}

	if err := status.TransitionToDeleted(d); err != nil {
		return finish(), err
	}

	logger.Info().Msg("Server deleted")
	return finish(), nil
}

// runBackup drives the backup phases. On error d is left in BackupFailed.
func runBackup(ctx context.Context, d *status.Deletion, server *cloud.Server, opts DeleteOptions, br backupRunner) (*backup.Result, error) {
	if err := status.TransitionToBackupRequested(d); err != nil {
		return nil, err
	}

	fail := func(reason string, err error) error {
		_ = status.TransitionToBackupFailed(d, reason, err.Error())
		return err
	}

	if br == nil {
		return nil, fail("NotConfigured", fmt.Errorf("%w: backup service is not configured", backup.ErrConfiguration))
	}

	if err := status.TransitionToBackupInProgress(d); err != nil {
		return nil, err
	}

	remotePath := strings.TrimSpace(opts.RemotePath)
	if remotePath == "" {
		remotePath = DefaultRemotePath
	}

	res, err := br.CreateBackup(ctx, backup.Request{
		Server:            server,
		RemotePath:        remotePath,
		ArchiveName:       naming.ArchiveName(server.Name),
		DestinationPrefix: opts.Destination,
	})
	if err != nil {
		return nil, fail(failureReason(err), err)
	}

	ok, err := br.VerifyBackup(ctx, *res)
	if err != nil {
		return res, fail(failureReason(err), err)
	}
	if !ok {
		return res, fail("VerificationFailed", fmt.Errorf("verification failed: stored copy at %s does not match", res.Location))
	}

	if err := status.TransitionToBackupVerified(d, res.Location); err != nil {
		return res, err
	}
	return res, nil
}

// failureReason maps a backup error to a condition reason.
func failureReason(err error) string {
	switch {
	case errors.Is(err, backup.ErrConfiguration):
		return "ConfigurationError"
	case errors.Is(err, backup.ErrConnection):
		return "ConnectionFailed"
	case errors.Is(err, backup.ErrArchive):
		return "ArchiveFailed"
	case errors.Is(err, backup.ErrStorage):
		return "StorageFailed"
	case errors.Is(err, backup.ErrValidation):
		return "ValidationFailed"
	default:
		return "BackupError"
	}
}
