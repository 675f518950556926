// Package backup archives a directory on a remote server, uploads the
// archive to object storage and verifies the stored copy.
//
// CreateBackup always removes the remote archive and closes the remote
// session before returning, whether or not the backup succeeded.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jbweber/ephetzner/internal/cloud"
	"github.com/jbweber/ephetzner/internal/naming"
	"github.com/jbweber/ephetzner/internal/objectstore"
	"github.com/jbweber/ephetzner/internal/remote"
)

const (
	// cleanupTimeout bounds the remote delete issued during cleanup.
	cleanupTimeout = 30 * time.Second

	// Object metadata keys written with every archive.
	metadataBackupID = "ephetzner-backup-id"
	metadataChecksum = "ephetzner-sha256"
	metadataServer   = "ephetzner-server"
)

// Request describes one backup attempt.
type Request struct {
	Server *cloud.Server

	// RemotePath is the directory archived on the server.
	RemotePath string

	// ArchiveName is the file name of the archive, e.g. "srv-1-backup.tar.gz".
	ArchiveName string

	// DestinationPrefix is "s3://bucket/prefix" or "bucket/prefix".
	DestinationPrefix string
}

// Result describes an uploaded archive.
type Result struct {
	BackupID  string `json:"backupId" yaml:"backupId"`
	Location  string `json:"location" yaml:"location"`
	Checksum  string `json:"checksum" yaml:"checksum"`
	SizeBytes int64  `json:"sizeBytes" yaml:"sizeBytes"`
}

// Options tune a Service.
type Options struct {
	// Connection supplies credentials not found in server labels.
	Connection ConnectionDefaults

	// Timeout bounds connection setup and the archive command.
	// Zero means remote.DefaultTimeout.
	Timeout time.Duration

	// StagingDir is the parent of the local staging directory.
	// Empty means the system temp dir.
	StagingDir string
}

// Service runs backups. It is safe to reuse across attempts.
type Service struct {
	dialer remote.Dialer
	store  objectstore.Store
	opts   Options
}

// NewService creates a Service. A nil store means object storage is not
// configured; CreateBackup then fails with ErrConfiguration.
func NewService(dialer remote.Dialer, store objectstore.Store, opts Options) *Service {
	if opts.Timeout == 0 {
		opts.Timeout = remote.DefaultTimeout
	}
	return &Service{dialer: dialer, store: store, opts: opts}
}

// CreateBackup archives req.RemotePath on the server and uploads it.
func (s *Service) CreateBackup(ctx context.Context, req Request) (*Result, error) {
	// Step 1: Validate preconditions before any network call
	if s.store == nil {
		return nil, fmt.Errorf("%w: object storage credentials are not configured", ErrConfiguration)
	}
	if req.Server == nil || strings.TrimSpace(req.Server.IPv4) == "" {
		return nil, fmt.Errorf("%w: server has no IPv4 address", ErrConfiguration)
	}
	if strings.TrimSpace(req.ArchiveName) == "" {
		return nil, fmt.Errorf("%w: archive name is required", ErrConfiguration)
	}
	bucket, keyPrefix, err := ParseDestinationPrefix(req.DestinationPrefix)
	if err != nil {
		return nil, err
	}

	backupID := uuid.NewString()
	logger := log.With().
		Str("backup_id", backupID).
		Str("server", req.Server.Name).
		Int64("server_id", req.Server.ID).
		Logger()

	// Step 2: Connect
	host := strings.TrimSpace(req.Server.IPv4)
	creds := s.opts.Connection.credentialsFor(req.Server)
	logger.Info().Str("host", host).Str("user", creds.User).Msg("Connecting to server")

	channel, err := s.dialer.Dial(ctx, host, creds, s.opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to %s: %w", ErrConnection, host, err)
	}

	// Step 3: Remote archive path, removed on every exit path from here on
	remoteArchive := naming.RemoteArchivePath(req.ArchiveName)
	defer cleanup(ctx, logger, channel, remoteArchive, s.opts.Timeout)

	// Step 4: Archive with elevated privileges
	command := archiveCommand(remoteArchive, req.RemotePath)
	logger.Info().Str("remote_path", sourcePath(req.RemotePath)).Str("archive", remoteArchive).Msg("Creating remote archive")

	res, err := channel.Exec(ctx, command, s.opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to run archive command: %w", ErrConnection, err)
	}
	if res.ExitCode != 0 {
		return nil, &ArchiveError{ExitCode: res.ExitCode, Stderr: strings.TrimSpace(string(res.Stderr))}
	}

	// Step 5: Stage locally, hash, upload
	stagingDir, err := os.MkdirTemp(s.opts.StagingDir, "ephetzner-backup-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(stagingDir); err != nil {
			logger.Warn().Err(err).Str("path", stagingDir).Msg("Failed to remove staging directory")
		}
	}()

	localPath := filepath.Join(stagingDir, filepath.Base(req.ArchiveName))
	if err := channel.Fetch(ctx, remoteArchive, localPath); err != nil {
		return nil, fmt.Errorf("%w: failed to download archive: %w", ErrConnection, err)
	}

	checksum, size, err := ComputeChecksum(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to compute checksum: %w", err)
	}

	key := BuildObjectKey(keyPrefix, req.ArchiveName)
	logger.Info().Str("bucket", bucket).Str("key", key).Int64("size", size).Msg("Uploading archive")

	metadata := map[string]string{
		metadataBackupID: backupID,
		metadataChecksum: checksum,
		metadataServer:   req.Server.Name,
	}
	if err := s.store.Upload(ctx, localPath, bucket, key, metadata); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	// Step 7: Report
	result := &Result{
		BackupID:  backupID,
		Location:  FormatLocation(bucket, key),
		Checksum:  checksum,
		SizeBytes: size,
	}
	logger.Info().Str("location", result.Location).Str("checksum", checksum).Msg("Backup uploaded")
	return result, nil
}

// VerifyBackup re-downloads the object named by result and compares its
// digest and length. A missing object yields false; a malformed location
// or any other storage failure is returned as an error.
func (s *Service) VerifyBackup(ctx context.Context, result Result) (bool, error) {
	bucket, key, err := ParseLocation(result.Location)
	if err != nil {
		return false, err
	}
	if s.store == nil {
		return false, fmt.Errorf("%w: object storage credentials are not configured", ErrConfiguration)
	}

	logger := log.With().Str("location", result.Location).Logger()
	if result.BackupID != "" {
		logger = logger.With().Str("backup_id", result.BackupID).Logger()
	}

	obj, err := s.store.FetchObject(ctx, bucket, key)
	if errors.Is(err, objectstore.ErrNotFound) {
		logger.Warn().Msg("Backup object not found")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer func() { _ = obj.Body.Close() }()

	digest, streamed, err := HashReader(obj.Body)
	if err != nil {
		return false, fmt.Errorf("%w: failed to read backup object: %w", ErrStorage, err)
	}

	length := obj.ContentLength
	if length < 0 {
		length = streamed
	}

	checksumOK := strings.EqualFold(digest, result.Checksum)
	sizeOK := length == result.SizeBytes

	if !checksumOK {
		logger.Error().Str("expected", result.Checksum).Str("actual", digest).Msg("Backup checksum mismatch")
	}
	if !sizeOK {
		logger.Error().Int64("expected", result.SizeBytes).Int64("actual", length).Msg("Backup size mismatch")
	}

	return checksumOK && sizeOK, nil
}

// sourcePath normalizes the archived directory: trailing slashes are
// dropped and an empty result means the filesystem root.
func sourcePath(remotePath string) string {
	p := strings.TrimRight(strings.TrimSpace(remotePath), "/")
	if p == "" {
		return "/"
	}
	return p
}

func archiveCommand(remoteArchive, remotePath string) string {
	return fmt.Sprintf("sudo tar czf %s -C %s .", remote.Quote(remoteArchive), remote.Quote(sourcePath(remotePath)))
}

// cleanup removes the remote archive and closes the channel.
// Failures are logged and never returned.
func cleanup(ctx context.Context, logger zerolog.Logger, channel remote.Channel, remoteArchive string, timeout time.Duration) {
	if timeout > cleanupTimeout {
		timeout = cleanupTimeout
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	res, err := channel.Exec(cleanupCtx, "sudo rm -f "+remote.Quote(remoteArchive), timeout)
	switch {
	case err != nil:
		logger.Debug().Err(err).Str("archive", remoteArchive).Msg("Failed to remove remote archive")
	case res.ExitCode != 0:
		logger.Debug().Int("exit_code", res.ExitCode).Str("archive", remoteArchive).Msg("Failed to remove remote archive")
	}

	if err := channel.Close(); err != nil {
		logger.Debug().Err(err).Msg("Failed to close remote channel")
	}
}
