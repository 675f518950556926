package backup

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks invalid caller input: missing credentials,
	// a malformed destination prefix or a server without an IPv4 address.
	ErrConfiguration = errors.New("backup configuration error")

	// ErrConnection marks an unreachable host, rejected authentication or a
	// transport failure while talking to the server.
	ErrConnection = errors.New("backup connection error")

	// ErrArchive marks a failed remote archive command. See ArchiveError.
	ErrArchive = errors.New("backup archive error")

	// ErrStorage marks an object storage failure other than a missing object.
	ErrStorage = errors.New("backup storage error")

	// ErrValidation marks a malformed backup location passed to VerifyBackup.
	ErrValidation = errors.New("backup validation error")
)

// ArchiveError reports a non-zero exit from the remote archive command.
type ArchiveError struct {
	ExitCode int
	Stderr   string
}

func (e *ArchiveError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("remote archive command exited with status %d", e.ExitCode)
	}
	return fmt.Sprintf("remote archive command exited with status %d: %s", e.ExitCode, e.Stderr)
}

// Is makes errors.Is(err, ErrArchive) match any *ArchiveError.
func (e *ArchiveError) Is(target error) bool {
	return target == ErrArchive
}
