package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/ephetzner/internal/cloud"
	"github.com/jbweber/ephetzner/internal/objectstore"
	"github.com/jbweber/ephetzner/internal/remote"
)

const (
	testArchive       = "srv-1-backup.tar.gz"
	testRemoteArchive = "/tmp/srv-1-backup.tar.gz"
)

type testEnv struct {
	host    *fakeHost
	channel *mockChannel
	dialer  *mockDialer
	store   *mockStore
	staging string
	service *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	host := newFakeHost()
	host.put("/var/data/payload.bin", []byte("backup-data"))

	channel := newMockChannel(host)
	dialer := newMockDialer(channel)
	store := newMockStore()
	staging := t.TempDir()

	return &testEnv{
		host:    host,
		channel: channel,
		dialer:  dialer,
		store:   store,
		staging: staging,
		service: NewService(dialer, store, Options{StagingDir: staging}),
	}
}

func testServer() *cloud.Server {
	return &cloud.Server{ID: 1, Name: "srv-1", IPv4: "192.0.2.10"}
}

func testRequest() Request {
	return Request{
		Server:            testServer(),
		RemotePath:        "/var/data",
		ArchiveName:       testArchive,
		DestinationPrefix: "s3://bucket/backups",
	}
}

func assertStagingEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "local staging files must be removed")
}

func TestCreateBackup_EndToEnd(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.service.CreateBackup(ctx, testRequest())
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/backups/srv-1-backup.tar.gz", result.Location)
	assert.Greater(t, result.SizeBytes, int64(0))
	assert.Len(t, result.Checksum, 64)
	assert.NotEmpty(t, result.BackupID)

	// Connection went to the server's IPv4 with default credentials
	assert.Equal(t, []string{"192.0.2.10"}, env.dialer.dialHosts)
	assert.Equal(t, "root", env.dialer.dialCreds[0].User)

	// Archive command ran with sudo and cleanup followed
	require.Len(t, env.channel.execCalls, 2)
	assert.Equal(t, "sudo tar czf /tmp/srv-1-backup.tar.gz -C /var/data .", env.channel.execCalls[0])
	assert.Equal(t, "sudo rm -f /tmp/srv-1-backup.tar.gz", env.channel.execCalls[1])
	assert.Equal(t, 1, env.channel.closeCalls)

	// Stored bytes match the reported checksum
	stored := env.store.objects["bucket/backups/srv-1-backup.tar.gz"]
	digest, n, err := HashReader(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, result.Checksum, digest)
	assert.Equal(t, result.SizeBytes, n)
	assert.Equal(t, result.BackupID, env.store.uploadMeta[0][metadataBackupID])
	assert.Equal(t, result.Checksum, env.store.uploadMeta[0][metadataChecksum])

	assert.False(t, env.host.exists(testRemoteArchive), "remote archive must be removed")
	assertStagingEmpty(t, env.staging)

	ok, err := env.service.VerifyBackup(ctx, *result)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateBackup_ArchiveFailure(t *testing.T) {
	env := newTestEnv(t)

	archiveRun := false
	defaultExec := env.channel.execFunc
	env.channel.execFunc = func(command string) (*remote.ExecResult, error) {
		if !archiveRun {
			archiveRun = true
			// tar may leave a partial file behind before failing
			env.host.put(testRemoteArchive, []byte("partial"))
			return &remote.ExecResult{ExitCode: 1, Stderr: []byte("tar: permission denied\n")}, nil
		}
		return defaultExec(command)
	}

	result, err := env.service.CreateBackup(context.Background(), testRequest())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrArchive))

	var archiveErr *ArchiveError
	require.True(t, errors.As(err, &archiveErr))
	assert.Equal(t, 1, archiveErr.ExitCode)
	assert.Equal(t, "tar: permission denied", archiveErr.Stderr)
	assert.Contains(t, err.Error(), "tar: permission denied")

	assert.Empty(t, env.store.uploadCalls, "nothing may be uploaded after a failed archive")
	assert.Empty(t, env.channel.fetchCalls)
	assert.False(t, env.host.exists(testRemoteArchive), "remote archive must be removed")
	assert.Equal(t, 1, env.channel.closeCalls)
}

func TestCreateBackup_CleanupOnEveryPath(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(env *testEnv)
		wantErr error
	}{
		{
			name:  "success",
			setup: func(env *testEnv) {},
		},
		{
			name: "missing source directory",
			setup: func(env *testEnv) {
				env.host.mu.Lock()
				delete(env.host.files, "/var/data/payload.bin")
				env.host.mu.Unlock()
			},
			wantErr: ErrArchive,
		},
		{
			name: "archive command transport failure",
			setup: func(env *testEnv) {
				defaultExec := env.channel.execFunc
				env.channel.execFunc = func(command string) (*remote.ExecResult, error) {
					if len(env.channel.execCalls) == 1 {
						env.host.put(testRemoteArchive, []byte("partial"))
						return nil, fmt.Errorf("connection reset by peer")
					}
					return defaultExec(command)
				}
			},
			wantErr: ErrConnection,
		},
		{
			name: "fetch fails",
			setup: func(env *testEnv) {
				env.channel.fetchFunc = func(remotePath, localPath string) error {
					return fmt.Errorf("sftp: connection lost")
				}
			},
			wantErr: ErrConnection,
		},
		{
			name: "upload fails",
			setup: func(env *testEnv) {
				env.store.uploadFunc = func(localPath, bucket, key string) error {
					return fmt.Errorf("AccessDenied")
				}
			},
			wantErr: ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env)

			_, err := env.service.CreateBackup(context.Background(), testRequest())

			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
			}
			assert.False(t, env.host.exists(testRemoteArchive), "remote archive must not survive CreateBackup")
			assert.Equal(t, 1, env.channel.closeCalls)
			assertStagingEmpty(t, env.staging)
		})
	}
}

func TestCreateBackup_CleanupFailuresAreSwallowed(t *testing.T) {
	env := newTestEnv(t)

	defaultExec := env.channel.execFunc
	env.channel.execFunc = func(command string) (*remote.ExecResult, error) {
		if len(env.channel.execCalls) > 1 {
			return nil, fmt.Errorf("session closed")
		}
		return defaultExec(command)
	}
	env.channel.closeFunc = func() error {
		return fmt.Errorf("already closed")
	}

	result, err := env.service.CreateBackup(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/backups/srv-1-backup.tar.gz", result.Location)
}

func TestCreateBackup_CleanupDoesNotMaskError(t *testing.T) {
	env := newTestEnv(t)
	env.store.uploadFunc = func(localPath, bucket, key string) error {
		return fmt.Errorf("bucket rejected")
	}
	env.channel.closeFunc = func() error {
		return fmt.Errorf("close failed")
	}

	_, err := env.service.CreateBackup(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorage))
	assert.Contains(t, err.Error(), "bucket rejected")
	assert.NotContains(t, err.Error(), "close failed")
}

func TestCreateBackup_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		noStore bool
		mutate  func(r *Request)
	}{
		{name: "no storage credentials", noStore: true, mutate: func(r *Request) {}},
		{name: "nil server", mutate: func(r *Request) { r.Server = nil }},
		{name: "no ipv4", mutate: func(r *Request) { r.Server.IPv4 = "" }},
		{name: "empty prefix", mutate: func(r *Request) { r.DestinationPrefix = "" }},
		{name: "prefix without bucket", mutate: func(r *Request) { r.DestinationPrefix = "s3:///path" }},
		{name: "unsupported scheme", mutate: func(r *Request) { r.DestinationPrefix = "gs://bucket/path" }},
		{name: "no archive name", mutate: func(r *Request) { r.ArchiveName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			service := env.service
			if tt.noStore {
				service = NewService(env.dialer, nil, Options{})
			}
			req := testRequest()
			tt.mutate(&req)

			_, err := service.CreateBackup(context.Background(), req)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration), "expected configuration error, got %v", err)
			assert.Empty(t, env.dialer.dialHosts, "no connection may be attempted")
		})
	}
}

func TestCreateBackup_ConnectionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.dialer.dialFunc = func(host string, creds remote.Credentials) (remote.Channel, error) {
		return nil, fmt.Errorf("ssh: handshake failed: unable to authenticate")
	}

	_, err := env.service.CreateBackup(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
	assert.Empty(t, env.channel.execCalls)
	assert.Empty(t, env.store.uploadCalls)
}

func TestCreateBackup_ConnectionSettings(t *testing.T) {
	env := newTestEnv(t)
	env.service = NewService(env.dialer, env.store, Options{
		StagingDir: env.staging,
		Connection: ConnectionDefaults{User: "deploy", KeyPath: "/keys/default", Password: "pw"},
	})

	req := testRequest()
	req.Server.Labels = map[string]string{LabelSSHUser: "admin", LabelSSHKeyPath: "/keys/admin"}

	_, err := env.service.CreateBackup(context.Background(), req)
	require.NoError(t, err)

	creds := env.dialer.dialCreds[0]
	assert.Equal(t, "admin", creds.User)
	assert.Equal(t, "/keys/admin", creds.KeyPath)
	assert.Equal(t, "pw", creds.Password)
}

func TestCreateBackup_SourcePathNormalization(t *testing.T) {
	tests := []struct {
		remotePath string
		wantCmd    string
	}{
		{remotePath: "/var/data/", wantCmd: "sudo tar czf /tmp/srv-1-backup.tar.gz -C /var/data ."},
		{remotePath: "/var/data///", wantCmd: "sudo tar czf /tmp/srv-1-backup.tar.gz -C /var/data ."},
		{remotePath: "/", wantCmd: "sudo tar czf /tmp/srv-1-backup.tar.gz -C / ."},
		{remotePath: "", wantCmd: "sudo tar czf /tmp/srv-1-backup.tar.gz -C / ."},
	}

	for _, tt := range tests {
		t.Run(tt.remotePath, func(t *testing.T) {
			if got := archiveCommand(testRemoteArchive, tt.remotePath); got != tt.wantCmd {
				t.Errorf("archiveCommand(%q) = %q, want %q", tt.remotePath, got, tt.wantCmd)
			}
		})
	}
}

func TestVerifyBackup(t *testing.T) {
	ctx := context.Background()

	t.Run("created backups verify for any prefix", func(t *testing.T) {
		for _, destination := range []string{"s3://bucket/backups", "s3://bucket/50%off", "s3://bucket/a%20b", "s3://bucket/run#2", "bucket/q?x"} {
			env := newTestEnv(t)
			req := testRequest()
			req.DestinationPrefix = destination

			result, err := env.service.CreateBackup(ctx, req)
			require.NoError(t, err, "destination %q", destination)

			ok, err := env.service.VerifyBackup(ctx, *result)
			assert.NoError(t, err, "destination %q", destination)
			assert.True(t, ok, "destination %q: stored copy should verify", destination)
		}
	})

	t.Run("missing object returns false", func(t *testing.T) {
		env := newTestEnv(t)

		ok, err := env.service.VerifyBackup(ctx, Result{
			Location:  "s3://bucket/backups/never-uploaded.tar.gz",
			Checksum:  "00",
			SizeBytes: 1,
		})

		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("altered content returns false", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.service.CreateBackup(ctx, testRequest())
		require.NoError(t, err)

		env.store.objects["bucket/backups/srv-1-backup.tar.gz"] = []byte("tampered")

		ok, err := env.service.VerifyBackup(ctx, *result)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("length mismatch returns false", func(t *testing.T) {
		env := newTestEnv(t)
		result, err := env.service.CreateBackup(ctx, testRequest())
		require.NoError(t, err)

		stored := env.store.objects["bucket/backups/srv-1-backup.tar.gz"]
		env.store.fetchFunc = func(bucket, key string) (*objectstore.Object, error) {
			return &objectstore.Object{
				Body:          io.NopCloser(bytes.NewReader(stored)),
				ContentLength: int64(len(stored)) + 1,
			}, nil
		}

		ok, err := env.service.VerifyBackup(ctx, *result)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.fetchFunc = func(bucket, key string) (*objectstore.Object, error) {
			return nil, fmt.Errorf("InvalidAccessKeyId")
		}

		ok, err := env.service.VerifyBackup(ctx, Result{Location: "s3://bucket/key"})

		require.Error(t, err)
		assert.False(t, ok)
		assert.True(t, errors.Is(err, ErrStorage))
	})

	t.Run("malformed locations are rejected", func(t *testing.T) {
		env := newTestEnv(t)
		for _, location := range []string{"", "s3:///key", "s3://bucket", "s3://bucket/", "bucket/key", "https://bucket/key"} {
			ok, err := env.service.VerifyBackup(ctx, Result{Location: location})
			assert.False(t, ok)
			assert.True(t, errors.Is(err, ErrValidation), "location %q: expected validation error, got %v", location, err)
		}
		assert.Empty(t, env.store.fetchCalls)
	})
}
