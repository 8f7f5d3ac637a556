package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "meister-eder/errors"
)

func TestRunLock_AcquireAndRelease(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "agent.lock")

	lock, err := AcquireRunLock(path)
	req.NoError(err)
	req.FileExists(path)

	req.NoError(lock.Release())
	req.NoFileExists(path)

	// Reacquirable after release.
	lock, err = AcquireRunLock(path)
	req.NoError(err)
	req.NoError(lock.Release())
}

func TestRunLock_SecondAcquireFails(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "agent.lock")

	lock, err := AcquireRunLock(path)
	req.NoError(err)
	defer func() { _ = lock.Release() }()

	// The lockfile carries our own live pid, so the second acquisition must
	// report an already-running cycle.
	_, err = AcquireRunLock(path)
	req.Error(err)
	req.True(errors.Is(err, apperrors.ErrAlreadyRunning))
}

func TestRunLock_StaleLockIsReclaimed(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "agent.lock")

	// A crashed run left a lockfile with a pid that no longer exists.
	req.NoError(os.WriteFile(path, []byte("999999999\n"), 0o644))

	lock, err := AcquireRunLock(path)
	req.NoError(err)
	req.NoError(lock.Release())
}

func TestRunLock_GarbageContentTreatedAsStale(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "agent.lock")
	req.NoError(os.WriteFile(path, []byte("not-a-pid"), 0o644))

	lock, err := AcquireRunLock(path)
	req.NoError(err)
	req.NoError(lock.Release())
}
