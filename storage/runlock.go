package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	apperrors "meister-eder/errors"
)

// RunLock guards a whole email poll cycle: at most one batch invocation may
// run at a time. Acquisition is non-blocking; a second invocation exits
// instead of queuing.
type RunLock struct {
	path string
}

// AcquireRunLock creates the pid lockfile exclusively. When the file exists
// but its recorded process is gone (crash without cleanup), the stale lock
// is removed and acquisition retried once.
func AcquireRunLock(path string) (*RunLock, error) {
	if err := tryCreate(path); err == nil {
		return &RunLock{path: path}, nil
	} else if !os.IsExist(err) {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.ErrAlreadyRunning
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err == nil && processAlive(pid) {
		return nil, apperrors.ErrAlreadyRunning
	}

	// Stale lock from a crashed run.
	if err := os.Remove(path); err != nil {
		return nil, apperrors.ErrAlreadyRunning
	}
	if err := tryCreate(path); err != nil {
		return nil, apperrors.ErrAlreadyRunning
	}
	return &RunLock{path: path}, nil
}

// Release removes the lockfile. Safe to call from defer on every exit path.
func (l *RunLock) Release() error {
	return os.Remove(l.path)
}

func tryCreate(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, writeErr := fmt.Fprintf(f, "%d\n", os.Getpid())
	closeErr := f.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
