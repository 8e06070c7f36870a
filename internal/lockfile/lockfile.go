// Package lockfile keeps two SafePath processes from sharing one state
// directory. The guard is a flock on a file inside the directory, so the
// kernel drops it for free when the process dies, cleanly or not.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockFileName is the file the flock is taken on, inside the state dir.
const LockFileName = "safepath.lock"

// Lock is a held state-directory lock.
type Lock struct {
	file     *os.File
	path     string
	acquired bool
}

// AcquireLock takes an exclusive non-blocking flock on the state
// directory. When another process already holds it, the returned
// LockError names that process where possible.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", stateDir, err)
	}

	lockPath := filepath.Join(stateDir, LockFileName)
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		holder := describeHolder(lockPath)
		slog.Error("State directory already locked", "lock_path", lockPath, "holder", holder)
		return nil, &LockError{LockPath: lockPath, ExistingInfo: holder, Cause: err}
	}

	// Record our PID so a conflicting process can name us in its error.
	if _, err := fmt.Fprintf(file, "pid=%d\n", os.Getpid()); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("write lock info to %s: %w", lockPath, err)
	}
	if err := file.Sync(); err != nil {
		slog.Warn("Lock file sync failed", "error", err, "lock_path", lockPath)
	}

	slog.Info("State directory lock acquired", "lock_path", lockPath, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath, acquired: true}, nil
}

// Release drops the flock and removes the lock file. Calling it on an
// already-released lock is a no-op.
func (l *Lock) Release() error {
	if !l.acquired || l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Error("Flock release failed", "error", err, "lock_path", l.path)
	}
	if err := l.file.Close(); err != nil {
		slog.Error("Lock file close failed", "error", err, "lock_path", l.path)
	}
	if err := os.Remove(l.path); err != nil {
		// Harmless: the flock itself is already gone.
		slog.Debug("Lock file removal failed", "error", err, "lock_path", l.path)
	}

	l.acquired = false
	l.file = nil
	slog.Info("State directory lock released", "lock_path", l.path)
	return nil
}

// LockError reports a state directory held by another process.
type LockError struct {
	LockPath     string
	ExistingInfo string
	Cause        error
}

func (e *LockError) Error() string {
	msg := fmt.Sprintf("Another SafePath instance is already running using the same state directory.\n\nLock file: %s", e.LockPath)
	if e.ExistingInfo != "" {
		msg += fmt.Sprintf("\nExisting process: %s", e.ExistingInfo)
	}
	msg += fmt.Sprintf("\n\nIf no other SafePath instance is running the lock is stale and can be removed:\n  rm %s\n\n"+
		"Only do this when you are certain: two instances writing one state directory will corrupt it.", e.LockPath)
	return msg
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

// describeHolder reads the lock file left by the holding process and
// reports whether that process is still alive.
func describeHolder(lockPath string) string {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return "unable to read lock file information"
	}
	content := string(data)
	if content == "" {
		return "lock file exists but contains no process information"
	}

	pid := extractPIDFromLockInfo(content)
	if pid <= 0 {
		return fmt.Sprintf("process information: %s", content)
	}
	if isProcessRunning(pid) {
		return fmt.Sprintf("PID %d (running)", pid)
	}
	return fmt.Sprintf("PID %d (not running - stale lock)", pid)
}

// extractPIDFromLockInfo pulls the pid=N record out of lock file content.
func extractPIDFromLockInfo(content string) int {
	for _, line := range strings.Split(content, "\n") {
		rest, ok := strings.CutPrefix(line, "pid=")
		if !ok {
			continue
		}
		digits := rest
		for i := 0; i < len(rest); i++ {
			if rest[i] < '0' || rest[i] > '9' {
				digits = rest[:i]
				break
			}
		}
		if pid, err := strconv.Atoi(digits); err == nil {
			return pid
		}
	}
	return 0
}

// isProcessRunning probes a PID with signal 0, which tests existence
// without delivering anything.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
