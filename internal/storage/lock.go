package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/steveyegge/brain/internal/types"
)

// LockFileName is the writer lock created in the state directory
const LockFileName = ".brain-writer.lock"

// WriterLock is the lock file format that serializes brain writers across
// processes. A lock whose holder process no longer exists is stale and is
// taken over.
type WriterLock struct {
	Holder    string    `json:"holder"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// AcquireWriterLock creates the writer lock file in stateDir.
// Returns the lock file path for cleanup (use defer ReleaseWriterLock).
func AcquireWriterLock(stateDir, holder string) (lockPath string, err error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return "", fmt.Errorf("%w: creating state directory: %v", types.ErrStorageUnavailable, err)
	}
	lockPath = filepath.Join(stateDir, LockFileName)

	// Check for existing lock
	if data, err := os.ReadFile(lockPath); err == nil {
		var existing WriterLock
		if json.Unmarshal(data, &existing) == nil && isProcessAlive(existing.PID, existing.Hostname) {
			return "", fmt.Errorf("%w: another brain writer is running (%s, PID %d on %s, started %s)",
				types.ErrPrecondition, existing.Holder, existing.PID, existing.Hostname,
				existing.StartedAt.Format(time.RFC3339))
		}
		// Stale or unreadable lock - take it over
		if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: removing stale lock: %v", types.ErrStorageUnavailable, err)
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	lock := WriterLock{
		Holder:    holder,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
	}
	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL so two writers racing past the stale check cannot both win
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("%w: another brain writer acquired the lock", types.ErrPrecondition)
	}
	if err != nil {
		return "", fmt.Errorf("%w: creating writer lock: %v", types.ErrStorageUnavailable, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(lockPath)
		return "", fmt.Errorf("%w: writing writer lock: %v", types.ErrStorageUnavailable, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(lockPath)
		return "", fmt.Errorf("%w: writing writer lock: %v", types.ErrStorageUnavailable, err)
	}

	return lockPath, nil
}

// ReleaseWriterLock removes the writer lock file
func ReleaseWriterLock(lockPath string) error {
	if lockPath == "" {
		return nil
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove writer lock: %w", err)
	}

	return nil
}

// isProcessAlive checks if a process with the given PID exists on the given hostname.
// Processes on other hosts cannot be checked and are assumed alive.
func isProcessAlive(pid int, hostname string) bool {
	currentHost, err := os.Hostname()
	if err != nil {
		return true
	}

	if !strings.EqualFold(hostname, currentHost) {
		return true
	}

	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 checks existence without delivering anything
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	// EPERM: the process exists but belongs to someone else
	return errors.Is(err, syscall.EPERM)
}
