package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const (
	lockRetryDelayConstant         = 50 * time.Millisecond
	lockTimeoutTemplateConstant    = "%w: %s held for more than %s"
	ioOperationLockConstant        = "lock"
	ioOperationUnlockConstant      = "unlock"
	lockAcquiredLogMessageConstant = "acquired manifest lock"
	lockReleasedLogMessageConstant = "released manifest lock"
	logFieldLockPathConstant       = "lock"
	lockNotAcquiredMessageConstant = "lock not acquired"
)

var errLockNotAcquired = errors.New(lockNotAcquiredMessageConstant)

// ManifestLock is an exclusive advisory lock on the manifest of one root.
type ManifestLock struct {
	fileLock *flock.Flock
	logger   *zap.Logger
}

// LockPath returns the advisory lock file location.
func (store *Store) LockPath() string {
	return store.manifestPath + lockFileSuffixConstant
}

// Lock acquires the manifest lock, retrying until the configured lock timeout elapses. The root
// must already exist.
func (store *Store) Lock(executionContext context.Context) (*ManifestLock, error) {
	if _, statError := store.fileSystem.Stat(store.rootDirectory); statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return nil, ErrNotInitialized
		}
		return nil, &IOError{Operation: ioOperationInspectConstant, Path: store.rootDirectory, Cause: statError}
	}

	lockContext := executionContext
	if store.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockContext, cancel = context.WithTimeout(executionContext, store.lockTimeout)
		defer cancel()
	}

	fileLock := flock.New(store.LockPath())
	locked, lockError := fileLock.TryLockContext(lockContext, lockRetryDelayConstant)
	if lockError != nil {
		if parentError := executionContext.Err(); parentError != nil {
			return nil, parentError
		}
		if errors.Is(lockError, context.DeadlineExceeded) {
			return nil, fmt.Errorf(lockTimeoutTemplateConstant, ErrLockTimeout, store.LockPath(), store.lockTimeout)
		}
		return nil, &IOError{Operation: ioOperationLockConstant, Path: store.LockPath(), Cause: lockError}
	}
	if !locked {
		return nil, &IOError{Operation: ioOperationLockConstant, Path: store.LockPath(), Cause: errLockNotAcquired}
	}

	store.logger.Debug(lockAcquiredLogMessageConstant, zap.String(logFieldLockPathConstant, store.LockPath()))
	return &ManifestLock{fileLock: fileLock, logger: store.logger}, nil
}

// Release unlocks the manifest. Releasing a nil lock is a no-op.
func (manifestLock *ManifestLock) Release() error {
	if manifestLock == nil || manifestLock.fileLock == nil {
		return nil
	}
	if unlockError := manifestLock.fileLock.Unlock(); unlockError != nil {
		return &IOError{Operation: ioOperationUnlockConstant, Path: manifestLock.fileLock.Path(), Cause: unlockError}
	}
	manifestLock.logger.Debug(lockReleasedLogMessageConstant, zap.String(logFieldLockPathConstant, manifestLock.fileLock.Path()))
	return nil
}
