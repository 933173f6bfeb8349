package manifest

import (
	"errors"
	"fmt"
)

const (
	notInitializedMessageConstant        = "vendman is not initialized; run \"vendman init\" first"
	invalidDependencyNameMessageConstant = "invalid dependency name"
	lockTimeoutMessageConstant           = "timed out waiting for the manifest lock"
	unsupportedFormatMessageConstant     = "unsupported manifest format"
	corruptErrorTemplateConstant         = "manifest %s is corrupt: %v"
	ioErrorTemplateConstant              = "unable to %s %s: %v"
)

// ErrNotInitialized indicates the managed root or its manifest does not exist.
var ErrNotInitialized = errors.New(notInitializedMessageConstant)

// ErrInvalidDependencyName indicates a name that cannot be used as a workspace directory.
var ErrInvalidDependencyName = errors.New(invalidDependencyNameMessageConstant)

// ErrLockTimeout indicates another vendman process held the manifest lock for too long.
var ErrLockTimeout = errors.New(lockTimeoutMessageConstant)

// ErrUnsupportedFormat indicates a manifest file name whose extension has no codec.
var ErrUnsupportedFormat = errors.New(unsupportedFormatMessageConstant)

// CorruptError reports a manifest file that exists but does not match the schema.
type CorruptError struct {
	Path  string
	Cause error
}

// Error describes the corrupt manifest.
func (corruptError *CorruptError) Error() string {
	return fmt.Sprintf(corruptErrorTemplateConstant, corruptError.Path, corruptError.Cause)
}

// Unwrap exposes the decoding or validation failure.
func (corruptError *CorruptError) Unwrap() error {
	return corruptError.Cause
}

// IOError reports a filesystem failure while reading or writing vendman state.
type IOError struct {
	Operation string
	Path      string
	Cause     error
}

// Error describes the failed filesystem operation.
func (ioError *IOError) Error() string {
	return fmt.Sprintf(ioErrorTemplateConstant, ioError.Operation, ioError.Path, ioError.Cause)
}

// Unwrap exposes the filesystem failure.
func (ioError *IOError) Unwrap() error {
	return ioError.Cause
}
