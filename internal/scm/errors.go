package scm

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures.
type ErrorKind string

// Provider failure kinds.
const (
	KindSourceUnavailable ErrorKind = "source unavailable"
	KindAuthFailed        ErrorKind = "authentication failed"
	KindPathConflict      ErrorKind = "destination already exists"
	KindNetworkError      ErrorKind = "network error"
	KindRemoteNotFound    ErrorKind = "remote not found"
	KindDirtyWorkingTree  ErrorKind = "working tree has local changes"
	KindInvalidReference  ErrorKind = "reference not found"
	KindEmptyRepository   ErrorKind = "repository has no commits"
	KindRepositoryMissing ErrorKind = "not a repository"
	KindTimeout           ErrorKind = "timed out"
	KindUnknown           ErrorKind = "unexpected failure"
)

// Provider operation names.
const (
	OperationClone    = "clone"
	OperationOpen     = "open"
	OperationFetch    = "fetch"
	OperationCheckout = "checkout"
	OperationHead     = "head"
)

const (
	providerErrorTemplateConstant      = "%s %s: %s"
	providerErrorCauseTemplateConstant = "%s %s: %s: %v"
)

// ProviderError reports a classified source-control failure.
type ProviderError struct {
	Kind      ErrorKind
	Operation string
	Path      string
	Cause     error
}

// Error describes the failed operation.
func (providerError *ProviderError) Error() string {
	if providerError.Cause == nil {
		return fmt.Sprintf(providerErrorTemplateConstant, providerError.Operation, providerError.Path, providerError.Kind)
	}
	return fmt.Sprintf(providerErrorCauseTemplateConstant, providerError.Operation, providerError.Path, providerError.Kind, providerError.Cause)
}

// Unwrap exposes the underlying failure.
func (providerError *ProviderError) Unwrap() error {
	return providerError.Cause
}

// NewProviderError builds a ProviderError, classifying context expiry as KindTimeout.
func NewProviderError(kind ErrorKind, operation string, path string, cause error) *ProviderError {
	if errors.Is(cause, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &ProviderError{Kind: kind, Operation: operation, Path: path, Cause: cause}
}

// KindOf returns the kind of the first ProviderError in the chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var providerError *ProviderError
	if errors.As(err, &providerError) {
		return providerError.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}
