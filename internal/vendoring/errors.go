package vendoring

import (
	"errors"
	"fmt"
)

const (
	storeMissingMessageConstant          = "manifest store not configured"
	providerMissingMessageConstant       = "source control provider not configured"
	dependencyNotDeclaredMessageConstant = "dependency is not declared"
	updateIncompleteMessageConstant      = "some dependencies failed to update"
	unknownProviderMessageConstant       = "unknown source control provider"
	unsupportedDependencyMessageConstant = "unsupported dependency declaration"
	cloneFailedTemplateConstant          = "unable to vend %s from %s: %v"
)

// ErrStoreNotConfigured indicates the manifest store dependency was missing.
var ErrStoreNotConfigured = errors.New(storeMissingMessageConstant)

// ErrProviderNotConfigured indicates the source control provider dependency was missing.
var ErrProviderNotConfigured = errors.New(providerMissingMessageConstant)

// ErrDependencyNotDeclared indicates a name that has no manifest entry.
var ErrDependencyNotDeclared = errors.New(dependencyNotDeclaredMessageConstant)

// ErrUpdateIncomplete indicates update finished with at least one failed dependency.
var ErrUpdateIncomplete = errors.New(updateIncompleteMessageConstant)

// ErrUnknownProvider indicates a provider setting other than shell or gogit.
var ErrUnknownProvider = errors.New(unknownProviderMessageConstant)

// ErrUnsupportedDependency indicates a declaration that is neither tracking nor pinned.
var ErrUnsupportedDependency = errors.New(unsupportedDependencyMessageConstant)

// CloneFailedError reports a vend whose clone failed. The manifest is left untouched.
type CloneFailedError struct {
	Name    string
	Locator string
	Cause   error
}

// Error describes the failed clone.
func (cloneError *CloneFailedError) Error() string {
	return fmt.Sprintf(cloneFailedTemplateConstant, cloneError.Name, cloneError.Locator, cloneError.Cause)
}

// Unwrap exposes the provider failure.
func (cloneError *CloneFailedError) Unwrap() error {
	return cloneError.Cause
}
