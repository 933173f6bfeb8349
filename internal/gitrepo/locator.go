package gitrepo

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/temirov/vendman/internal/manifest"
)

const (
	gitSuffixConstant             = ".git"
	pathSeparatorConstant         = "/"
	windowsPathSeparatorConstant  = `\`
	invalidLocatorMessageConstant = "invalid locator"
	locatorErrorTemplateConstant  = "invalid locator %q: %v"
	requiredValueMessageConstant  = "value is required"
	unparsableLocatorTemplate     = "unable to parse: %w"
	absolutePathTemplateConstant  = "unable to resolve local path: %w"
	fileProtocolConstant          = "file"
	fileSchemePrefixConstant      = "file://"
	currentDirectorySegment       = "."
	parentDirectorySegment        = ".."
)

// ErrInvalidLocator matches every LocatorError through errors.Is.
var ErrInvalidLocator = errors.New(invalidLocatorMessageConstant)

var errLocatorRequired = errors.New(requiredValueMessageConstant)

// LocatorError reports a locator that cannot be vended.
type LocatorError struct {
	Input string
	Cause error
}

// Error describes the rejected locator.
func (locatorError *LocatorError) Error() string {
	return fmt.Sprintf(locatorErrorTemplateConstant, locatorError.Input, locatorError.Cause)
}

// Unwrap exposes the parse or naming failure.
func (locatorError *LocatorError) Unwrap() error {
	return locatorError.Cause
}

// Is reports whether target is ErrInvalidLocator.
func (locatorError *LocatorError) Is(target error) bool {
	return target == ErrInvalidLocator
}

// Locator is a parsed dependency source. Original is what the manifest records: the trimmed
// input for URLs and scp-style addresses, the absolute path for local paths.
type Locator struct {
	Original string
	Protocol string
	Host     string
	Path     string
	Name     string
}

// ParseLocator accepts remote URLs (https, ssh, git, file), scp-style addresses such as
// git@host:org/repo.git and local paths, and derives the dependency name from the final path
// segment with any trailing separator and ".git" suffix removed. Inputs ending in "." or ".."
// are rejected before resolution so a name is never taken from the working directory.
func ParseLocator(rawLocator string) (Locator, error) {
	trimmedLocator := strings.TrimSpace(rawLocator)
	if len(trimmedLocator) == 0 {
		return Locator{}, &LocatorError{Input: rawLocator, Cause: errLocatorRequired}
	}
	if finalSegment := deriveName(trimmedLocator); finalSegment == currentDirectorySegment || finalSegment == parentDirectorySegment {
		return Locator{}, &LocatorError{Input: rawLocator, Cause: manifest.ValidateDependencyName(finalSegment)}
	}

	endpoint, endpointError := transport.NewEndpoint(trimmedLocator)
	if endpointError != nil {
		return Locator{}, &LocatorError{Input: rawLocator, Cause: fmt.Errorf(unparsableLocatorTemplate, endpointError)}
	}

	dependencyName := deriveName(endpoint.Path)
	if nameError := manifest.ValidateDependencyName(dependencyName); nameError != nil {
		return Locator{}, &LocatorError{Input: rawLocator, Cause: nameError}
	}

	recordedLocator := trimmedLocator
	if endpoint.Protocol == fileProtocolConstant && !strings.HasPrefix(trimmedLocator, fileSchemePrefixConstant) {
		absolutePath, absoluteError := filepath.Abs(trimmedLocator)
		if absoluteError != nil {
			return Locator{}, &LocatorError{Input: rawLocator, Cause: fmt.Errorf(absolutePathTemplateConstant, absoluteError)}
		}
		recordedLocator = absolutePath
	}

	return Locator{
		Original: recordedLocator,
		Protocol: endpoint.Protocol,
		Host:     endpoint.Host,
		Path:     endpoint.Path,
		Name:     dependencyName,
	}, nil
}

// DeriveDependencyName returns the dependency name ParseLocator would assign.
func DeriveDependencyName(rawLocator string) (string, error) {
	locator, parseError := ParseLocator(rawLocator)
	if parseError != nil {
		return "", parseError
	}
	return locator.Name, nil
}

func deriveName(locatorPath string) string {
	normalizedPath := strings.ReplaceAll(locatorPath, windowsPathSeparatorConstant, pathSeparatorConstant)
	normalizedPath = strings.TrimRight(normalizedPath, pathSeparatorConstant)
	lastSeparatorIndex := strings.LastIndex(normalizedPath, pathSeparatorConstant)
	finalSegment := normalizedPath[lastSeparatorIndex+1:]
	return strings.TrimSuffix(finalSegment, gitSuffixConstant)
}
