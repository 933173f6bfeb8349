package gitrepo

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/temirov/vendman/internal/execshell"
	"github.com/temirov/vendman/internal/scm"
)

type failurePattern struct {
	fragments []string
	kind      scm.ErrorKind
}

// Ordered: authentication hints must win over the generic network messages that accompany them.
var standardErrorPatterns = []failurePattern{
	{
		fragments: []string{"authentication failed", "could not read username", "could not read password", "permission denied (publickey", "terminal prompts disabled", "invalid username or password"},
		kind:      scm.KindAuthFailed,
	},
	{
		fragments: []string{"already exists and is not an empty directory"},
		kind:      scm.KindPathConflict,
	},
	{
		fragments: []string{"remote branch", "couldn't find remote ref", "invalid reference", "is not a commit and a branch"},
		kind:      scm.KindInvalidReference,
	},
	{
		fragments: []string{"would be overwritten by checkout", "please commit your changes or stash them"},
		kind:      scm.KindDirtyWorkingTree,
	},
	{
		fragments: []string{"ambiguous argument 'head'", "unknown revision or path", "needed a single revision"},
		kind:      scm.KindEmptyRepository,
	},
	{
		fragments: []string{"not a git repository (or any"},
		kind:      scm.KindRepositoryMissing,
	},
	{
		fragments: []string{"could not resolve host", "connection refused", "connection timed out", "network is unreachable", "operation timed out", "unable to access", "could not read from remote repository"},
		kind:      scm.KindNetworkError,
	},
	{
		fragments: []string{"repository not found", "does not exist", "not found"},
		kind:      scm.KindSourceUnavailable,
	},
}

const notGitRepositoryFragmentConstant = "does not appear to be a git repository"

func classifyFailure(operation string, path string, failure error) *scm.ProviderError {
	var commandFailure execshell.CommandFailedError
	if errors.As(failure, &commandFailure) {
		return scm.NewProviderError(classifyStandardError(operation, commandFailure.Result.StandardError), operation, path, failure)
	}

	var pathError *fs.PathError
	if errors.As(failure, &pathError) {
		return scm.NewProviderError(scm.KindRepositoryMissing, operation, path, failure)
	}

	return scm.NewProviderError(scm.KindUnknown, operation, path, failure)
}

func classifyStandardError(operation string, standardError string) scm.ErrorKind {
	normalizedStandardError := strings.ToLower(standardError)

	// git reports a missing remote name and a missing source with the same message.
	if strings.Contains(normalizedStandardError, notGitRepositoryFragmentConstant) {
		if operation == scm.OperationClone {
			return scm.KindSourceUnavailable
		}
		return scm.KindRemoteNotFound
	}

	for _, pattern := range standardErrorPatterns {
		for _, fragment := range pattern.fragments {
			if strings.Contains(normalizedStandardError, fragment) {
				return pattern.kind
			}
		}
	}
	return scm.KindUnknown
}
