package gogit

import (
	"errors"
	"net"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/temirov/vendman/internal/scm"
)

type sentinelKind struct {
	sentinel error
	kind     scm.ErrorKind
}

var sentinelKinds = []sentinelKind{
	{sentinel: transport.ErrAuthenticationRequired, kind: scm.KindAuthFailed},
	{sentinel: transport.ErrAuthorizationFailed, kind: scm.KindAuthFailed},
	{sentinel: transport.ErrInvalidAuthMethod, kind: scm.KindAuthFailed},
	{sentinel: transport.ErrRepositoryNotFound, kind: scm.KindSourceUnavailable},
	{sentinel: transport.ErrEmptyRemoteRepository, kind: scm.KindEmptyRepository},
	{sentinel: git.ErrRepositoryAlreadyExists, kind: scm.KindPathConflict},
	{sentinel: git.ErrRemoteNotFound, kind: scm.KindRemoteNotFound},
	{sentinel: git.ErrRepositoryNotExists, kind: scm.KindRepositoryMissing},
	{sentinel: git.ErrUnstagedChanges, kind: scm.KindDirtyWorkingTree},
	{sentinel: plumbing.ErrReferenceNotFound, kind: scm.KindInvalidReference},
}

func classifyFailure(operation string, path string, failure error) *scm.ProviderError {
	for _, candidate := range sentinelKinds {
		if errors.Is(failure, candidate.sentinel) {
			return scm.NewProviderError(candidate.kind, operation, path, failure)
		}
	}

	var refSpecError git.NoMatchingRefSpecError
	if errors.As(failure, &refSpecError) {
		return scm.NewProviderError(scm.KindInvalidReference, operation, path, failure)
	}

	var networkError net.Error
	if errors.As(failure, &networkError) {
		return scm.NewProviderError(scm.KindNetworkError, operation, path, failure)
	}

	return scm.NewProviderError(scm.KindUnknown, operation, path, failure)
}
