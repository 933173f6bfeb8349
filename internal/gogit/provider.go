// Package gogit implements the source-control provider in process with go-git.
package gogit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"go.uber.org/zap"

	"github.com/temirov/vendman/internal/scm"
)

const (
	detachedHeadReferenceConstant   = "HEAD"
	fetchRefSpecTemplateConstant    = "+refs/heads/%s:refs/remotes/%s/%s"
	unexpectedHandleMessageConstant = "repository handle was not opened by the go-git provider"
	logFieldPathConstant            = "path"
	logFieldLocatorConstant         = "locator"
	logFieldRemoteConstant          = "remote"
	logFieldReferenceConstant       = "reference"
	cloneLogMessageConstant         = "cloning repository"
	emptyCloneLogMessageConstant    = "upstream is empty; initialized working copy with remote only"
	fetchLogMessageConstant         = "fetching repository"
	checkoutLogMessageConstant      = "checking out branch"
)

var errUnexpectedHandle = errors.New(unexpectedHandleMessageConstant)

type repositoryHandle struct {
	directory  string
	repository *git.Repository
}

func (handle *repositoryHandle) Path() string {
	return handle.directory
}

// Provider implements scm.Provider using go-git.
type Provider struct {
	logger *zap.Logger
}

// NewProvider constructs a go-git backed provider.
func NewProvider(logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{logger: logger}
}

// Clone clones locator into destination under remoteName, checking out initialReference when
// provided. An empty upstream yields an empty working copy with the remote configured.
func (provider *Provider) Clone(executionContext context.Context, locator string, destination string, remoteName string, initialReference string) (scm.RepositoryHandle, error) {
	provider.logger.Debug(cloneLogMessageConstant, zap.String(logFieldLocatorConstant, locator), zap.String(logFieldPathConstant, destination), zap.String(logFieldRemoteConstant, remoteName))

	cloneOptions := &git.CloneOptions{URL: locator, RemoteName: remoteName}
	if trimmedReference := strings.TrimSpace(initialReference); len(trimmedReference) > 0 {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(trimmedReference)
	}

	repository, cloneError := git.PlainCloneContext(executionContext, destination, false, cloneOptions)
	if errors.Is(cloneError, transport.ErrEmptyRemoteRepository) && cloneOptions.ReferenceName == "" {
		provider.logger.Debug(emptyCloneLogMessageConstant, zap.String(logFieldLocatorConstant, locator), zap.String(logFieldPathConstant, destination))
		repository, cloneError = initializeEmptyClone(destination, locator, remoteName)
	}
	if cloneError != nil {
		return nil, classifyFailure(scm.OperationClone, destination, cloneError)
	}
	return &repositoryHandle{directory: destination, repository: repository}, nil
}

// Open attaches to the working copy rooted at path.
func (provider *Provider) Open(executionContext context.Context, path string) (scm.RepositoryHandle, error) {
	repository, openError := git.PlainOpen(path)
	if openError != nil {
		return nil, classifyFailure(scm.OperationOpen, path, openError)
	}
	return &repositoryHandle{directory: path, repository: repository}, nil
}

// Fetch updates remote-tracking branches of remoteName, limited to references when provided, and
// prunes remote-tracking branches deleted upstream. An empty upstream has nothing to fetch.
func (provider *Provider) Fetch(executionContext context.Context, handle scm.RepositoryHandle, remoteName string, references []string) error {
	repository, resolveError := resolveRepository(handle)
	if resolveError != nil {
		return scm.NewProviderError(scm.KindUnknown, scm.OperationFetch, handle.Path(), resolveError)
	}
	provider.logger.Debug(fetchLogMessageConstant, zap.String(logFieldPathConstant, handle.Path()), zap.String(logFieldRemoteConstant, remoteName), zap.Strings(logFieldReferenceConstant, references))

	fetchOptions := &git.FetchOptions{RemoteName: remoteName, Prune: true}
	for _, reference := range references {
		fetchOptions.RefSpecs = append(fetchOptions.RefSpecs, config.RefSpec(fmt.Sprintf(fetchRefSpecTemplateConstant, reference, remoteName, reference)))
	}

	fetchError := repository.FetchContext(executionContext, fetchOptions)
	if fetchError != nil && !errors.Is(fetchError, git.NoErrAlreadyUpToDate) && !errors.Is(fetchError, transport.ErrEmptyRemoteRepository) {
		return classifyFailure(scm.OperationFetch, handle.Path(), fetchError)
	}
	return nil
}

// CheckoutHead points branch at remoteName/branch and checks it out, refusing when tracked files
// have local modifications.
func (provider *Provider) CheckoutHead(executionContext context.Context, handle scm.RepositoryHandle, remoteName string, branch string) error {
	repository, resolveError := resolveRepository(handle)
	if resolveError != nil {
		return scm.NewProviderError(scm.KindUnknown, scm.OperationCheckout, handle.Path(), resolveError)
	}
	provider.logger.Debug(checkoutLogMessageConstant, zap.String(logFieldPathConstant, handle.Path()), zap.String(logFieldRemoteConstant, remoteName), zap.String(logFieldReferenceConstant, branch))

	worktree, worktreeError := repository.Worktree()
	if worktreeError != nil {
		return classifyFailure(scm.OperationCheckout, handle.Path(), worktreeError)
	}
	status, statusError := worktree.Status()
	if statusError != nil {
		return classifyFailure(scm.OperationCheckout, handle.Path(), statusError)
	}
	if hasTrackedChanges(status) {
		return scm.NewProviderError(scm.KindDirtyWorkingTree, scm.OperationCheckout, handle.Path(), nil)
	}

	remoteReference, referenceError := repository.Reference(plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if referenceError != nil {
		return classifyFailure(scm.OperationCheckout, handle.Path(), referenceError)
	}

	branchReferenceName := plumbing.NewBranchReferenceName(branch)
	if setError := repository.Storer.SetReference(plumbing.NewHashReference(branchReferenceName, remoteReference.Hash())); setError != nil {
		return classifyFailure(scm.OperationCheckout, handle.Path(), setError)
	}
	if trackingError := ensureBranchTracking(repository, remoteName, branch); trackingError != nil {
		return classifyFailure(scm.OperationCheckout, handle.Path(), trackingError)
	}

	if checkoutError := worktree.Checkout(&git.CheckoutOptions{Branch: branchReferenceName, Force: true}); checkoutError != nil {
		return classifyFailure(scm.OperationCheckout, handle.Path(), checkoutError)
	}
	return nil
}

// CurrentHead reports the checked-out branch, or HEAD when detached, and its commit.
func (provider *Provider) CurrentHead(executionContext context.Context, handle scm.RepositoryHandle) (scm.Head, error) {
	repository, resolveError := resolveRepository(handle)
	if resolveError != nil {
		return scm.Head{}, scm.NewProviderError(scm.KindUnknown, scm.OperationHead, handle.Path(), resolveError)
	}

	headReference, headError := repository.Head()
	if headError != nil {
		if errors.Is(headError, plumbing.ErrReferenceNotFound) {
			return scm.Head{}, scm.NewProviderError(scm.KindEmptyRepository, scm.OperationHead, handle.Path(), headError)
		}
		return scm.Head{}, classifyFailure(scm.OperationHead, handle.Path(), headError)
	}

	if headReference.Name().IsBranch() {
		return scm.Head{Reference: headReference.Name().Short(), Commit: headReference.Hash().String()}, nil
	}
	return scm.Head{Reference: detachedHeadReferenceConstant, Commit: headReference.Hash().String(), Detached: true}, nil
}

func resolveRepository(handle scm.RepositoryHandle) (*git.Repository, error) {
	typedHandle, isGoGitHandle := handle.(*repositoryHandle)
	if !isGoGitHandle || typedHandle.repository == nil {
		return nil, errUnexpectedHandle
	}
	return typedHandle.repository, nil
}

func hasTrackedChanges(status git.Status) bool {
	for _, fileStatus := range status {
		if fileStatus.Worktree == git.Untracked && fileStatus.Staging == git.Untracked {
			continue
		}
		if fileStatus.Worktree != git.Unmodified || fileStatus.Staging != git.Unmodified {
			return true
		}
	}
	return false
}

func ensureBranchTracking(repository *git.Repository, remoteName string, branch string) error {
	repositoryConfiguration, configurationError := repository.Config()
	if configurationError != nil {
		return configurationError
	}
	if _, configured := repositoryConfiguration.Branches[branch]; configured {
		return nil
	}
	return repository.CreateBranch(&config.Branch{Name: branch, Remote: remoteName, Merge: plumbing.NewBranchReferenceName(branch)})
}

func initializeEmptyClone(destination string, locator string, remoteName string) (*git.Repository, error) {
	repository, initError := git.PlainInit(destination, false)
	if initError != nil {
		return nil, initError
	}
	if _, remoteError := repository.CreateRemote(&config.RemoteConfig{Name: remoteName, URLs: []string{locator}}); remoteError != nil {
		return nil, remoteError
	}
	return repository, nil
}
