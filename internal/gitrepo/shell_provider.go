package gitrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/temirov/vendman/internal/execshell"
	"github.com/temirov/vendman/internal/scm"
)

const (
	gitCloneSubcommandConstant         = "clone"
	gitFetchSubcommandConstant         = "fetch"
	gitCheckoutSubcommandConstant      = "checkout"
	gitStatusSubcommandConstant        = "status"
	gitRevParseSubcommandConstant      = "rev-parse"
	gitBranchFlagConstant              = "--branch"
	gitOriginFlagConstant              = "--origin"
	gitPruneFlagConstant               = "--prune"
	gitPorcelainFlagConstant           = "--porcelain"
	gitTrackedOnlyFlagConstant         = "--untracked-files=no"
	gitCreateOrResetFlagConstant       = "-B"
	gitAbbrevRefFlagConstant           = "--abbrev-ref"
	gitDirectoryFlagConstant           = "--git-dir"
	gitArgumentTerminatorConstant      = "--"
	gitHeadReferenceConstant           = "HEAD"
	gitRepositoryDirectoryNameConstant = ".git"
	gitTerminalPromptEnvironmentKey    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledValue     = "0"
	remoteBranchTemplateSeparator      = "/"
	gitExecutorNotConfiguredMessage    = "git executor not configured"
	notRepositoryRootMessageConstant   = "directory is not the root of a git working copy"
)

// ErrGitExecutorNotConfigured indicates the shell provider was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorNotConfiguredMessage)

var errNotRepositoryRoot = errors.New(notRepositoryRootMessageConstant)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ShellProvider implements scm.Provider by running the git executable.
type ShellProvider struct {
	executor GitExecutor
}

// NewShellProvider constructs a ShellProvider.
func NewShellProvider(executor GitExecutor) (*ShellProvider, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &ShellProvider{executor: executor}, nil
}

// Clone runs git clone naming the remote remoteName, selecting initialReference with --branch
// when provided.
func (provider *ShellProvider) Clone(executionContext context.Context, locator string, destination string, remoteName string, initialReference string) (scm.RepositoryHandle, error) {
	arguments := []string{gitCloneSubcommandConstant, gitOriginFlagConstant, remoteName}
	if trimmedReference := strings.TrimSpace(initialReference); len(trimmedReference) > 0 {
		arguments = append(arguments, gitBranchFlagConstant, trimmedReference)
	}
	arguments = append(arguments, gitArgumentTerminatorConstant, locator, destination)

	if _, executionError := provider.run(executionContext, "", arguments); executionError != nil {
		return nil, classifyFailure(scm.OperationClone, destination, executionError)
	}
	return scm.WorkingCopy{Directory: destination}, nil
}

// Open verifies path is the root of a git working copy.
func (provider *ShellProvider) Open(executionContext context.Context, path string) (scm.RepositoryHandle, error) {
	executionResult, executionError := provider.run(executionContext, path, []string{gitRevParseSubcommandConstant, gitDirectoryFlagConstant})
	if executionError != nil {
		return nil, classifyFailure(scm.OperationOpen, path, executionError)
	}
	if strings.TrimSpace(executionResult.StandardOutput) != gitRepositoryDirectoryNameConstant {
		return nil, scm.NewProviderError(scm.KindRepositoryMissing, scm.OperationOpen, path, errNotRepositoryRoot)
	}
	return scm.WorkingCopy{Directory: path}, nil
}

// Fetch runs git fetch --prune against remoteName, limited to references when provided.
func (provider *ShellProvider) Fetch(executionContext context.Context, handle scm.RepositoryHandle, remoteName string, references []string) error {
	arguments := append([]string{gitFetchSubcommandConstant, gitPruneFlagConstant, remoteName}, references...)
	if _, executionError := provider.run(executionContext, handle.Path(), arguments); executionError != nil {
		return classifyFailure(scm.OperationFetch, handle.Path(), executionError)
	}
	return nil
}

// CheckoutHead resets branch to remoteName/branch and checks it out, refusing when tracked files
// have local modifications.
func (provider *ShellProvider) CheckoutHead(executionContext context.Context, handle scm.RepositoryHandle, remoteName string, branch string) error {
	statusResult, statusError := provider.run(executionContext, handle.Path(), []string{gitStatusSubcommandConstant, gitPorcelainFlagConstant, gitTrackedOnlyFlagConstant})
	if statusError != nil {
		return classifyFailure(scm.OperationCheckout, handle.Path(), statusError)
	}
	if len(strings.TrimSpace(statusResult.StandardOutput)) > 0 {
		return scm.NewProviderError(scm.KindDirtyWorkingTree, scm.OperationCheckout, handle.Path(), nil)
	}

	arguments := []string{gitCheckoutSubcommandConstant, gitCreateOrResetFlagConstant, branch, remoteName + remoteBranchTemplateSeparator + branch}
	if _, checkoutError := provider.run(executionContext, handle.Path(), arguments); checkoutError != nil {
		return classifyFailure(scm.OperationCheckout, handle.Path(), checkoutError)
	}
	return nil
}

// CurrentHead reports the checked-out branch, or HEAD when detached, and its commit.
func (provider *ShellProvider) CurrentHead(executionContext context.Context, handle scm.RepositoryHandle) (scm.Head, error) {
	referenceResult, referenceError := provider.run(executionContext, handle.Path(), []string{gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant})
	if referenceError != nil {
		return scm.Head{}, classifyFailure(scm.OperationHead, handle.Path(), referenceError)
	}
	commitResult, commitError := provider.run(executionContext, handle.Path(), []string{gitRevParseSubcommandConstant, gitHeadReferenceConstant})
	if commitError != nil {
		return scm.Head{}, classifyFailure(scm.OperationHead, handle.Path(), commitError)
	}

	reference := strings.TrimSpace(referenceResult.StandardOutput)
	return scm.Head{
		Reference: reference,
		Commit:    strings.TrimSpace(commitResult.StandardOutput),
		Detached:  reference == gitHeadReferenceConstant,
	}, nil
}

func (provider *ShellProvider) run(executionContext context.Context, workingDirectory string, arguments []string) (execshell.ExecutionResult, error) {
	return provider.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     workingDirectory,
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentKey: gitTerminalPromptDisabledValue},
	})
}
