package gitrepo_test

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/vendman/internal/execshell"
	"github.com/temirov/vendman/internal/gitrepo"
	"github.com/temirov/vendman/internal/scm"
)

const testWorkingCopyPathConstant = "/tmp/vendman/tool"

type scriptedResponse struct {
	result execshell.ExecutionResult
	err    error
}

type recordingGitExecutor struct {
	responses        map[string]scriptedResponse
	recordedCommands []execshell.CommandDetails
}

func (executor *recordingGitExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, details)
	response, exists := executor.responses[strings.Join(details.Arguments, " ")]
	if !exists {
		return execshell.ExecutionResult{}, nil
	}
	return response.result, response.err
}

func failedGitCommand(arguments string, exitCode int, standardError string) scriptedResponse {
	command := execshell.ShellCommand{Name: execshell.CommandGit, Details: execshell.CommandDetails{Arguments: strings.Fields(arguments)}}
	return scriptedResponse{err: execshell.CommandFailedError{Command: command, Result: execshell.ExecutionResult{ExitCode: exitCode, StandardError: standardError}}}
}

func TestNewShellProviderRequiresExecutor(testInstance *testing.T) {
	_, creationError := gitrepo.NewShellProvider(nil)
	require.ErrorIs(testInstance, creationError, gitrepo.ErrGitExecutorNotConfigured)
}

func TestShellProviderIssuesGitCommands(testInstance *testing.T) {
	testCases := []struct {
		name              string
		invoke            func(provider *gitrepo.ShellProvider) error
		expectedArguments [][]string
		expectedDirectory string
	}{
		{
			name: "clone default branch",
			invoke: func(provider *gitrepo.ShellProvider) error {
				_, cloneError := provider.Clone(context.Background(), "https://example.com/org/tool.git", testWorkingCopyPathConstant, "origin", "")
				return cloneError
			},
			expectedArguments: [][]string{{"clone", "--origin", "origin", "--", "https://example.com/org/tool.git", testWorkingCopyPathConstant}},
		},
		{
			name: "clone pinned branch",
			invoke: func(provider *gitrepo.ShellProvider) error {
				_, cloneError := provider.Clone(context.Background(), "https://example.com/org/tool.git", testWorkingCopyPathConstant, "upstream", "dev")
				return cloneError
			},
			expectedArguments: [][]string{{"clone", "--origin", "upstream", "--branch", "dev", "--", "https://example.com/org/tool.git", testWorkingCopyPathConstant}},
		},
		{
			name: "fetch all",
			invoke: func(provider *gitrepo.ShellProvider) error {
				return provider.Fetch(context.Background(), scm.WorkingCopy{Directory: testWorkingCopyPathConstant}, "origin", nil)
			},
			expectedArguments: [][]string{{"fetch", "--prune", "origin"}},
			expectedDirectory: testWorkingCopyPathConstant,
		},
		{
			name: "fetch reference",
			invoke: func(provider *gitrepo.ShellProvider) error {
				return provider.Fetch(context.Background(), scm.WorkingCopy{Directory: testWorkingCopyPathConstant}, "origin", []string{"dev"})
			},
			expectedArguments: [][]string{{"fetch", "--prune", "origin", "dev"}},
			expectedDirectory: testWorkingCopyPathConstant,
		},
		{
			name: "checkout head",
			invoke: func(provider *gitrepo.ShellProvider) error {
				return provider.CheckoutHead(context.Background(), scm.WorkingCopy{Directory: testWorkingCopyPathConstant}, "origin", "dev")
			},
			expectedArguments: [][]string{
				{"status", "--porcelain", "--untracked-files=no"},
				{"checkout", "-B", "dev", "origin/dev"},
			},
			expectedDirectory: testWorkingCopyPathConstant,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingGitExecutor{}
			provider, creationError := gitrepo.NewShellProvider(executor)
			require.NoError(testInstance, creationError)

			require.NoError(testInstance, testCase.invoke(provider))
			require.Len(testInstance, executor.recordedCommands, len(testCase.expectedArguments))
			for commandIndex, recordedCommand := range executor.recordedCommands {
				require.Equal(testInstance, testCase.expectedArguments[commandIndex], recordedCommand.Arguments)
				require.Equal(testInstance, testCase.expectedDirectory, recordedCommand.WorkingDirectory)
				require.Equal(testInstance, "0", recordedCommand.EnvironmentVariables["GIT_TERMINAL_PROMPT"])
			}
		})
	}
}

func TestShellProviderCurrentHead(testInstance *testing.T) {
	testCases := []struct {
		name         string
		branchOutput string
		expectedHead scm.Head
	}{
		{
			name:         "on branch",
			branchOutput: "dev\n",
			expectedHead: scm.Head{Reference: "dev", Commit: "0123abcd"},
		},
		{
			name:         "detached",
			branchOutput: "HEAD\n",
			expectedHead: scm.Head{Reference: "HEAD", Commit: "0123abcd", Detached: true},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingGitExecutor{responses: map[string]scriptedResponse{
				"rev-parse --abbrev-ref HEAD": {result: execshell.ExecutionResult{StandardOutput: testCase.branchOutput}},
				"rev-parse HEAD":              {result: execshell.ExecutionResult{StandardOutput: "0123abcd\n"}},
			}}
			provider, creationError := gitrepo.NewShellProvider(executor)
			require.NoError(testInstance, creationError)

			head, headError := provider.CurrentHead(context.Background(), scm.WorkingCopy{Directory: testWorkingCopyPathConstant})
			require.NoError(testInstance, headError)
			require.Equal(testInstance, testCase.expectedHead, head)
		})
	}
}

func TestShellProviderOpen(testInstance *testing.T) {
	testCases := []struct {
		name         string
		response     scriptedResponse
		expectedKind scm.ErrorKind
		expectError  bool
	}{
		{
			name:     "repository root",
			response: scriptedResponse{result: execshell.ExecutionResult{StandardOutput: ".git\n"}},
		},
		{
			name:         "nested in another repository",
			response:     scriptedResponse{result: execshell.ExecutionResult{StandardOutput: "/home/user/project/.git\n"}},
			expectError:  true,
			expectedKind: scm.KindRepositoryMissing,
		},
		{
			name:         "not a repository",
			response:     failedGitCommand("rev-parse --git-dir", 128, "fatal: not a git repository (or any of the parent directories): .git"),
			expectError:  true,
			expectedKind: scm.KindRepositoryMissing,
		},
		{
			name: "missing directory",
			response: scriptedResponse{err: execshell.CommandExecutionError{
				Cause: &fs.PathError{Op: "chdir", Path: testWorkingCopyPathConstant, Err: fs.ErrNotExist},
			}},
			expectError:  true,
			expectedKind: scm.KindRepositoryMissing,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingGitExecutor{responses: map[string]scriptedResponse{"rev-parse --git-dir": testCase.response}}
			provider, creationError := gitrepo.NewShellProvider(executor)
			require.NoError(testInstance, creationError)

			handle, openError := provider.Open(context.Background(), testWorkingCopyPathConstant)
			if !testCase.expectError {
				require.NoError(testInstance, openError)
				require.Equal(testInstance, testWorkingCopyPathConstant, handle.Path())
				return
			}
			require.Equal(testInstance, testCase.expectedKind, scm.KindOf(openError))
		})
	}
}

func TestShellProviderRefusesDirtyCheckout(testInstance *testing.T) {
	executor := &recordingGitExecutor{responses: map[string]scriptedResponse{
		"status --porcelain --untracked-files=no": {result: execshell.ExecutionResult{StandardOutput: " M README.md\n"}},
	}}
	provider, creationError := gitrepo.NewShellProvider(executor)
	require.NoError(testInstance, creationError)

	checkoutError := provider.CheckoutHead(context.Background(), scm.WorkingCopy{Directory: testWorkingCopyPathConstant}, "origin", "main")
	require.Equal(testInstance, scm.KindDirtyWorkingTree, scm.KindOf(checkoutError))
	require.Len(testInstance, executor.recordedCommands, 1)
}

func TestShellProviderClassifiesFailures(testInstance *testing.T) {
	testCases := []struct {
		name          string
		arguments     string
		standardError string
		invoke        func(provider *gitrepo.ShellProvider) error
		expectedKind  scm.ErrorKind
	}{
		{
			name:          "clone auth",
			arguments:     "clone -- https://example.com/org/tool.git " + testWorkingCopyPathConstant,
			standardError: "fatal: could not read Username for 'https://example.com': terminal prompts disabled",
			expectedKind:  scm.KindAuthFailed,
		},
		{
			name:          "clone conflict",
			arguments:     "clone -- https://example.com/org/tool.git " + testWorkingCopyPathConstant,
			standardError: "fatal: destination path '" + testWorkingCopyPathConstant + "' already exists and is not an empty directory.",
			expectedKind:  scm.KindPathConflict,
		},
		{
			name:          "clone missing source",
			arguments:     "clone -- https://example.com/org/tool.git " + testWorkingCopyPathConstant,
			standardError: "remote: Repository not found.\nfatal: repository 'https://example.com/org/tool.git/' not found",
			expectedKind:  scm.KindSourceUnavailable,
		},
		{
			name:          "clone missing local source",
			arguments:     "clone -- https://example.com/org/tool.git " + testWorkingCopyPathConstant,
			standardError: "fatal: 'https://example.com/org/tool.git' does not appear to be a git repository",
			expectedKind:  scm.KindSourceUnavailable,
		},
		{
			name:          "clone network",
			arguments:     "clone -- https://example.com/org/tool.git " + testWorkingCopyPathConstant,
			standardError: "fatal: unable to access 'https://example.com/org/tool.git/': Could not resolve host: example.com",
			expectedKind:  scm.KindNetworkError,
		},
		{
			name:          "fetch missing remote",
			arguments:     "fetch --prune origin",
			standardError: "fatal: 'origin' does not appear to be a git repository\nfatal: Could not read from remote repository.",
			invoke: func(provider *gitrepo.ShellProvider) error {
				return provider.Fetch(context.Background(), scm.WorkingCopy{Directory: testWorkingCopyPathConstant}, "origin", nil)
			},
			expectedKind: scm.KindRemoteNotFound,
		},
		{
			name:          "fetch missing branch",
			arguments:     "fetch --prune origin nope",
			standardError: "fatal: couldn't find remote ref nope",
			invoke: func(provider *gitrepo.ShellProvider) error {
				return provider.Fetch(context.Background(), scm.WorkingCopy{Directory: testWorkingCopyPathConstant}, "origin", []string{"nope"})
			},
			expectedKind: scm.KindInvalidReference,
		},
		{
			name:          "head of empty repository",
			arguments:     "rev-parse --abbrev-ref HEAD",
			standardError: "fatal: ambiguous argument 'HEAD': unknown revision or path not in the working tree.",
			invoke: func(provider *gitrepo.ShellProvider) error {
				_, headError := provider.CurrentHead(context.Background(), scm.WorkingCopy{Directory: testWorkingCopyPathConstant})
				return headError
			},
			expectedKind: scm.KindEmptyRepository,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingGitExecutor{responses: map[string]scriptedResponse{
				testCase.arguments: failedGitCommand(testCase.arguments, 128, testCase.standardError),
			}}
			provider, creationError := gitrepo.NewShellProvider(executor)
			require.NoError(testInstance, creationError)

			invoke := testCase.invoke
			if invoke == nil {
				invoke = func(provider *gitrepo.ShellProvider) error {
					_, cloneError := provider.Clone(context.Background(), "https://example.com/org/tool.git", testWorkingCopyPathConstant, "origin", "")
					return cloneError
				}
			}

			operationError := invoke(provider)
			require.Error(testInstance, operationError)
			require.Equal(testInstance, testCase.expectedKind, scm.KindOf(operationError))

			var commandFailure execshell.CommandFailedError
			require.True(testInstance, errors.As(operationError, &commandFailure))
		})
	}
}

func TestShellProviderClassifiesDeadline(testInstance *testing.T) {
	executor := &recordingGitExecutor{responses: map[string]scriptedResponse{
		"fetch --prune origin": {err: execshell.CommandExecutionError{Cause: context.DeadlineExceeded}},
	}}
	provider, creationError := gitrepo.NewShellProvider(executor)
	require.NoError(testInstance, creationError)

	fetchError := provider.Fetch(context.Background(), scm.WorkingCopy{Directory: testWorkingCopyPathConstant}, "origin", nil)
	require.Equal(testInstance, scm.KindTimeout, scm.KindOf(fetchError))
	require.ErrorIs(testInstance, fetchError, context.DeadlineExceeded)
}
