package execshell_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/vendman/internal/execshell"
)

const (
	testShellExecutableConstant   = "sh"
	testCommandDeadlineConstant   = 200 * time.Millisecond
	testCancellationBoundConstant = 2500 * time.Millisecond
)

func TestOSCommandRunnerHonorsDeadlineWithLingeringChildren(testInstance *testing.T) {
	if _, lookupError := exec.LookPath(testShellExecutableConstant); lookupError != nil {
		testInstance.Skip("sh not available")
	}

	executionContext, cancel := context.WithTimeout(context.Background(), testCommandDeadlineConstant)
	defer cancel()

	runner := execshell.NewOSCommandRunner()
	startedAt := time.Now()
	_, runError := runner.Run(executionContext, execshell.ShellCommand{
		Name:    execshell.CommandName(testShellExecutableConstant),
		Details: execshell.CommandDetails{Arguments: []string{"-c", "sleep 5 & sleep 5"}},
	})

	require.ErrorIs(testInstance, runError, context.DeadlineExceeded)
	require.Less(testInstance, time.Since(startedAt), testCancellationBoundConstant)
}

func TestOSCommandRunnerReportsExitCode(testInstance *testing.T) {
	if _, lookupError := exec.LookPath(testShellExecutableConstant); lookupError != nil {
		testInstance.Skip("sh not available")
	}

	result, runError := execshell.NewOSCommandRunner().Run(context.Background(), execshell.ShellCommand{
		Name:    execshell.CommandName(testShellExecutableConstant),
		Details: execshell.CommandDetails{Arguments: []string{"-c", "echo out; echo err >&2; exit 3"}},
	})

	require.NoError(testInstance, runError)
	require.Equal(testInstance, execshell.ExecutionResult{StandardOutput: "out\n", StandardError: "err\n", ExitCode: 3}, result)
}
