package execshell

import (
	"fmt"
	"path/filepath"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	argumentFlagPrefixConstant              = "-"
	argumentTerminatorConstant              = "--"
)

const (
	gitCloneSubcommandNameConstant    = "clone"
	gitFetchSubcommandNameConstant    = "fetch"
	gitCheckoutSubcommandNameConstant = "checkout"
	gitRevParseSubcommandNameConstant = "rev-parse"
	gitStatusSubcommandNameConstant   = "status"
	gitBranchFlagConstant             = "--branch"
	gitAbbrevRefFlagConstant          = "--abbrev-ref"
	gitDirectoryFlagConstant          = "--git-dir"
	gitCreateOrResetBranchFlag        = "-B"
	gitHeadReferenceConstant          = "HEAD"
)

const (
	gitCloneStartTemplateConstant                      = "Cloning %s into %s"
	gitCloneBranchStartTemplateConstant                = "Cloning %s (branch %s) into %s"
	gitCloneSuccessTemplateConstant                    = "Cloned %s into %s"
	gitCloneFailureTemplateConstant                    = "Failed to clone %s into %s (exit code %d%s)"
	gitCloneExecutionFailureTemplateConstant           = "Unable to clone %s into %s: %s"
	gitFetchStartTemplateConstant                      = "Fetching %s from %s in %s"
	gitFetchWithoutRefsStartTemplateConstant           = "Fetching from %s in %s"
	gitFetchSuccessTemplateConstant                    = "Fetched %s from %s in %s"
	gitFetchWithoutRefsSuccessTemplateConstant         = "Fetched from %s in %s"
	gitFetchFailureTemplateConstant                    = "Failed to fetch from %s in %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant           = "Unable to fetch from %s in %s: %s"
	gitCheckoutStartTemplateConstant                   = "Moving %s to %s"
	gitCheckoutSuccessTemplateConstant                 = "%s now on %s"
	gitCheckoutFailureTemplateConstant                 = "Failed to move %s to %s (exit code %d%s)"
	gitCheckoutExecutionFailureTemplateConstant        = "Unable to move %s to %s: %s"
	gitCurrentBranchStartTemplateConstant              = "Identifying current branch in %s"
	gitCurrentBranchSuccessTemplateConstant            = "Current branch in %s is %s"
	gitCurrentBranchDetachedSuccessTemplateConstant    = "%s is in a detached HEAD state"
	gitCurrentBranchFailureTemplateConstant            = "Failed to identify current branch in %s (exit code %d%s)"
	gitCurrentBranchExecutionFailureTemplateConstant   = "Unable to identify current branch in %s: %s"
	gitRepositoryCheckStartTemplateConstant            = "Verifying repository in %s"
	gitRepositoryCheckSuccessTemplateConstant          = "%s is a git repository"
	gitRepositoryCheckFailureTemplateConstant          = "Failed to verify repository in %s (exit code %d%s)"
	gitRepositoryCheckExecutionFailureTemplateConstant = "Unable to verify repository in %s: %s"
	gitRevisionStartTemplateConstant                   = "Resolving %s in %s"
	gitRevisionSuccessTemplateConstant                 = "%s in %s resolved to %s"
	gitRevisionFailureTemplateConstant                 = "Failed to resolve %s in %s (exit code %d%s)"
	gitRevisionExecutionFailureTemplateConstant        = "Unable to resolve %s in %s: %s"
	gitStatusStartTemplateConstant                     = "Reviewing working tree status in %s"
	gitStatusSuccessTemplateConstant                   = "Collected working tree status for %s"
	gitStatusFailureTemplateConstant                   = "Failed to review working tree status in %s (exit code %d%s)"
	gitStatusExecutionFailureTemplateConstant          = "Unable to review working tree status in %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	switch strings.TrimSpace(command.Details.Arguments[0]) {
	case gitCloneSubcommandNameConstant:
		return formatter.describeGitCloneMessage(command, result, failure, stage)
	case gitFetchSubcommandNameConstant:
		return formatter.describeGitFetchMessage(command, result, failure, stage)
	case gitCheckoutSubcommandNameConstant:
		return formatter.describeGitCheckoutMessage(command, result, failure, stage)
	case gitRevParseSubcommandNameConstant:
		return formatter.describeGitRevParseMessage(command, result, failure, stage)
	case gitStatusSubcommandNameConstant:
		return formatter.describeGitStatusMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitCloneMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	positionalArguments := formatter.positionalArguments(command.Details.Arguments[1:])
	locator := formatter.ensureValue(formatter.argumentAtIndex(positionalArguments, 0))
	destination := formatter.ensureValue(formatter.argumentAtIndex(positionalArguments, 1))
	branchName := formatter.flagValue(command.Details.Arguments, gitBranchFlagConstant)

	switch stage {
	case messageStageStart:
		if len(branchName) > 0 {
			return fmt.Sprintf(gitCloneBranchStartTemplateConstant, locator, branchName, destination)
		}
		return fmt.Sprintf(gitCloneStartTemplateConstant, locator, destination)
	case messageStageSuccess:
		return fmt.Sprintf(gitCloneSuccessTemplateConstant, locator, destination)
	case messageStageFailure:
		return fmt.Sprintf(gitCloneFailureTemplateConstant, locator, destination, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitCloneExecutionFailureTemplateConstant, locator, destination, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitFetchMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	positionalArguments := formatter.positionalArguments(command.Details.Arguments[1:])
	remoteName := formatter.ensureValue(formatter.argumentAtIndex(positionalArguments, 0))
	references := []string{}
	if len(positionalArguments) > 1 {
		references = positionalArguments[1:]
	}
	joinedReferences := strings.Join(references, ", ")

	switch stage {
	case messageStageStart:
		if len(joinedReferences) == 0 {
			return fmt.Sprintf(gitFetchWithoutRefsStartTemplateConstant, remoteName, workingDirectory)
		}
		return fmt.Sprintf(gitFetchStartTemplateConstant, joinedReferences, remoteName, workingDirectory)
	case messageStageSuccess:
		if len(joinedReferences) == 0 {
			return fmt.Sprintf(gitFetchWithoutRefsSuccessTemplateConstant, remoteName, workingDirectory)
		}
		return fmt.Sprintf(gitFetchSuccessTemplateConstant, joinedReferences, remoteName, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitFetchFailureTemplateConstant, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitFetchExecutionFailureTemplateConstant, remoteName, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitCheckoutMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	target := formatter.flagValue(command.Details.Arguments, gitCreateOrResetBranchFlag)
	if len(target) == 0 {
		target = formatter.argumentAtIndex(formatter.positionalArguments(command.Details.Arguments[1:]), 0)
	}
	target = formatter.ensureValue(target)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCheckoutStartTemplateConstant, workingDirectory, target)
	case messageStageSuccess:
		return fmt.Sprintf(gitCheckoutSuccessTemplateConstant, workingDirectory, target)
	case messageStageFailure:
		return fmt.Sprintf(gitCheckoutFailureTemplateConstant, workingDirectory, target, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitCheckoutExecutionFailureTemplateConstant, workingDirectory, target, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitRevParseMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	trimmedOutput := strings.TrimSpace(result.StandardOutput)

	if containsArgument(command.Details.Arguments, gitAbbrevRefFlagConstant) {
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitCurrentBranchStartTemplateConstant, workingDirectory)
		case messageStageSuccess:
			if len(trimmedOutput) == 0 || trimmedOutput == gitHeadReferenceConstant {
				return fmt.Sprintf(gitCurrentBranchDetachedSuccessTemplateConstant, workingDirectory)
			}
			return fmt.Sprintf(gitCurrentBranchSuccessTemplateConstant, workingDirectory, trimmedOutput)
		case messageStageFailure:
			return fmt.Sprintf(gitCurrentBranchFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return fmt.Sprintf(gitCurrentBranchExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
		}
	}

	if containsArgument(command.Details.Arguments, gitDirectoryFlagConstant) {
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitRepositoryCheckStartTemplateConstant, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitRepositoryCheckSuccessTemplateConstant, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(gitRepositoryCheckFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return fmt.Sprintf(gitRepositoryCheckExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
		}
	}

	positionalArguments := formatter.positionalArguments(command.Details.Arguments[1:])
	reference := formatter.ensureValue(formatter.argumentAtIndex(positionalArguments, len(positionalArguments)-1))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitRevisionStartTemplateConstant, reference, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitRevisionSuccessTemplateConstant, reference, workingDirectory, formatter.ensureValue(trimmedOutput))
	case messageStageFailure:
		return fmt.Sprintf(gitRevisionFailureTemplateConstant, reference, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitRevisionExecutionFailureTemplateConstant, reference, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitStatusMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitStatusStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitStatusSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitStatusFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitStatusExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := command.String()
	if trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory); len(trimmedWorkingDirectory) > 0 {
		commandLabel += fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

// positionalArguments drops flags and the "--" terminator, keeping operands in order.
func (formatter CommandMessageFormatter) positionalArguments(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	skipNext := false
	for _, argument := range arguments {
		trimmedArgument := strings.TrimSpace(argument)
		if skipNext {
			skipNext = false
			continue
		}
		if trimmedArgument == argumentTerminatorConstant {
			continue
		}
		if strings.HasPrefix(trimmedArgument, argumentFlagPrefixConstant) {
			skipNext = trimmedArgument == gitBranchFlagConstant || trimmedArgument == gitCreateOrResetBranchFlag
			continue
		}
		positional = append(positional, trimmedArgument)
	}
	return positional
}

func (formatter CommandMessageFormatter) flagValue(arguments []string, flagName string) string {
	for argumentIndex, argument := range arguments {
		if strings.TrimSpace(argument) == flagName {
			return strings.TrimSpace(formatter.argumentAtIndex(arguments, argumentIndex+1))
		}
	}
	return ""
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index < 0 || index >= len(arguments) {
		return ""
	}
	return arguments[index]
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return filepath.Base(trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	if len(strings.TrimSpace(value)) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return value
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return ""
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func containsArgument(arguments []string, target string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == target {
			return true
		}
	}
	return false
}
