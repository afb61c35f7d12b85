package execshell

import (
	"fmt"
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
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	gitFetchAllRemotesLabelConstant         = "all remotes"
)

const (
	gitRemoteSubcommandNameConstant       = "remote"
	gitRemoteUpdateSubcommandNameConstant = "update"
	gitStatusSubcommandNameConstant       = "status"
	gitBranchSubcommandNameConstant       = "branch"
	gitDeleteFlagConstant                 = "--delete"
	gitShortDeleteFlagConstant            = "-d"
	gitShortForceDeleteFlagConstant       = "-D"
	gitForceFlagConstant                  = "--force"
	gitContainsFlagConstant               = "--contains"
	gitFetchSubcommandNameConstant        = "fetch"
	gitPruneFlagConstant                  = "--prune"
	gitPushSubcommandNameConstant         = "push"
	gitLSRemoteSubcommandNameConstant     = "ls-remote"
	gitHeadsFlagConstant                  = "--heads"
	gitSubmoduleSubcommandNameConstant    = "submodule"
)

const (
	gitRemoteUpdateStartTemplateConstant               = "Updating remote tracking branches in %s"
	gitRemoteUpdateSuccessTemplateConstant             = "Updated remote tracking branches in %s"
	gitRemoteUpdateFailureTemplateConstant             = "Failed to update remote tracking branches in %s (exit code %d%s)"
	gitRemoteUpdateExecutionFailureTemplateConstant    = "Unable to update remote tracking branches in %s: %s"
	gitStatusStartTemplateConstant                     = "Reviewing working tree status in %s"
	gitStatusSuccessTemplateConstant                   = "Collected working tree status for %s"
	gitStatusFailureTemplateConstant                   = "Failed to review working tree status in %s (exit code %d%s)"
	gitStatusExecutionFailureTemplateConstant          = "Unable to review working tree status in %s: %s"
	gitBranchDeletionStartTemplateConstant             = "Removing local branch %s in %s"
	gitBranchForceDeletionStartTemplateConstant        = "Force removing local branch %s in %s"
	gitBranchDeletionSuccessTemplateConstant           = "Removed local branch %s in %s"
	gitBranchDeletionFailureTemplateConstant           = "Failed to remove local branch %s in %s (exit code %d%s)"
	gitBranchDeletionExecutionFailureTemplateConstant  = "Unable to remove local branch %s in %s: %s"
	gitBranchContainsStartTemplateConstant             = "Finding branches containing %s in %s"
	gitBranchContainsSuccessTemplateConstant           = "Found branches containing %s in %s"
	gitBranchContainsFailureTemplateConstant           = "Failed to find branches containing %s in %s (exit code %d%s)"
	gitBranchContainsExecutionFailureTemplateConstant  = "Unable to find branches containing %s in %s: %s"
	gitFetchStartTemplateConstant                      = "Fetching from %s in %s"
	gitFetchPruneStartTemplateConstant                 = "Fetching from %s and pruning stale remote branches in %s"
	gitFetchSuccessTemplateConstant                    = "Fetched from %s in %s"
	gitFetchFailureTemplateConstant                    = "Failed to fetch from %s in %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant           = "Unable to fetch from %s in %s: %s"
	gitPushDeletionStartTemplateConstant               = "Deleting remote branch %s from %s in %s"
	gitPushDeletionSuccessTemplateConstant             = "Deleted remote branch %s from %s in %s"
	gitPushDeletionFailureTemplateConstant             = "Failed to delete remote branch %s from %s in %s (exit code %d%s)"
	gitPushDeletionExecutionFailureTemplateConstant    = "Unable to delete remote branch %s from %s in %s: %s"
	gitLSRemoteHeadsStartTemplateConstant              = "Listing branches on %s from %s"
	gitLSRemoteHeadsSuccessTemplateConstant            = "Listed branches on %s from %s"
	gitLSRemoteHeadsFailureTemplateConstant            = "Failed to list branches on %s from %s (exit code %d%s)"
	gitLSRemoteHeadsExecutionFailureTemplateConstant   = "Unable to list branches on %s from %s: %s"
	gitSubmoduleStatusStartTemplateConstant            = "Reading submodule status in %s"
	gitSubmoduleStatusSuccessTemplateConstant          = "Read submodule status in %s"
	gitSubmoduleStatusFailureTemplateConstant          = "Failed to read submodule status in %s (exit code %d%s)"
	gitSubmoduleStatusExecutionFailureTemplateConstant = "Unable to read submodule status in %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
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

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case gitRemoteSubcommandNameConstant:
		if formatter.argumentAtIndex(command.Details.Arguments, 1) == gitRemoteUpdateSubcommandNameConstant {
			return formatter.describeFourStages(command, result, failure, stage, stageTemplates{
				start:            gitRemoteUpdateStartTemplateConstant,
				success:          gitRemoteUpdateSuccessTemplateConstant,
				failure:          gitRemoteUpdateFailureTemplateConstant,
				executionFailure: gitRemoteUpdateExecutionFailureTemplateConstant,
			})
		}
	case gitStatusSubcommandNameConstant:
		return formatter.describeFourStages(command, result, failure, stage, stageTemplates{
			start:            gitStatusStartTemplateConstant,
			success:          gitStatusSuccessTemplateConstant,
			failure:          gitStatusFailureTemplateConstant,
			executionFailure: gitStatusExecutionFailureTemplateConstant,
		})
	case gitSubmoduleSubcommandNameConstant:
		return formatter.describeFourStages(command, result, failure, stage, stageTemplates{
			start:            gitSubmoduleStatusStartTemplateConstant,
			success:          gitSubmoduleStatusSuccessTemplateConstant,
			failure:          gitSubmoduleStatusFailureTemplateConstant,
			executionFailure: gitSubmoduleStatusExecutionFailureTemplateConstant,
		})
	case gitBranchSubcommandNameConstant:
		return formatter.describeGitBranchMessage(command, result, failure, stage)
	case gitFetchSubcommandNameConstant:
		return formatter.describeGitFetchMessage(command, result, failure, stage)
	case gitPushSubcommandNameConstant:
		return formatter.describeGitPushMessage(command, result, failure, stage)
	case gitLSRemoteSubcommandNameConstant:
		return formatter.describeGitLSRemoteMessage(command, result, failure, stage)
	}

	return formatter.buildGenericMessage(command, result, failure, stage)
}

type stageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

// describeFourStages formats templates whose only placeholder besides failure details is the working directory.
func (formatter CommandMessageFormatter) describeFourStages(command ShellCommand, result ExecutionResult, failure error, stage messageStage, templates stageTemplates) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(templates.failure, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(templates.executionFailure, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitBranchMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)

	if containsArgument(arguments, gitContainsFlagConstant) {
		commit := formatter.ensureValue(formatter.argumentAfter(arguments, gitContainsFlagConstant))
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitBranchContainsStartTemplateConstant, commit, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitBranchContainsSuccessTemplateConstant, commit, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(gitBranchContainsFailureTemplateConstant, commit, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(gitBranchContainsExecutionFailureTemplateConstant, commit, workingDirectory, formatter.describeFailure(failure))
		}
	}

	forced := containsArgument(arguments, gitShortForceDeleteFlagConstant) || containsArgument(arguments, gitForceFlagConstant)
	deleting := forced || containsArgument(arguments, gitShortDeleteFlagConstant) || containsArgument(arguments, gitDeleteFlagConstant)
	if !deleting {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	branchName := formatter.ensureValue(formatter.extractLastNonFlagArgument(arguments[1:]))
	switch stage {
	case messageStageStart:
		if forced {
			return fmt.Sprintf(gitBranchForceDeletionStartTemplateConstant, branchName, workingDirectory)
		}
		return fmt.Sprintf(gitBranchDeletionStartTemplateConstant, branchName, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitBranchDeletionSuccessTemplateConstant, branchName, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitBranchDeletionFailureTemplateConstant, branchName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitBranchDeletionExecutionFailureTemplateConstant, branchName, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitFetchMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	remoteName := formatter.extractFirstNonFlagArgument(command.Details.Arguments[1:])
	if len(remoteName) == 0 {
		remoteName = gitFetchAllRemotesLabelConstant
	}

	switch stage {
	case messageStageStart:
		if containsArgument(command.Details.Arguments, gitPruneFlagConstant) {
			return fmt.Sprintf(gitFetchPruneStartTemplateConstant, remoteName, workingDirectory)
		}
		return fmt.Sprintf(gitFetchStartTemplateConstant, remoteName, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitFetchSuccessTemplateConstant, remoteName, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitFetchFailureTemplateConstant, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitFetchExecutionFailureTemplateConstant, remoteName, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitPushMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	deletionTarget := strings.TrimSpace(formatter.argumentAfter(arguments, gitDeleteFlagConstant))
	if len(deletionTarget) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	remoteName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 1))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitPushDeletionStartTemplateConstant, deletionTarget, remoteName, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitPushDeletionSuccessTemplateConstant, deletionTarget, remoteName, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitPushDeletionFailureTemplateConstant, deletionTarget, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitPushDeletionExecutionFailureTemplateConstant, deletionTarget, remoteName, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitLSRemoteMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if !containsArgument(command.Details.Arguments, gitHeadsFlagConstant) {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	remoteName := formatter.ensureValue(formatter.extractFirstNonFlagArgument(command.Details.Arguments[1:]))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitLSRemoteHeadsStartTemplateConstant, remoteName, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitLSRemoteHeadsSuccessTemplateConstant, remoteName, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitLSRemoteHeadsFailureTemplateConstant, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitLSRemoteHeadsExecutionFailureTemplateConstant, remoteName, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index >= 0 && index < len(arguments) {
		return strings.TrimSpace(arguments[index])
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) argumentAfter(arguments []string, flag string) string {
	for index := 0; index+1 < len(arguments); index++ {
		if strings.TrimSpace(arguments[index]) == flag {
			return strings.TrimSpace(arguments[index+1])
		}
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) extractFirstNonFlagArgument(arguments []string) string {
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, "-") {
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) extractLastNonFlagArgument(arguments []string) string {
	for index := len(arguments) - 1; index >= 0; index-- {
		trimmed := strings.TrimSpace(arguments[index])
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, "-") {
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}
