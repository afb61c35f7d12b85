package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
)

const environmentAssignmentSeparatorConstant = "="

// nonInteractiveEnvironment keeps git from prompting for credentials and pins its messages to the C locale.
var nonInteractiveEnvironment = map[string]string{
	"GIT_TERMINAL_PROMPT": "0",
	"LC_ALL":              "C",
}

// OSCommandRunner executes commands with os/exec.
type OSCommandRunner struct {
	baseEnvironment func() []string
}

// NewOSCommandRunner constructs a runner inheriting the process environment.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{baseEnvironment: os.Environ}
}

// Run executes the command and captures its output. A non-zero exit is reported through ExecutionResult.ExitCode;
// the error is reserved for commands that could not run at all.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executable := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	executable.Dir = command.Details.WorkingDirectory
	executable.Env = runner.environment(command.Details.EnvironmentVariables)

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	executable.Stdout = &standardOutputBuffer
	executable.Stderr = &standardErrorBuffer
	if len(command.Details.StandardInput) > 0 {
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	result := ExecutionResult{}
	if runError := executable.Run(); runError != nil {
		var exitError *exec.ExitError
		if !errors.As(runError, &exitError) {
			return ExecutionResult{}, runError
		}
		result.ExitCode = exitError.ExitCode()
	}
	result.StandardOutput = standardOutputBuffer.String()
	result.StandardError = standardErrorBuffer.String()
	return result, nil
}

// environment appends the non-interactive settings and then the command's own variables, later entries winning.
func (runner *OSCommandRunner) environment(overrides map[string]string) []string {
	baseEnvironment := os.Environ
	if runner != nil && runner.baseEnvironment != nil {
		baseEnvironment = runner.baseEnvironment
	}
	merged := append([]string{}, baseEnvironment()...)
	merged = appendAssignments(merged, nonInteractiveEnvironment)
	return appendAssignments(merged, overrides)
}

func appendAssignments(environment []string, assignments map[string]string) []string {
	keys := make([]string, 0, len(assignments))
	for key := range assignments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		environment = append(environment, key+environmentAssignmentSeparatorConstant+assignments[key])
	}
	return environment
}
