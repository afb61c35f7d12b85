// Package dependencies resolves the collaborators commands fall back to when tests do not inject their own.
package dependencies

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/canopy/internal/checkout"
	"github.com/temirov/canopy/internal/execshell"
	pathutils "github.com/temirov/canopy/internal/utils/path"
	"github.com/temirov/canopy/internal/workspace"
)

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
func ResolveGitExecutor(existing checkout.GitExecutor, logger *zap.Logger) (checkout.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, creationError := execshell.NewShellExecutor(logger, commandRunner)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveScanner returns the provided scanner or a git-backed default running git through the executor.
func ResolveScanner(existing workspace.Scanner, executor checkout.GitExecutor) (workspace.Scanner, error) {
	if existing != nil {
		return existing, nil
	}
	return workspace.NewGitScanner(executor)
}

// ResolveWorkingPath picks the first positional argument, then the configured working directory, then the process
// working directory. A leading "~" is expanded. Existing paths are canonicalized; others are only made absolute.
func ResolveWorkingPath(arguments []string, workingDirectory string) (string, error) {
	candidate := strings.TrimSpace(workingDirectory)
	if len(arguments) > 0 && len(strings.TrimSpace(arguments[0])) > 0 {
		candidate = strings.TrimSpace(arguments[0])
	}
	if len(candidate) == 0 {
		processDirectory, directoryError := os.Getwd()
		if directoryError != nil {
			return "", directoryError
		}
		candidate = processDirectory
	}
	candidate = pathutils.NewHomeExpander().Expand(candidate)

	if canonicalPath, canonicalError := checkout.CanonicalPath(candidate); canonicalError == nil {
		return canonicalPath, nil
	}
	return filepath.Abs(candidate)
}

// OpenWorkspace opens the workspace model enclosing path.
func OpenWorkspace(logger *zap.Logger, existingScanner workspace.Scanner, existingExecutor checkout.GitExecutor, path string) (*workspace.Model, error) {
	executor, executorError := ResolveGitExecutor(existingExecutor, logger)
	if executorError != nil {
		return nil, executorError
	}
	scanner, scannerError := ResolveScanner(existingScanner, executor)
	if scannerError != nil {
		return nil, scannerError
	}
	return workspace.Open(logger, scanner, path)
}
