package checkout

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/temirov/canopy/internal/execshell"
)

const (
	executorNotConfiguredMessageConstant     = "git checkout executor not configured"
	pathNotConfiguredMessageConstant         = "git checkout path not configured"
	openRepositoryErrorTemplateConstant      = "unable to open repository %s: %w"
	readHeadErrorTemplateConstant            = "unable to read HEAD of %s: %w"
	listBranchesErrorTemplateConstant        = "unable to list branches of %s: %w"
	listRemotesErrorTemplateConstant         = "unable to list remotes of %s: %w"
	resolveReferenceErrorTemplateConstant    = "unable to resolve %s in %s: %w"
	remoteDeletionErrorTemplateConstant      = "%w: %s/%s in %s"
	gitTerminalPromptEnvironmentNameConstant = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisableValueConstant    = "0"
	defaultRemoteNameConstant                = "origin"
	gitBranchSubcommandConstant              = "branch"
	gitAllFlagConstant                       = "-a"
	gitContainsFlagConstant                  = "--contains"
	gitRefnameFormatFlagConstant             = "--format=%(refname)"
	gitSafeDeleteFlagConstant                = "-d"
	gitForceDeleteFlagConstant               = "-D"
	gitRemoteSubcommandConstant              = "remote"
	gitUpdateSubcommandConstant              = "update"
	gitFetchSubcommandConstant               = "fetch"
	gitAllRemotesFlagConstant                = "--all"
	gitPruneFlagConstant                     = "--prune"
	gitPushSubcommandConstant                = "push"
	gitDeleteFlagConstant                    = "--delete"
	gitStatusSubcommandConstant              = "status"
	gitPorcelainFlagConstant                 = "--porcelain"
	gitLSRemoteSubcommandConstant            = "ls-remote"
	gitHeadsFlagConstant                     = "--heads"
	gitSubmoduleSubcommandConstant           = "submodule"
	gitRecursiveFlagConstant                 = "--recursive"
)

// ErrExecutorNotConfigured indicates a GitCheckout was created without a git executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// ErrPathNotConfigured indicates a GitCheckout was created without a path.
var ErrPathNotConfigured = errors.New(pathNotConfiguredMessageConstant)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// GitCheckout reads repository state through go-git and mutates it through the git executable.
type GitCheckout struct {
	path     string
	executor GitExecutor
}

// NewGitCheckout constructs a checkout rooted at the provided working tree path.
func NewGitCheckout(path string, executor GitExecutor) (*GitCheckout, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return nil, ErrPathNotConfigured
	}
	return &GitCheckout{path: filepath.Clean(trimmedPath), executor: executor}, nil
}

// Path returns the working tree root.
func (checkout *GitCheckout) Path() string {
	return checkout.path
}

// LoggingName returns the directory name of the working tree.
func (checkout *GitCheckout) LoggingName() string {
	return filepath.Base(checkout.path)
}

// CurrentBranchName returns the checked out branch, reporting false when HEAD is detached.
func (checkout *GitCheckout) CurrentBranchName(executionContext context.Context) (string, bool, error) {
	headReference, headError := checkout.readHead()
	if headError != nil {
		return "", false, headError
	}
	if headReference.Type() != plumbing.SymbolicReference || !headReference.Target().IsBranch() {
		return "", false, nil
	}
	return headReference.Target().Short(), true, nil
}

// IsDetachedHead reports whether HEAD points directly at a commit.
func (checkout *GitCheckout) IsDetachedHead(executionContext context.Context) (bool, error) {
	headReference, headError := checkout.readHead()
	if headError != nil {
		return false, headError
	}
	return headReference.Type() == plumbing.HashReference, nil
}

// LocalBranches enumerates refs/heads.
func (checkout *GitCheckout) LocalBranches(executionContext context.Context) ([]Branch, error) {
	repository, openError := checkout.open()
	if openError != nil {
		return nil, openError
	}

	branchIterator, iteratorError := repository.Branches()
	if iteratorError != nil {
		return nil, fmt.Errorf(listBranchesErrorTemplateConstant, checkout.path, iteratorError)
	}
	defer branchIterator.Close()

	var branches []Branch
	iterationError := branchIterator.ForEach(func(reference *plumbing.Reference) error {
		branches = append(branches, LocalBranch(reference.Name().Short()))
		return nil
	})
	if iterationError != nil {
		return nil, fmt.Errorf(listBranchesErrorTemplateConstant, checkout.path, iterationError)
	}

	SortBranches(branches)
	return branches, nil
}

// RemoteBranches enumerates refs/remotes, ignoring the symbolic <remote>/HEAD entries.
func (checkout *GitCheckout) RemoteBranches(executionContext context.Context) ([]Branch, error) {
	repository, openError := checkout.open()
	if openError != nil {
		return nil, openError
	}

	remoteNames, remotesError := checkout.remoteNames(repository)
	if remotesError != nil {
		return nil, remotesError
	}

	referenceIterator, iteratorError := repository.References()
	if iteratorError != nil {
		return nil, fmt.Errorf(listBranchesErrorTemplateConstant, checkout.path, iteratorError)
	}
	defer referenceIterator.Close()

	var branches []Branch
	iterationError := referenceIterator.ForEach(func(reference *plumbing.Reference) error {
		if !reference.Name().IsRemote() || reference.Type() != plumbing.HashReference {
			return nil
		}
		trackingName := strings.TrimPrefix(reference.Name().String(), remoteReferencePrefixConstant)
		branch, parsed := ParseRemoteTrackingName(trackingName, remoteNames)
		if parsed {
			branches = append(branches, branch)
		}
		return nil
	})
	if iterationError != nil {
		return nil, fmt.Errorf(listBranchesErrorTemplateConstant, checkout.path, iterationError)
	}

	SortBranches(branches)
	return branches, nil
}

// HeadOfRef resolves a revision to a commit identifier, reporting false when it does not exist.
func (checkout *GitCheckout) HeadOfRef(executionContext context.Context, reference string) (string, bool, error) {
	repository, openError := checkout.open()
	if openError != nil {
		return "", false, openError
	}

	hash, resolveError := repository.ResolveRevision(plumbing.Revision(reference))
	if resolveError != nil {
		if errors.Is(resolveError, plumbing.ErrReferenceNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf(resolveReferenceErrorTemplateConstant, reference, checkout.path, resolveError)
	}
	return hash.String(), true, nil
}

// DefaultRemoteName returns origin when configured, otherwise the first remote by name.
func (checkout *GitCheckout) DefaultRemoteName(executionContext context.Context) (string, bool, error) {
	repository, openError := checkout.open()
	if openError != nil {
		return "", false, openError
	}

	remoteNames, remotesError := checkout.remoteNames(repository)
	if remotesError != nil {
		return "", false, remotesError
	}
	if len(remoteNames) == 0 {
		return "", false, nil
	}
	for _, remoteName := range remoteNames {
		if remoteName == defaultRemoteNameConstant {
			return remoteName, true, nil
		}
	}
	return remoteNames[0], true, nil
}

// BranchesContainingCommit lists every local and remote-tracking branch whose history contains the commit.
func (checkout *GitCheckout) BranchesContainingCommit(executionContext context.Context, commit string) (Branches, error) {
	repository, openError := checkout.open()
	if openError != nil {
		return Branches{}, openError
	}
	remoteNames, remotesError := checkout.remoteNames(repository)
	if remotesError != nil {
		return Branches{}, remotesError
	}

	result, executionError := checkout.executeGit(executionContext, gitBranchSubcommandConstant, gitAllFlagConstant, gitContainsFlagConstant, commit, gitRefnameFormatFlagConstant)
	if executionError != nil {
		return Branches{}, executionError
	}
	return ParseContainsOutput(result.StandardOutput, remoteNames), nil
}

// UpdateRemoteTrackingRefs runs `git remote update`.
func (checkout *GitCheckout) UpdateRemoteTrackingRefs(executionContext context.Context) error {
	_, executionError := checkout.executeGit(executionContext, gitRemoteSubcommandConstant, gitUpdateSubcommandConstant)
	return executionError
}

// PruneStaleRemoteTrackingRefs runs `git fetch --all --prune`.
func (checkout *GitCheckout) PruneStaleRemoteTrackingRefs(executionContext context.Context) error {
	_, executionError := checkout.executeGit(executionContext, gitFetchSubcommandConstant, gitAllRemotesFlagConstant, gitPruneFlagConstant)
	return executionError
}

// DeleteLocalBranch deletes a local branch unless it is the branch named by currentBranchHint.
func (checkout *GitCheckout) DeleteLocalBranch(executionContext context.Context, branchName string, currentBranchHint string, force bool) (bool, error) {
	if branchName == currentBranchHint {
		return false, nil
	}

	deleteFlag := gitSafeDeleteFlagConstant
	if force {
		deleteFlag = gitForceDeleteFlagConstant
	}

	_, executionError := checkout.executeGit(executionContext, gitBranchSubcommandConstant, deleteFlag, branchName)
	if executionError != nil {
		return false, executionError
	}
	return true, nil
}

// DeleteRemoteBranch pushes a deletion of the branch to the remote.
// A deletion rejected because the ref is already gone yields ErrRemoteRefAbsent.
func (checkout *GitCheckout) DeleteRemoteBranch(executionContext context.Context, remoteName string, branchName string) (bool, error) {
	_, executionError := checkout.executeGit(executionContext, gitPushSubcommandConstant, remoteName, gitDeleteFlagConstant, branchName)
	if executionError == nil {
		return true, nil
	}

	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) && strings.Contains(failedError.Result.StandardError, remoteRefAbsentMessageConstant) {
		return false, fmt.Errorf(remoteDeletionErrorTemplateConstant, ErrRemoteRefAbsent, remoteName, branchName, checkout.path)
	}
	return false, executionError
}

// IsDirty reports whether `git status --porcelain` lists any change.
func (checkout *GitCheckout) IsDirty(executionContext context.Context) (bool, error) {
	result, executionError := checkout.executeGit(executionContext, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if executionError != nil {
		return false, executionError
	}
	return len(strings.TrimSpace(result.StandardOutput)) > 0, nil
}

// RemoteHeads lists the branches present on the remote itself.
func (checkout *GitCheckout) RemoteHeads(executionContext context.Context, remoteName string) (Heads, error) {
	result, executionError := checkout.executeGit(executionContext, gitLSRemoteSubcommandConstant, gitHeadsFlagConstant, remoteName)
	if executionError != nil {
		return Heads{}, executionError
	}
	return ParseLSRemoteHeads(remoteName, result.StandardOutput), nil
}

// SubmoduleStatuses lists the submodules registered below this working tree.
func (checkout *GitCheckout) SubmoduleStatuses(executionContext context.Context) ([]SubmoduleStatus, error) {
	result, executionError := checkout.executeGit(executionContext, gitSubmoduleSubcommandConstant, gitStatusSubcommandConstant, gitRecursiveFlagConstant)
	if executionError != nil {
		return nil, executionError
	}
	return ParseSubmoduleStatus(checkout.path, result.StandardOutput)
}

func (checkout *GitCheckout) open() (*git.Repository, error) {
	repository, openError := git.PlainOpenWithOptions(checkout.path, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
	if openError != nil {
		return nil, fmt.Errorf(openRepositoryErrorTemplateConstant, checkout.path, openError)
	}
	return repository, nil
}

func (checkout *GitCheckout) readHead() (*plumbing.Reference, error) {
	repository, openError := checkout.open()
	if openError != nil {
		return nil, openError
	}
	headReference, headError := repository.Storer.Reference(plumbing.HEAD)
	if headError != nil {
		return nil, fmt.Errorf(readHeadErrorTemplateConstant, checkout.path, headError)
	}
	return headReference, nil
}

func (checkout *GitCheckout) remoteNames(repository *git.Repository) ([]string, error) {
	remotes, remotesError := repository.Remotes()
	if remotesError != nil {
		return nil, fmt.Errorf(listRemotesErrorTemplateConstant, checkout.path, remotesError)
	}
	names := make([]string, 0, len(remotes))
	for _, remote := range remotes {
		names = append(names, remote.Config().Name)
	}
	sort.Strings(names)
	return names, nil
}

func (checkout *GitCheckout) executeGit(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return checkout.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     checkout.path,
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptDisableValueConstant},
	})
}
