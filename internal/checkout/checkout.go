package checkout

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

const (
	remoteRefAbsentMessageConstant         = "remote ref does not exist"
	loadBranchesErrorTemplateConstant      = "unable to load branches for %s: %w"
	loadCurrentBranchErrorTemplateConstant = "unable to determine current branch for %s: %w"
	pathSeparatorStringConstant            = string(filepath.Separator)
)

// ErrRemoteRefAbsent indicates a remote branch deletion found nothing to delete.
var ErrRemoteRefAbsent = errors.New(remoteRefAbsentMessageConstant)

// Checkout is a handle to one git working tree.
type Checkout interface {
	Path() string
	LoggingName() string
	CurrentBranchName(executionContext context.Context) (string, bool, error)
	LocalBranches(executionContext context.Context) ([]Branch, error)
	RemoteBranches(executionContext context.Context) ([]Branch, error)
	HeadOfRef(executionContext context.Context, reference string) (string, bool, error)
	BranchesContainingCommit(executionContext context.Context, commit string) (Branches, error)
	UpdateRemoteTrackingRefs(executionContext context.Context) error
	PruneStaleRemoteTrackingRefs(executionContext context.Context) error
	DefaultRemoteName(executionContext context.Context) (string, bool, error)
	DeleteLocalBranch(executionContext context.Context, branchName string, currentBranchHint string, force bool) (bool, error)
	DeleteRemoteBranch(executionContext context.Context, remoteName string, branchName string) (bool, error)
	IsDirty(executionContext context.Context) (bool, error)
	IsDetachedHead(executionContext context.Context) (bool, error)
	RemoteHeads(executionContext context.Context, remoteName string) (Heads, error)
	SubmoduleStatuses(executionContext context.Context) ([]SubmoduleStatus, error)
}

// LoadBranches assembles the branch snapshot of a checkout.
func LoadBranches(executionContext context.Context, checkout Checkout) (Branches, error) {
	currentBranchName, onBranch, currentError := checkout.CurrentBranchName(executionContext)
	if currentError != nil {
		return Branches{}, fmt.Errorf(loadCurrentBranchErrorTemplateConstant, checkout.LoggingName(), currentError)
	}
	if !onBranch {
		currentBranchName = ""
	}

	localBranches, localError := checkout.LocalBranches(executionContext)
	if localError != nil {
		return Branches{}, fmt.Errorf(loadBranchesErrorTemplateConstant, checkout.LoggingName(), localError)
	}

	remoteBranches, remoteError := checkout.RemoteBranches(executionContext)
	if remoteError != nil {
		return Branches{}, fmt.Errorf(loadBranchesErrorTemplateConstant, checkout.LoggingName(), remoteError)
	}

	return NewBranches(currentBranchName, localBranches, remoteBranches), nil
}

// Compare orders checkouts by path.
func Compare(left Checkout, right Checkout) int {
	return strings.Compare(left.Path(), right.Path())
}

// DepthFirstSort orders checkouts so nested working trees precede the trees enclosing them.
// Deeper paths come first; paths at equal depth are ordered lexically.
func DepthFirstSort(checkouts []Checkout) {
	sort.SliceStable(checkouts, func(left int, right int) bool {
		leftDepth := pathDepth(checkouts[left].Path())
		rightDepth := pathDepth(checkouts[right].Path())
		if leftDepth != rightDepth {
			return leftDepth > rightDepth
		}
		return Compare(checkouts[left], checkouts[right]) < 0
	})
}

// IsWithin reports whether path equals or is nested below directory.
func IsWithin(path string, directory string) bool {
	cleanedPath := filepath.Clean(path)
	cleanedDirectory := filepath.Clean(directory)
	if cleanedPath == cleanedDirectory {
		return true
	}
	if !strings.HasSuffix(cleanedDirectory, pathSeparatorStringConstant) {
		cleanedDirectory += pathSeparatorStringConstant
	}
	return strings.HasPrefix(cleanedPath, cleanedDirectory)
}

func pathDepth(path string) int {
	return strings.Count(filepath.Clean(path), pathSeparatorStringConstant)
}
