// Package checkouttest provides an in-memory checkout for tests.
package checkouttest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/temirov/canopy/internal/checkout"
)

const (
	localBranchMissingTemplateConstant  = "error: branch '%s' not found"
	remoteDeletionLabelTemplateConstant = "push %s --delete %s"
	localDeletionLabelTemplateConstant  = "branch -d %s"
	forceDeletionLabelTemplateConstant  = "branch -D %s"
	updateLabelConstant                 = "remote update"
	pruneLabelConstant                  = "fetch --all --prune"
)

// Checkout is a mutable in-memory checkout. Deletions change its state.
type Checkout struct {
	mutex sync.Mutex

	path               string
	currentBranchName  string
	detachedHead       bool
	dirty              bool
	defaultRemote      string
	localHeads         map[string]string
	remoteHeads        map[string]map[string]string
	ancestors          map[string]map[string]struct{}
	submoduleStatuses  []checkout.SubmoduleStatus
	remoteDeleteErrors map[string]error
	localDeleteErrors  map[string]error
	readError          error

	mutations              []string
	currentBranchReadCount int
}

// New constructs an empty checkout at the provided path with origin as its default remote.
func New(path string) *Checkout {
	return &Checkout{
		path:               filepath.Clean(path),
		defaultRemote:      "origin",
		localHeads:         make(map[string]string),
		remoteHeads:        make(map[string]map[string]string),
		ancestors:          make(map[string]map[string]struct{}),
		remoteDeleteErrors: make(map[string]error),
		localDeleteErrors:  make(map[string]error),
	}
}

// WithLocalBranch adds a local branch pointing at commit.
func (fake *Checkout) WithLocalBranch(name string, commit string) *Checkout {
	fake.localHeads[name] = commit
	return fake
}

// WithRemoteBranch adds a remote-tracking branch pointing at commit.
func (fake *Checkout) WithRemoteBranch(remote string, name string, commit string) *Checkout {
	if fake.remoteHeads[remote] == nil {
		fake.remoteHeads[remote] = make(map[string]string)
	}
	fake.remoteHeads[remote][name] = commit
	return fake
}

// WithCurrentBranch checks out the named local branch.
func (fake *Checkout) WithCurrentBranch(name string) *Checkout {
	fake.currentBranchName = name
	fake.detachedHead = false
	return fake
}

// WithDetachedHead detaches HEAD.
func (fake *Checkout) WithDetachedHead() *Checkout {
	fake.currentBranchName = ""
	fake.detachedHead = true
	return fake
}

// WithDirty marks the working tree as modified.
func (fake *Checkout) WithDirty() *Checkout {
	fake.dirty = true
	return fake
}

// WithDefaultRemote overrides the default remote. An empty name means no remote.
func (fake *Checkout) WithDefaultRemote(remote string) *Checkout {
	fake.defaultRemote = remote
	return fake
}

// WithAncestry records that the history of head contains each of the ancestor commits.
func (fake *Checkout) WithAncestry(head string, ancestors ...string) *Checkout {
	if fake.ancestors[head] == nil {
		fake.ancestors[head] = make(map[string]struct{})
	}
	for _, ancestor := range ancestors {
		fake.ancestors[head][ancestor] = struct{}{}
	}
	return fake
}

// WithSubmoduleStatuses sets the submodule status listing.
func (fake *Checkout) WithSubmoduleStatuses(statuses ...checkout.SubmoduleStatus) *Checkout {
	fake.submoduleStatuses = append([]checkout.SubmoduleStatus{}, statuses...)
	return fake
}

// WithRemoteDeletionError makes deleting the remote branch fail with the error.
func (fake *Checkout) WithRemoteDeletionError(remote string, name string, failure error) *Checkout {
	fake.remoteDeleteErrors[remote+"/"+name] = failure
	return fake
}

// WithLocalDeletionError makes deleting the local branch fail with the error.
func (fake *Checkout) WithLocalDeletionError(name string, failure error) *Checkout {
	fake.localDeleteErrors[name] = failure
	return fake
}

// WithReadError makes every branch query fail with the error.
func (fake *Checkout) WithReadError(failure error) *Checkout {
	fake.readError = failure
	return fake
}

// Path returns the checkout path.
func (fake *Checkout) Path() string {
	return fake.path
}

// LoggingName returns the final path element.
func (fake *Checkout) LoggingName() string {
	return filepath.Base(fake.path)
}

// CurrentBranchName returns the checked out branch.
func (fake *Checkout) CurrentBranchName(executionContext context.Context) (string, bool, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.currentBranchReadCount++
	if fake.readError != nil {
		return "", false, fake.readError
	}
	if fake.detachedHead || len(fake.currentBranchName) == 0 {
		return "", false, nil
	}
	return fake.currentBranchName, true, nil
}

// LocalBranches lists local branches.
func (fake *Checkout) LocalBranches(executionContext context.Context) ([]checkout.Branch, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	if fake.readError != nil {
		return nil, fake.readError
	}
	branches := make([]checkout.Branch, 0, len(fake.localHeads))
	for name := range fake.localHeads {
		branches = append(branches, checkout.LocalBranch(name))
	}
	checkout.SortBranches(branches)
	return branches, nil
}

// RemoteBranches lists remote-tracking branches.
func (fake *Checkout) RemoteBranches(executionContext context.Context) ([]checkout.Branch, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	if fake.readError != nil {
		return nil, fake.readError
	}
	return fake.remoteBranchesLocked(), nil
}

// HeadOfRef resolves refs/heads/<name>, refs/remotes/<remote>/<name> or a bare local name.
func (fake *Checkout) HeadOfRef(executionContext context.Context, reference string) (string, bool, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	if fake.readError != nil {
		return "", false, fake.readError
	}

	if strings.HasPrefix(reference, "refs/remotes/") {
		branch, parsed := checkout.ParseRemoteTrackingName(strings.TrimPrefix(reference, "refs/remotes/"), fake.remoteNamesLocked())
		if !parsed {
			return "", false, nil
		}
		commit, found := fake.remoteHeads[branch.Remote][branch.Name]
		return commit, found, nil
	}

	commit, found := fake.localHeads[strings.TrimPrefix(reference, "refs/heads/")]
	return commit, found, nil
}

// BranchesContainingCommit returns the branches whose head equals the commit or descends from it.
func (fake *Checkout) BranchesContainingCommit(executionContext context.Context, commit string) (checkout.Branches, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	if fake.readError != nil {
		return checkout.Branches{}, fake.readError
	}

	var local []checkout.Branch
	for name, head := range fake.localHeads {
		if fake.containsLocked(head, commit) {
			local = append(local, checkout.LocalBranch(name))
		}
	}
	var remote []checkout.Branch
	for remoteName, heads := range fake.remoteHeads {
		for name, head := range heads {
			if fake.containsLocked(head, commit) {
				remote = append(remote, checkout.RemoteBranch(remoteName, name))
			}
		}
	}
	return checkout.NewBranches("", local, remote), nil
}

// UpdateRemoteTrackingRefs records the call.
func (fake *Checkout) UpdateRemoteTrackingRefs(executionContext context.Context) error {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.mutations = append(fake.mutations, updateLabelConstant)
	return nil
}

// PruneStaleRemoteTrackingRefs records the call.
func (fake *Checkout) PruneStaleRemoteTrackingRefs(executionContext context.Context) error {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.mutations = append(fake.mutations, pruneLabelConstant)
	return nil
}

// DefaultRemoteName returns the configured default remote.
func (fake *Checkout) DefaultRemoteName(executionContext context.Context) (string, bool, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	if len(fake.defaultRemote) == 0 {
		return "", false, nil
	}
	return fake.defaultRemote, true, nil
}

// DeleteLocalBranch removes the branch unless it matches currentBranchHint.
func (fake *Checkout) DeleteLocalBranch(executionContext context.Context, branchName string, currentBranchHint string, force bool) (bool, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	if branchName == currentBranchHint {
		return false, nil
	}

	label := fmt.Sprintf(localDeletionLabelTemplateConstant, branchName)
	if force {
		label = fmt.Sprintf(forceDeletionLabelTemplateConstant, branchName)
	}
	fake.mutations = append(fake.mutations, label)

	if failure := fake.localDeleteErrors[branchName]; failure != nil {
		return false, failure
	}
	if _, exists := fake.localHeads[branchName]; !exists {
		return false, fmt.Errorf(localBranchMissingTemplateConstant, branchName)
	}
	delete(fake.localHeads, branchName)
	return true, nil
}

// DeleteRemoteBranch removes the remote-tracking branch, failing with checkout.ErrRemoteRefAbsent when it is gone.
func (fake *Checkout) DeleteRemoteBranch(executionContext context.Context, remoteName string, branchName string) (bool, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.mutations = append(fake.mutations, fmt.Sprintf(remoteDeletionLabelTemplateConstant, remoteName, branchName))

	if failure := fake.remoteDeleteErrors[remoteName+"/"+branchName]; failure != nil {
		return false, failure
	}
	if _, exists := fake.remoteHeads[remoteName][branchName]; !exists {
		return false, checkout.ErrRemoteRefAbsent
	}
	delete(fake.remoteHeads[remoteName], branchName)
	return true, nil
}

// IsDirty reports the configured dirty state.
func (fake *Checkout) IsDirty(executionContext context.Context) (bool, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return fake.dirty, nil
}

// IsDetachedHead reports the configured head state.
func (fake *Checkout) IsDetachedHead(executionContext context.Context) (bool, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return fake.detachedHead, nil
}

// RemoteHeads returns the branches known for the remote.
func (fake *Checkout) RemoteHeads(executionContext context.Context, remoteName string) (checkout.Heads, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return checkout.NewHeads(remoteName, fake.remoteHeads[remoteName]), nil
}

// SubmoduleStatuses returns the configured submodule listing.
func (fake *Checkout) SubmoduleStatuses(executionContext context.Context) ([]checkout.SubmoduleStatus, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return append([]checkout.SubmoduleStatus{}, fake.submoduleStatuses...), nil
}

// Mutations returns the mutating calls in the order they were made.
func (fake *Checkout) Mutations() []string {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return append([]string{}, fake.mutations...)
}

// CurrentBranchReads counts how often the current branch was queried.
func (fake *Checkout) CurrentBranchReads() int {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return fake.currentBranchReadCount
}

// HasLocalBranch reports whether the local branch still exists.
func (fake *Checkout) HasLocalBranch(name string) bool {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	_, exists := fake.localHeads[name]
	return exists
}

// HasRemoteBranch reports whether the remote-tracking branch still exists.
func (fake *Checkout) HasRemoteBranch(remote string, name string) bool {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	_, exists := fake.remoteHeads[remote][name]
	return exists
}

func (fake *Checkout) remoteBranchesLocked() []checkout.Branch {
	var branches []checkout.Branch
	for remoteName, heads := range fake.remoteHeads {
		for name := range heads {
			branches = append(branches, checkout.RemoteBranch(remoteName, name))
		}
	}
	checkout.SortBranches(branches)
	return branches
}

func (fake *Checkout) remoteNamesLocked() []string {
	names := make([]string, 0, len(fake.remoteHeads))
	for remoteName := range fake.remoteHeads {
		names = append(names, remoteName)
	}
	sort.Strings(names)
	return names
}

func (fake *Checkout) containsLocked(head string, commit string) bool {
	if head == commit {
		return true
	}
	_, contained := fake.ancestors[head][commit]
	return contained
}
