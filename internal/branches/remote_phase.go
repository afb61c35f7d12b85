package branches

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/canopy/internal/checkout"
)

const (
	scanCheckoutMessageConstant               = "Scanning remote branches"
	refreshFailedMessageConstant              = "Unable to refresh remote branches"
	branchReadFailedMessageConstant           = "Unable to read branches"
	headReadFailedMessageConstant             = "Unable to resolve branch head"
	noRemoteCandidatesMessageConstant         = "No remote branches need cleanup."
	allCandidatesUncleanMessageConstant       = "All candidates contain commits not on a safe branch."
	notContainedMessageConstant               = "Will not delete branch because no safe branch contains its head commit"
	containmentFailedMessageConstant          = "Will not delete branch because its containment could not be determined"
	vetoedElsewhereMessageConstant            = "Will not delete branch because a checkout with a branch of the same name has commits not on a safe branch"
	provisionallySafeMessageConstant          = "Branch head is contained in a safe branch"
	notDefaultRemoteMessageConstant           = "Skipping branch because it is not on the default remote"
	defaultRemoteFailedMessageConstant        = "Unable to determine default remote"
	wouldDeleteRemoteMessageConstant          = "Would delete remote branch"
	deletedRemoteMessageConstant              = "Deleted remote branch"
	alreadyDeletedRemoteMessageConstant       = "Remote branch was already deleted on the server"
	remoteDeletionFailedMessageConstant       = "Failed to delete remote branch"
	remoteDeletionSkippedMessageConstant      = "Remote branch was not deleted. Skipping."
	deletedLocalCounterpartMessageConstant    = "Deleted local counterpart branch"
	localCounterpartFailedMessageConstant     = "Failed to delete local counterpart branch"
	localCounterpartSkippedMessageConstant    = "Local counterpart branch was not deleted"
	localCounterpartCurrentMessageConstant    = "Keeping local counterpart branch because it is checked out"
	refreshFailureWarningTemplateConstant     = "unable to refresh remote branches in %s: %v"
	branchReadFailureTemplateConstant         = "unable to read branches in %s: %v"
	headReadFailureTemplateConstant           = "unable to resolve head of %s: %v"
	containmentFailureWarningTemplateConstant = "unable to determine which branches contain %s: %v"
	defaultRemoteFailureTemplateConstant      = "unable to determine default remote of %s: %v"
	localCounterpartWarningTemplateConstant   = "local counterpart %s in %s was not deleted: %v"
	remoteDeletionSkippedTemplateConstant     = "remote branch %s was not deleted"
	logFieldContainingBranchConstant          = "containing_branch"
)

// cleanupRemoteBranches runs the remote phase and returns the number of scheduled deletions.
// Every scheduled unit finishes before it returns.
func (run *cleanupRun) cleanupRemoteBranches(executionContext context.Context) int {
	candidatesByName := make(map[string][]CheckoutAndHead)
	for _, target := range run.checkouts {
		run.collectRemoteCandidates(executionContext, target, candidatesByName)
	}
	if len(candidatesByName) == 0 {
		run.logger.Info(noRemoteCandidatesMessageConstant)
		return 0
	}

	proven := run.filterMergedIntoSafeBranches(executionContext, candidatesByName)
	scheduled := run.restrictToDefaultRemote(executionContext, proven)
	if len(scheduled) == 0 {
		run.logger.Info(allCandidatesUncleanMessageConstant)
		return 0
	}

	sortCandidates(scheduled)
	run.collector.update(func(report *Report) {
		for _, candidate := range scheduled {
			report.PlannedRemote = append(report.PlannedRemote, candidate.record())
		}
	})

	var group errgroup.Group
	group.SetLimit(run.parallelism)
	for _, candidate := range scheduled {
		group.Go(func() error {
			run.deleteRemoteBranch(executionContext, candidate)
			return nil
		})
	}
	_ = group.Wait()
	return len(scheduled)
}

func (run *cleanupRun) collectRemoteCandidates(executionContext context.Context, target checkout.Checkout, candidatesByName map[string][]CheckoutAndHead) {
	run.logger.Info(scanCheckoutMessageConstant, zap.String(logFieldCheckoutConstant, target.Path()))

	if run.acknowledged {
		refreshError := target.UpdateRemoteTrackingRefs(executionContext)
		if refreshError == nil {
			refreshError = target.PruneStaleRemoteTrackingRefs(executionContext)
		}
		if refreshError != nil {
			run.logger.Warn(refreshFailedMessageConstant, zap.String(logFieldCheckoutConstant, target.Path()), zap.Error(refreshError))
			run.collector.warn(fmt.Sprintf(refreshFailureWarningTemplateConstant, target.Path(), refreshError))
		}
		run.model.InvalidateBranches(target)
	}

	branches, branchesError := run.model.Branches(executionContext, target)
	if branchesError != nil {
		run.logger.Error(branchReadFailedMessageConstant, zap.String(logFieldCheckoutConstant, target.Path()), zap.Error(branchesError))
		run.collector.fail(fmt.Sprintf(branchReadFailureTemplateConstant, target.Path(), branchesError))
		return
	}

	for _, branch := range branches.Remote() {
		if run.safe.Contains(branch.Name) || run.policy.IsProtected(branch.Name) {
			continue
		}
		head, found, headError := target.HeadOfRef(executionContext, branch.ReferenceName())
		if headError != nil {
			run.logger.Warn(headReadFailedMessageConstant, zap.String(logFieldCheckoutConstant, target.Path()), zap.String(logFieldBranchConstant, branch.TrackingName()), zap.Error(headError))
			run.collector.warn(fmt.Sprintf(headReadFailureTemplateConstant, branch.TrackingName(), headError))
			continue
		}
		if !found {
			continue
		}
		candidatesByName[branch.Name] = append(candidatesByName[branch.Name], CheckoutAndHead{Checkout: target, Head: head, Branch: branch})
	}
}

// filterMergedIntoSafeBranches keeps the candidates whose head is contained in a safe remote branch.
// One checkout without such proof vetoes the branch name everywhere. Names are evaluated one at a time in sorted order.
func (run *cleanupRun) filterMergedIntoSafeBranches(executionContext context.Context, candidatesByName map[string][]CheckoutAndHead) []CheckoutAndHead {
	branchNames := make([]string, 0, len(candidatesByName))
	for branchName := range candidatesByName {
		branchNames = append(branchNames, branchName)
	}
	sort.Strings(branchNames)

	var proven []CheckoutAndHead
	for _, branchName := range branchNames {
		targets := append([]CheckoutAndHead{}, candidatesByName[branchName]...)
		sortCandidates(targets)

		clean := true
		for targetIndex, candidate := range targets {
			safeContainer, containmentError := run.findSafeContainer(executionContext, candidate)
			if containmentError != nil {
				run.logger.Warn(containmentFailedMessageConstant, append(candidateFields(candidate), zap.Error(containmentError))...)
				run.collector.warn(fmt.Sprintf(containmentFailureWarningTemplateConstant, candidate.String(), containmentError))
			} else if safeContainer == nil {
				run.logger.Info(notContainedMessageConstant, candidateFields(candidate)...)
			}
			if containmentError != nil || safeContainer == nil {
				clean = false
				for _, skipped := range targets[targetIndex+1:] {
					run.logger.Info(vetoedElsewhereMessageConstant, candidateFields(skipped)...)
				}
				break
			}
			run.logger.Debug(provisionallySafeMessageConstant, append(candidateFields(candidate), zap.String(logFieldContainingBranchConstant, safeContainer.TrackingName()))...)
		}
		if clean {
			proven = append(proven, targets...)
		}
	}
	return proven
}

func (run *cleanupRun) findSafeContainer(executionContext context.Context, candidate CheckoutAndHead) (*checkout.Branch, error) {
	containing, containingError := candidate.Checkout.BranchesContainingCommit(executionContext, candidate.Head)
	if containingError != nil {
		return nil, containingError
	}
	for _, container := range containing.Remote() {
		if container.IsLocal() || container.IsSameName(candidate.Branch) {
			continue
		}
		if run.safe.Contains(container.Name) {
			found := container
			return &found, nil
		}
	}
	return nil, nil
}

func (run *cleanupRun) restrictToDefaultRemote(executionContext context.Context, proven []CheckoutAndHead) []CheckoutAndHead {
	var restricted []CheckoutAndHead
	for _, candidate := range proven {
		fromDefault, remoteError := candidate.isFromDefaultRemote(executionContext)
		if remoteError != nil {
			run.logger.Warn(defaultRemoteFailedMessageConstant, append(candidateFields(candidate), zap.Error(remoteError))...)
			run.collector.warn(fmt.Sprintf(defaultRemoteFailureTemplateConstant, candidate.Checkout.Path(), remoteError))
			continue
		}
		if !fromDefault {
			run.logger.Info(notDefaultRemoteMessageConstant, candidateFields(candidate)...)
			continue
		}
		restricted = append(restricted, candidate)
	}
	return restricted
}

func (run *cleanupRun) deleteRemoteBranch(executionContext context.Context, candidate CheckoutAndHead) {
	if !run.acknowledged {
		run.logger.Info(wouldDeleteRemoteMessageConstant, candidateFields(candidate)...)
		return
	}

	deleted, deletionError := candidate.Checkout.DeleteRemoteBranch(executionContext, candidate.Branch.Remote, candidate.Branch.Name)
	switch {
	case errors.Is(deletionError, checkout.ErrRemoteRefAbsent):
		run.logger.Info(alreadyDeletedRemoteMessageConstant, candidateFields(candidate)...)
		run.collector.update(func(report *Report) { report.AlreadyAbsent = append(report.AlreadyAbsent, candidate.record()) })
		return
	case deletionError != nil:
		run.logger.Error(remoteDeletionFailedMessageConstant, append(candidateFields(candidate), zap.Error(deletionError))...)
		run.collector.fail(unitFailure(candidate, deletionError))
		return
	case !deleted:
		run.logger.Info(remoteDeletionSkippedMessageConstant, candidateFields(candidate)...)
		run.collector.warn(fmt.Sprintf(remoteDeletionSkippedTemplateConstant, candidate.String()))
		return
	}

	run.logger.Info(deletedRemoteMessageConstant, candidateFields(candidate)...)
	run.collector.update(func(report *Report) { report.RemoteDeleted = append(report.RemoteDeleted, candidate.record()) })
	run.deleteLocalCounterpart(executionContext, candidate)
}

// deleteLocalCounterpart removes the local branch of the same name unless it is checked out. Failures are warnings.
func (run *cleanupRun) deleteLocalCounterpart(executionContext context.Context, candidate CheckoutAndHead) {
	branches, branchesError := run.model.Branches(executionContext, candidate.Checkout)
	if branchesError != nil {
		run.logger.Warn(localCounterpartFailedMessageConstant, append(candidateFields(candidate), zap.Error(branchesError))...)
		run.collector.warn(fmt.Sprintf(localCounterpartWarningTemplateConstant, candidate.Branch.Name, candidate.Checkout.Path(), branchesError))
		return
	}

	localBranch, found := branches.Opposite(candidate.Branch)
	if !found {
		return
	}
	if branches.IsCurrent(localBranch) {
		run.logger.Info(localCounterpartCurrentMessageConstant, candidateFields(candidate)...)
		return
	}

	currentBranchName := ""
	if current, onBranch := branches.CurrentBranch(); onBranch {
		currentBranchName = current.Name
	}
	counterpart := CheckoutAndHead{Checkout: candidate.Checkout, Branch: localBranch}
	deleted, deletionError := candidate.Checkout.DeleteLocalBranch(executionContext, localBranch.Name, currentBranchName, false)
	if deletionError != nil {
		run.logger.Warn(localCounterpartFailedMessageConstant, append(candidateFields(counterpart), zap.Error(deletionError))...)
		run.collector.warn(fmt.Sprintf(localCounterpartWarningTemplateConstant, localBranch.Name, candidate.Checkout.Path(), deletionError))
		return
	}
	if !deleted {
		run.logger.Info(localCounterpartSkippedMessageConstant, candidateFields(counterpart)...)
		return
	}
	run.logger.Info(deletedLocalCounterpartMessageConstant, candidateFields(counterpart)...)
	run.collector.update(func(report *Report) { report.LocalDeleted = append(report.LocalDeleted, counterpart.record()) })
}
