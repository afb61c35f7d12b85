package branches

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/canopy/internal/checkout"
)

const (
	scanLocalCheckoutMessageConstant     = "Scanning local branches"
	currentLocalBranchMessageConstant    = "Will not delete local branch because it is the current branch in the working tree"
	plannedLocalMessageConstant          = "Will delete local branch"
	wouldDeleteLocalMessageConstant      = "Would delete local branch"
	deletingLocalMessageConstant         = "Deleting local branch"
	deletedLocalMessageConstant          = "Deleted local branch"
	localDeletionFailedMessageConstant   = "Failed to delete local branch"
	localDeletionSkippedMessageConstant  = "Local branch was not deleted"
	noLocalCandidatesMessageConstant     = "No local branches need cleanup."
	currentLocalBranchWarningTemplate    = "local branch %s in %s is checked out and was kept"
	localDeletionSkippedTemplateConstant = "local branch %s in %s was not deleted"
)

// localCandidate is a local-only branch proven merged into a safe remote branch.
type localCandidate struct {
	CheckoutAndHead
	currentBranchName string
}

// cleanupLocalBranches runs the local phase and returns the number of scheduled deletions.
func (run *cleanupRun) cleanupLocalBranches(executionContext context.Context) int {
	var scheduled []localCandidate
	for _, target := range run.checkouts {
		scheduled = append(scheduled, run.collectLocalCandidates(executionContext, target)...)
	}
	if len(scheduled) == 0 {
		run.logger.Info(noLocalCandidatesMessageConstant)
		return 0
	}

	run.collector.update(func(report *Report) {
		for _, candidate := range scheduled {
			report.PlannedLocal = append(report.PlannedLocal, candidate.record())
		}
	})

	var group errgroup.Group
	group.SetLimit(run.parallelism)
	for _, candidate := range scheduled {
		group.Go(func() error {
			run.deleteLocalBranch(executionContext, candidate)
			return nil
		})
	}
	_ = group.Wait()
	return len(scheduled)
}

func (run *cleanupRun) collectLocalCandidates(executionContext context.Context, target checkout.Checkout) []localCandidate {
	run.logger.Info(scanLocalCheckoutMessageConstant, zap.String(logFieldCheckoutConstant, target.Path()))

	branches, branchesError := run.model.Branches(executionContext, target)
	if branchesError != nil {
		run.logger.Error(branchReadFailedMessageConstant, zap.String(logFieldCheckoutConstant, target.Path()), zap.Error(branchesError))
		run.collector.fail(fmt.Sprintf(branchReadFailureTemplateConstant, target.Path(), branchesError))
		return nil
	}
	currentBranchName := ""
	if current, onBranch := branches.CurrentBranch(); onBranch {
		currentBranchName = current.Name
	}

	var candidates []localCandidate
	for _, branch := range branches.Local() {
		if run.safe.Contains(branch.Name) || run.policy.IsProtected(branch.Name) {
			continue
		}
		if branches.HasRemoteForLocalOrLocalForRemote(branch) {
			continue
		}

		head, found, headError := target.HeadOfRef(executionContext, branch.ReferenceName())
		if headError != nil {
			run.logger.Warn(headReadFailedMessageConstant, zap.String(logFieldCheckoutConstant, target.Path()), zap.String(logFieldBranchConstant, branch.Name), zap.Error(headError))
			run.collector.warn(fmt.Sprintf(headReadFailureTemplateConstant, branch.Name, headError))
			continue
		}
		if !found {
			continue
		}

		candidate := CheckoutAndHead{Checkout: target, Head: head, Branch: branch}
		merged, containmentError := run.isContainedInSafeRemoteBranch(executionContext, candidate)
		if containmentError != nil {
			run.logger.Warn(containmentFailedMessageConstant, append(candidateFields(candidate), zap.Error(containmentError))...)
			run.collector.warn(fmt.Sprintf(containmentFailureWarningTemplateConstant, candidate.String(), containmentError))
			continue
		}
		if !merged {
			continue
		}

		if branches.IsCurrent(branch) {
			run.logger.Warn(currentLocalBranchMessageConstant, candidateFields(candidate)...)
			run.collector.warn(fmt.Sprintf(currentLocalBranchWarningTemplate, branch.Name, target.Path()))
			continue
		}

		run.logger.Info(plannedLocalMessageConstant, candidateFields(candidate)...)
		candidates = append(candidates, localCandidate{CheckoutAndHead: candidate, currentBranchName: currentBranchName})
	}
	return candidates
}

func (run *cleanupRun) isContainedInSafeRemoteBranch(executionContext context.Context, candidate CheckoutAndHead) (bool, error) {
	containing, containingError := candidate.Checkout.BranchesContainingCommit(executionContext, candidate.Head)
	if containingError != nil {
		return false, containingError
	}
	for _, container := range containing.Remote() {
		if run.safe.Contains(container.Name) {
			return true, nil
		}
	}
	return false, nil
}

func (run *cleanupRun) deleteLocalBranch(executionContext context.Context, candidate localCandidate) {
	if !run.acknowledged {
		run.logger.Info(wouldDeleteLocalMessageConstant, candidateFields(candidate.CheckoutAndHead)...)
		return
	}

	run.logger.Info(deletingLocalMessageConstant, candidateFields(candidate.CheckoutAndHead)...)
	deleted, deletionError := candidate.Checkout.DeleteLocalBranch(executionContext, candidate.Branch.Name, candidate.currentBranchName, false)
	if deletionError != nil {
		run.logger.Error(localDeletionFailedMessageConstant, append(candidateFields(candidate.CheckoutAndHead), zap.Error(deletionError))...)
		run.collector.fail(unitFailure(candidate.CheckoutAndHead, deletionError))
		return
	}
	if !deleted {
		run.logger.Info(localDeletionSkippedMessageConstant, candidateFields(candidate.CheckoutAndHead)...)
		run.collector.warn(fmt.Sprintf(localDeletionSkippedTemplateConstant, candidate.Branch.Name, candidate.Checkout.Path()))
		return
	}
	run.logger.Info(deletedLocalMessageConstant, candidateFields(candidate.CheckoutAndHead)...)
	run.collector.update(func(report *Report) { report.LocalDeleted = append(report.LocalDeleted, candidate.record()) })
}
