package branches

import (
	"context"
	"sort"
	"strings"

	"github.com/temirov/canopy/internal/checkout"
)

// CheckoutAndHead pairs a branch with the checkout it lives in and the commit it points at.
type CheckoutAndHead struct {
	Checkout checkout.Checkout
	Head     string
	Branch   checkout.Branch
}

// Compare orders candidates by checkout, then branch, then head commit.
func (candidate CheckoutAndHead) Compare(other CheckoutAndHead) int {
	if result := checkout.Compare(candidate.Checkout, other.Checkout); result != 0 {
		return result
	}
	if result := candidate.Branch.Compare(other.Branch); result != 0 {
		return result
	}
	return strings.Compare(candidate.Head, other.Head)
}

// String renders the checkout name followed by the remote and branch.
func (candidate CheckoutAndHead) String() string {
	if candidate.Branch.IsLocal() {
		return candidate.Checkout.LoggingName() + " " + candidate.Branch.Name
	}
	return candidate.Checkout.LoggingName() + " " + candidate.Branch.Remote + " " + candidate.Branch.Name
}

func (candidate CheckoutAndHead) record() BranchRecord {
	return BranchRecord{
		Checkout: candidate.Checkout.Path(),
		Remote:   candidate.Branch.Remote,
		Branch:   candidate.Branch.Name,
		Head:     candidate.Head,
	}
}

func (candidate CheckoutAndHead) isFromDefaultRemote(executionContext context.Context) (bool, error) {
	if candidate.Branch.IsLocal() {
		return false, nil
	}
	defaultRemote, found, remoteError := candidate.Checkout.DefaultRemoteName(executionContext)
	if remoteError != nil {
		return false, remoteError
	}
	return found && defaultRemote == candidate.Branch.Remote, nil
}

func sortCandidates(candidates []CheckoutAndHead) {
	sort.Slice(candidates, func(left int, right int) bool {
		return candidates[left].Compare(candidates[right]) < 0
	})
}
