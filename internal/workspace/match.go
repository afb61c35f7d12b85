package workspace

import (
	"context"
	"fmt"

	"github.com/temirov/canopy/internal/checkout"
)

const unsupportedScopeErrorTemplateConstant = "unsupported scope %s"

// MatchCheckouts returns the checkouts relevant to scope in depth-first order.
// Without includeRoot the root checkout is always dropped. With it, a root the scope matched is kept
// and the root is otherwise added whenever anything matched.
func (model *Model) MatchCheckouts(executionContext context.Context, scope Scope, calling checkout.Checkout, includeRoot bool, family Family, groupID string) ([]checkout.Checkout, error) {
	current, populationError := model.ensurePopulated(executionContext)
	if populationError != nil {
		return nil, populationError
	}

	var matched []checkout.Checkout
	var matchError error
	switch scope {
	case ScopeJustThis:
		if calling != nil {
			matched = []checkout.Checkout{model.intern(current, calling)}
		}
	case ScopeFamily:
		matched, matchError = model.CheckoutsInFamily(executionContext, family)
	case ScopeFamilyOrChildFamily:
		matched, matchError = model.CheckoutsInFamilyOrChildFamily(executionContext, family)
	case ScopeSameGroupID:
		matched, matchError = model.CheckoutsContainingGroupID(executionContext, groupID)
	case ScopeAllProjectFamilies:
		matched, matchError = model.AllCheckouts(executionContext)
	case ScopeAll:
		matched = append(append([]checkout.Checkout{}, current.moduleCheckouts...), current.nonModuleCheckouts...)
	default:
		return nil, fmt.Errorf(unsupportedScopeErrorTemplateConstant, scope)
	}
	if matchError != nil {
		return nil, matchError
	}

	rootPath := current.root.Path()
	result := make([]checkout.Checkout, 0, len(matched)+1)
	seen := make(map[string]struct{}, len(matched)+1)
	for _, candidate := range matched {
		if _, duplicate := seen[candidate.Path()]; duplicate {
			continue
		}
		if candidate.Path() == rootPath && !includeRoot {
			continue
		}
		seen[candidate.Path()] = struct{}{}
		result = append(result, candidate)
	}
	if _, rootMatched := seen[rootPath]; includeRoot && !rootMatched && len(result) > 0 {
		result = append(result, current.root)
	}

	checkout.DepthFirstSort(result)
	return result, nil
}
