package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/canopy/internal/checkout"
)

const (
	resolvedSelectionMessageConstant = "Resolved checkout selection"
	logFieldScopeConstant            = "scope"
	logFieldFamilyConstant           = "family"
	logFieldGroupIDConstant          = "group_id"
)

// Selection describes the checkouts an operation applies to, relative to the path it was invoked from.
// An empty Family or GroupID is derived from the module at, or the modules inside, the calling checkout.
type Selection struct {
	Scope       Scope
	Family      string
	GroupID     string
	IncludeRoot bool
}

// CallingCheckout returns the interned checkout enclosing path.
func (model *Model) CallingCheckout(executionContext context.Context, path string) (checkout.Checkout, error) {
	current, populationError := model.ensurePopulated(executionContext)
	if populationError != nil {
		return nil, populationError
	}
	calling, found, lookupError := model.scanner.CheckoutOf(path)
	if lookupError != nil {
		return nil, lookupError
	}
	if !found {
		return nil, fmt.Errorf(notRepositoryErrorTemplateConstant, path, ErrNotRepository)
	}
	return model.intern(current, calling), nil
}

// Select resolves the calling checkout of path, fills in the family and groupId and matches checkouts.
func (model *Model) Select(executionContext context.Context, path string, selection Selection) ([]checkout.Checkout, error) {
	cleanedPath := filepath.Clean(path)
	calling, callingError := model.CallingCheckout(executionContext, cleanedPath)
	if callingError != nil {
		return nil, callingError
	}

	groupID := strings.TrimSpace(selection.GroupID)
	family := Family(strings.TrimSpace(selection.Family))
	if len(groupID) == 0 {
		derived, derivationError := model.deriveGroupID(executionContext, cleanedPath, calling)
		if derivationError != nil {
			return nil, derivationError
		}
		groupID = derived
	}
	if len(family) == 0 && len(groupID) > 0 {
		family = FamilyOf(groupID)
	}

	matched, matchError := model.MatchCheckouts(executionContext, selection.Scope, calling, selection.IncludeRoot, family, groupID)
	if matchError != nil {
		return nil, matchError
	}
	model.logger.Debug(resolvedSelectionMessageConstant,
		zap.String(logFieldScopeConstant, selection.Scope.String()),
		zap.String(logFieldFamilyConstant, family.String()),
		zap.String(logFieldGroupIDConstant, groupID),
		zap.Int(logFieldCheckoutCountConstant, len(matched)),
	)
	return matched, nil
}

func (model *Model) deriveGroupID(executionContext context.Context, path string, calling checkout.Checkout) (string, error) {
	module, found, moduleError := model.ModuleOf(executionContext, path)
	if moduleError != nil {
		return "", moduleError
	}
	if found {
		return module.GroupID, nil
	}
	groupIDs, groupError := model.GroupIDsIn(executionContext, calling)
	if groupError != nil {
		return "", groupError
	}
	if len(groupIDs) == 0 {
		return "", nil
	}
	return groupIDs[0], nil
}
