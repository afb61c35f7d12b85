package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/temirov/canopy/internal/checkout"
)

const (
	notRepositoryMessageConstant        = "not a git repository"
	loggerNotConfiguredMessageConstant  = "workspace model logger not configured"
	scannerNotConfiguredMessageConstant = "workspace model scanner not configured"
	notRepositoryErrorTemplateConstant  = "%s: %w"
	invalidatedMessageConstant          = "Invalidated workspace model"
	invalidatedBranchesMessageConstant  = "Invalidated cached branch state"
	logFieldCheckoutConstant            = "checkout"
)

// ErrNotRepository indicates the requested root is not inside a git working tree.
var ErrNotRepository = errors.New(notRepositoryMessageConstant)

// ErrLoggerNotConfigured indicates the model was opened without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrScannerNotConfigured indicates the model was opened without a scanner.
var ErrScannerNotConfigured = errors.New(scannerNotConfiguredMessageConstant)

// Model is the cached view of the modules and checkouts below a root working tree.
// It starts stale, populates on first query and stays populated until Invalidate is called.
type Model struct {
	logger      *zap.Logger
	scanner     Scanner
	root        checkout.Checkout
	parallelism int

	populationMutex sync.Mutex
	upToDate        atomic.Bool
	current         atomic.Pointer[snapshot]
	facts           atomic.Pointer[factCache]
}

// Open resolves the outermost working tree enclosing rootPath and returns a stale model rooted there.
func Open(logger *zap.Logger, scanner Scanner, rootPath string) (*Model, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if scanner == nil {
		return nil, ErrScannerNotConfigured
	}

	root, found, lookupError := scanner.SubmoduleRoot(rootPath)
	if lookupError != nil {
		return nil, lookupError
	}
	if !found {
		return nil, fmt.Errorf(notRepositoryErrorTemplateConstant, rootPath, ErrNotRepository)
	}

	model := &Model{logger: logger, scanner: scanner, root: root, parallelism: defaultParallelism()}
	model.facts.Store(newFactCache())
	return model, nil
}

// Root returns the outermost working tree of the workspace.
func (model *Model) Root() checkout.Checkout {
	if current := model.current.Load(); current != nil {
		return current.root
	}
	return model.root
}

// Invalidate discards the populated snapshot and every memoized fact. It is a no-op on a stale model.
func (model *Model) Invalidate() {
	model.populationMutex.Lock()
	defer model.populationMutex.Unlock()

	if !model.upToDate.Load() {
		return
	}
	model.upToDate.Store(false)
	model.facts.Store(newFactCache())
	model.logger.Debug(invalidatedMessageConstant, zap.String(logFieldRootConstant, model.root.Path()))
}

// InvalidateBranches discards the memoized branch facts of one checkout.
func (model *Model) InvalidateBranches(target checkout.Checkout) {
	cache := model.facts.Load()
	cache.forgetAll(target.Path(), branchFactKinds)
	cache.forgetKind(factMostCommonBranch)
	model.logger.Debug(invalidatedBranchesMessageConstant, zap.String(logFieldCheckoutConstant, target.Path()))
}

// IsPopulated reports whether the model currently holds a snapshot.
func (model *Model) IsPopulated() bool {
	return model.upToDate.Load()
}

func (model *Model) ensurePopulated(executionContext context.Context) (*snapshot, error) {
	if model.upToDate.Load() {
		if current := model.current.Load(); current != nil {
			return current, nil
		}
	}

	model.populationMutex.Lock()
	defer model.populationMutex.Unlock()

	if model.upToDate.Load() {
		return model.current.Load(), nil
	}

	populated, populationError := model.populate(executionContext)
	if populationError != nil {
		return nil, populationError
	}
	model.current.Store(populated)
	model.upToDate.Store(true)
	return populated, nil
}

func (model *Model) intern(current *snapshot, candidate checkout.Checkout) checkout.Checkout {
	if interned, found := current.checkoutsByPath[candidate.Path()]; found {
		return interned
	}
	return candidate
}

// FindModule looks a module up by its coordinates.
func (model *Model) FindModule(executionContext context.Context, groupID string, artifactID string) (Module, bool, error) {
	current, populationError := model.ensurePopulated(executionContext)
	if populationError != nil {
		return Module{}, false, populationError
	}
	module, found := current.modulesByGroupID[groupID][artifactID]
	return module, found, nil
}

// AllModules returns every module ordered by descriptor path.
func (model *Model) AllModules(executionContext context.Context) ([]Module, error) {
	return model.filterModules(executionContext, func(Module) bool { return true })
}

// ModulesForGroupID returns the modules with the exact groupId.
func (model *Model) ModulesForGroupID(executionContext context.Context, groupID string) ([]Module, error) {
	return model.filterModules(executionContext, func(module Module) bool { return module.GroupID == groupID })
}

// ModulesForFamily returns the modules whose groupId belongs to the family.
func (model *Model) ModulesForFamily(executionContext context.Context, family Family) ([]Module, error) {
	return model.filterModules(executionContext, func(module Module) bool { return family.Contains(module.GroupID) })
}

// ModulesWithin returns the modules owned by the checkout.
func (model *Model) ModulesWithin(executionContext context.Context, target checkout.Checkout) ([]Module, error) {
	current, populationError := model.ensurePopulated(executionContext)
	if populationError != nil {
		return nil, populationError
	}
	return append([]Module{}, current.modulesByCheckout[target.Path()]...), nil
}

// ModuleOf returns the module whose descriptor is path or lives in directory path.
func (model *Model) ModuleOf(executionContext context.Context, path string) (Module, bool, error) {
	current, populationError := model.ensurePopulated(executionContext)
	if populationError != nil {
		return Module{}, false, populationError
	}
	for _, module := range current.modules {
		if module.Path == path || module.Directory() == path {
			return module, true, nil
		}
	}
	return Module{}, false, nil
}

// CheckoutFor returns the checkout owning the module.
func (model *Model) CheckoutFor(executionContext context.Context, module Module) (checkout.Checkout, bool, error) {
	current, populationError := model.ensurePopulated(executionContext)
	if populationError != nil {
		return nil, false, populationError
	}
	owner, found := current.checkoutByModule[module.Coordinates()]
	return owner, found, nil
}

// CheckoutAt returns the interned checkout with the given path.
func (model *Model) CheckoutAt(executionContext context.Context, path string) (checkout.Checkout, bool, error) {
	current, populationError := model.ensurePopulated(executionContext)
	if populationError != nil {
		return nil, false, populationError
	}
	found, exists := current.checkoutsByPath[path]
	return found, exists, nil
}

// AllCheckouts returns the checkouts holding at least one module, in depth-first order.
func (model *Model) AllCheckouts(executionContext context.Context) ([]checkout.Checkout, error) {
	current, populationError := model.ensurePopulated(executionContext)
	if populationError != nil {
		return nil, populationError
	}
	return append([]checkout.Checkout{}, current.moduleCheckouts...), nil
}

// NonModuleCheckouts returns the working trees holding no module, in depth-first order.
func (model *Model) NonModuleCheckouts(executionContext context.Context) ([]checkout.Checkout, error) {
	current, populationError := model.ensurePopulated(executionContext)
	if populationError != nil {
		return nil, populationError
	}
	return append([]checkout.Checkout{}, current.nonModuleCheckouts...), nil
}

// CheckoutsContainingGroupID returns the checkouts holding a module with the exact groupId.
func (model *Model) CheckoutsContainingGroupID(executionContext context.Context, groupID string) ([]checkout.Checkout, error) {
	return model.filterCheckouts(executionContext, func(module Module) bool { return module.GroupID == groupID })
}

// CheckoutsInFamily returns the checkouts holding a module of the family.
func (model *Model) CheckoutsInFamily(executionContext context.Context, family Family) ([]checkout.Checkout, error) {
	return model.filterCheckouts(executionContext, func(module Module) bool { return family.Contains(module.GroupID) })
}

// CheckoutsInFamilyOrChildFamily returns the checkouts holding a module of the family or of one of its child families.
func (model *Model) CheckoutsInFamilyOrChildFamily(executionContext context.Context, family Family) ([]checkout.Checkout, error) {
	return model.filterCheckouts(executionContext, func(module Module) bool {
		return family.Contains(module.GroupID) || family.IsParentFamilyOf(module.GroupID)
	})
}

// GroupIDsIn returns the sorted distinct groupIds of the modules in the checkout.
func (model *Model) GroupIDsIn(executionContext context.Context, target checkout.Checkout) ([]string, error) {
	modules, modulesError := model.ModulesWithin(executionContext, target)
	if modulesError != nil {
		return nil, modulesError
	}
	seen := make(map[string]struct{})
	var groupIDs []string
	for _, module := range modules {
		if _, duplicate := seen[module.GroupID]; duplicate {
			continue
		}
		seen[module.GroupID] = struct{}{}
		groupIDs = append(groupIDs, module.GroupID)
	}
	sort.Strings(groupIDs)
	return groupIDs, nil
}

// AllVersions returns the sorted distinct module versions.
func (model *Model) AllVersions(executionContext context.Context) ([]string, error) {
	modules, modulesError := model.AllModules(executionContext)
	if modulesError != nil {
		return nil, modulesError
	}
	seen := make(map[string]struct{})
	var versions []string
	for _, module := range modules {
		if _, duplicate := seen[module.Version]; duplicate {
			continue
		}
		seen[module.Version] = struct{}{}
		versions = append(versions, module.Version)
	}
	sort.Strings(versions)
	return versions, nil
}

// AreVersionsConsistent reports whether every module shares one version.
func (model *Model) AreVersionsConsistent(executionContext context.Context) (bool, error) {
	versions, versionsError := model.AllVersions(executionContext)
	if versionsError != nil {
		return false, versionsError
	}
	return len(versions) <= 1, nil
}

func (model *Model) filterModules(executionContext context.Context, include func(Module) bool) ([]Module, error) {
	current, populationError := model.ensurePopulated(executionContext)
	if populationError != nil {
		return nil, populationError
	}
	var matches []Module
	for _, module := range current.modules {
		if include(module) {
			matches = append(matches, module)
		}
	}
	return matches, nil
}

func (model *Model) filterCheckouts(executionContext context.Context, include func(Module) bool) ([]checkout.Checkout, error) {
	current, populationError := model.ensurePopulated(executionContext)
	if populationError != nil {
		return nil, populationError
	}
	var matches []checkout.Checkout
	for _, candidate := range current.moduleCheckouts {
		for _, module := range current.modulesByCheckout[candidate.Path()] {
			if include(module) {
				matches = append(matches, candidate)
				break
			}
		}
	}
	return matches, nil
}
