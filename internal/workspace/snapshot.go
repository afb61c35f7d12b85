package workspace

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/canopy/internal/checkout"
)

const (
	skippedDescriptorMessageConstant        = "Skipping unparsable module descriptor"
	skippedUnownedDescriptorMessageConstant = "Skipping module descriptor outside any working tree"
	duplicateModuleMessageConstant          = "Ignoring duplicate module coordinates"
	skippedWorkingTreeMessageConstant       = "Skipping unresolvable working tree"
	populatedMessageConstant                = "Populated workspace model"
	logFieldDescriptorConstant              = "descriptor"
	logFieldModuleConstant                  = "module"
	logFieldWorkingTreeConstant             = "working_tree"
	logFieldModuleCountConstant             = "modules"
	logFieldCheckoutCountConstant           = "checkouts"
	logFieldRootConstant                    = "root"
)

// snapshot is an immutable, cross-indexed view of the workspace at population time.
type snapshot struct {
	root               checkout.Checkout
	checkoutsByPath    map[string]checkout.Checkout
	modulesByGroupID   map[string]map[string]Module
	modulesByCheckout  map[string][]Module
	checkoutByModule   map[Coordinates]checkout.Checkout
	moduleCheckouts    []checkout.Checkout
	nonModuleCheckouts []checkout.Checkout
	modules            []Module
}

// checkoutInterner converges checkouts discovered repeatedly onto one instance per path.
type checkoutInterner struct {
	instances sync.Map
}

func (interner *checkoutInterner) intern(candidate checkout.Checkout) checkout.Checkout {
	existing, _ := interner.instances.LoadOrStore(candidate.Path(), candidate)
	return existing.(checkout.Checkout)
}

type resolvedModule struct {
	module   Module
	checkout checkout.Checkout
}

func (model *Model) populate(executionContext context.Context) (*snapshot, error) {
	root := model.root
	discovered, discoveryError := model.scanner.Discover(executionContext, root.Path())
	if discoveryError != nil {
		return nil, discoveryError
	}

	interner := &checkoutInterner{}
	root = interner.intern(root)

	var accumulationMutex sync.Mutex
	resolvedModules := make([]resolvedModule, 0, len(discovered.ModuleDescriptors))

	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(model.parallelism)
	for _, descriptorPath := range discovered.ModuleDescriptors {
		group.Go(func() error {
			if contextError := groupContext.Err(); contextError != nil {
				return contextError
			}
			module, parseError := model.scanner.ParseModule(descriptorPath)
			if parseError != nil {
				model.logger.Warn(skippedDescriptorMessageConstant, zap.String(logFieldDescriptorConstant, descriptorPath), zap.Error(parseError))
				return nil
			}
			owner, found, lookupError := model.scanner.CheckoutOf(filepath.Dir(descriptorPath))
			if lookupError != nil || !found {
				model.logger.Warn(skippedUnownedDescriptorMessageConstant, zap.String(logFieldDescriptorConstant, descriptorPath), zap.Error(lookupError))
				return nil
			}
			owner = interner.intern(owner)
			module.Checkout = owner

			accumulationMutex.Lock()
			resolvedModules = append(resolvedModules, resolvedModule{module: module, checkout: owner})
			accumulationMutex.Unlock()
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}

	workingTrees := make([]checkout.Checkout, 0, len(discovered.WorkingTrees))
	for _, workingTreePath := range discovered.WorkingTrees {
		workingTree, found, lookupError := model.scanner.CheckoutOf(workingTreePath)
		if lookupError != nil || !found {
			model.logger.Debug(skippedWorkingTreeMessageConstant, zap.String(logFieldWorkingTreeConstant, workingTreePath), zap.Error(lookupError))
			continue
		}
		workingTrees = append(workingTrees, interner.intern(workingTree))
	}

	built := buildSnapshot(model.logger, root, resolvedModules, workingTrees)
	model.logger.Debug(populatedMessageConstant,
		zap.String(logFieldRootConstant, root.Path()),
		zap.Int(logFieldModuleCountConstant, len(built.modules)),
		zap.Int(logFieldCheckoutCountConstant, len(built.checkoutsByPath)),
	)
	return built, nil
}

func buildSnapshot(logger *zap.Logger, root checkout.Checkout, resolvedModules []resolvedModule, workingTrees []checkout.Checkout) *snapshot {
	sort.Slice(resolvedModules, func(left int, right int) bool {
		return resolvedModules[left].module.Path < resolvedModules[right].module.Path
	})

	built := &snapshot{
		root:              root,
		checkoutsByPath:   map[string]checkout.Checkout{root.Path(): root},
		modulesByGroupID:  make(map[string]map[string]Module),
		modulesByCheckout: make(map[string][]Module),
		checkoutByModule:  make(map[Coordinates]checkout.Checkout),
	}

	for _, resolved := range resolvedModules {
		coordinates := resolved.module.Coordinates()
		if _, duplicate := built.checkoutByModule[coordinates]; duplicate {
			logger.Warn(duplicateModuleMessageConstant, zap.String(logFieldModuleConstant, coordinates.String()), zap.String(logFieldDescriptorConstant, resolved.module.Path))
			continue
		}
		if built.modulesByGroupID[coordinates.GroupID] == nil {
			built.modulesByGroupID[coordinates.GroupID] = make(map[string]Module)
		}
		built.modulesByGroupID[coordinates.GroupID][coordinates.ArtifactID] = resolved.module
		built.checkoutByModule[coordinates] = resolved.checkout
		built.checkoutsByPath[resolved.checkout.Path()] = resolved.checkout
		if _, seen := built.modulesByCheckout[resolved.checkout.Path()]; !seen {
			built.moduleCheckouts = append(built.moduleCheckouts, resolved.checkout)
		}
		built.modulesByCheckout[resolved.checkout.Path()] = append(built.modulesByCheckout[resolved.checkout.Path()], resolved.module)
		built.modules = append(built.modules, resolved.module)
	}

	for _, workingTree := range workingTrees {
		built.checkoutsByPath[workingTree.Path()] = workingTree
		if _, holdsModules := built.modulesByCheckout[workingTree.Path()]; !holdsModules {
			built.nonModuleCheckouts = append(built.nonModuleCheckouts, workingTree)
		}
	}
	if _, holdsModules := built.modulesByCheckout[root.Path()]; !holdsModules && !containsCheckout(built.nonModuleCheckouts, root) {
		built.nonModuleCheckouts = append(built.nonModuleCheckouts, root)
	}

	checkout.DepthFirstSort(built.moduleCheckouts)
	checkout.DepthFirstSort(built.nonModuleCheckouts)
	return built
}

func containsCheckout(checkouts []checkout.Checkout, candidate checkout.Checkout) bool {
	for _, existing := range checkouts {
		if existing.Path() == candidate.Path() {
			return true
		}
	}
	return false
}

func defaultParallelism() int {
	return runtime.NumCPU()
}
