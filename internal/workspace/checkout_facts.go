package workspace

import (
	"context"
	"sort"

	"github.com/temirov/canopy/internal/checkout"
)

type optionalBranchName struct {
	name  string
	found bool
}

// BranchFor returns the checked out branch of the checkout, reporting false when HEAD is detached.
func (model *Model) BranchFor(executionContext context.Context, target checkout.Checkout) (string, bool, error) {
	if _, populationError := model.ensurePopulated(executionContext); populationError != nil {
		return "", false, populationError
	}
	branch, branchError := memoize(model.facts.Load(), factCurrentBranch, target.Path(), func() (optionalBranchName, error) {
		name, found, currentError := target.CurrentBranchName(executionContext)
		return optionalBranchName{name: name, found: found}, currentError
	})
	return branch.name, branch.found, branchError
}

// IsDirty reports whether the working tree of the checkout has uncommitted changes.
func (model *Model) IsDirty(executionContext context.Context, target checkout.Checkout) (bool, error) {
	if _, populationError := model.ensurePopulated(executionContext); populationError != nil {
		return false, populationError
	}
	return memoize(model.facts.Load(), factDirty, target.Path(), func() (bool, error) {
		return target.IsDirty(executionContext)
	})
}

// IsDetachedHead reports whether HEAD of the checkout points directly at a commit.
func (model *Model) IsDetachedHead(executionContext context.Context, target checkout.Checkout) (bool, error) {
	if _, populationError := model.ensurePopulated(executionContext); populationError != nil {
		return false, populationError
	}
	return memoize(model.facts.Load(), factDetachedHead, target.Path(), func() (bool, error) {
		return target.IsDetachedHead(executionContext)
	})
}

// Branches returns the branch snapshot of the checkout.
func (model *Model) Branches(executionContext context.Context, target checkout.Checkout) (checkout.Branches, error) {
	if _, populationError := model.ensurePopulated(executionContext); populationError != nil {
		return checkout.Branches{}, populationError
	}
	return memoize(model.facts.Load(), factBranches, target.Path(), func() (checkout.Branches, error) {
		return checkout.LoadBranches(executionContext, target)
	})
}

// RemoteHeads returns the branches present on the default remote of the checkout.
func (model *Model) RemoteHeads(executionContext context.Context, target checkout.Checkout) (checkout.Heads, error) {
	if _, populationError := model.ensurePopulated(executionContext); populationError != nil {
		return checkout.Heads{}, populationError
	}
	return memoize(model.facts.Load(), factRemoteHeads, target.Path(), func() (checkout.Heads, error) {
		remoteName, found, remoteError := target.DefaultRemoteName(executionContext)
		if remoteError != nil {
			return checkout.Heads{}, remoteError
		}
		if !found {
			return checkout.NewHeads("", nil), nil
		}
		return target.RemoteHeads(executionContext, remoteName)
	})
}

// SubmoduleStatuses returns the submodules registered in the root working tree.
func (model *Model) SubmoduleStatuses(executionContext context.Context) ([]checkout.SubmoduleStatus, error) {
	current, populationError := model.ensurePopulated(executionContext)
	if populationError != nil {
		return nil, populationError
	}
	return memoize(model.facts.Load(), factSubmoduleStatuses, current.root.Path(), func() ([]checkout.SubmoduleStatus, error) {
		return current.root.SubmoduleStatuses(executionContext)
	})
}

// MostCommonBranchForGroupID returns the branch most checkouts holding the groupId are on.
// Each checkout counts once; ties resolve to the lexically smallest branch name.
func (model *Model) MostCommonBranchForGroupID(executionContext context.Context, groupID string) (string, bool, error) {
	if _, populationError := model.ensurePopulated(executionContext); populationError != nil {
		return "", false, populationError
	}
	branch, branchError := memoize(model.facts.Load(), factMostCommonBranch, groupID, func() (optionalBranchName, error) {
		checkouts, checkoutsError := model.CheckoutsContainingGroupID(executionContext, groupID)
		if checkoutsError != nil {
			return optionalBranchName{}, checkoutsError
		}
		counts := make(map[string]int)
		for _, candidate := range checkouts {
			name, onBranch, currentError := model.BranchFor(executionContext, candidate)
			if currentError != nil {
				return optionalBranchName{}, currentError
			}
			if onBranch {
				counts[name]++
			}
		}
		return mostFrequent(counts), nil
	})
	return branch.name, branch.found, branchError
}

// AllBranches returns the sorted distinct branches the module checkouts are on.
func (model *Model) AllBranches(executionContext context.Context) ([]string, error) {
	checkouts, checkoutsError := model.AllCheckouts(executionContext)
	if checkoutsError != nil {
		return nil, checkoutsError
	}
	seen := make(map[string]struct{})
	var names []string
	for _, candidate := range checkouts {
		name, onBranch, currentError := model.BranchFor(executionContext, candidate)
		if currentError != nil {
			return nil, currentError
		}
		if _, duplicate := seen[name]; !onBranch || duplicate {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// BranchesByGroupID maps each groupId to the sorted tracking names of every branch in the checkouts holding it.
func (model *Model) BranchesByGroupID(executionContext context.Context) (map[string][]string, error) {
	modules, modulesError := model.AllModules(executionContext)
	if modulesError != nil {
		return nil, modulesError
	}
	collected := make(map[string]map[string]struct{})
	for _, module := range modules {
		branches, branchesError := model.Branches(executionContext, module.Checkout)
		if branchesError != nil {
			return nil, branchesError
		}
		if collected[module.GroupID] == nil {
			collected[module.GroupID] = make(map[string]struct{})
		}
		for _, branch := range branches.All() {
			collected[module.GroupID][branch.TrackingName()] = struct{}{}
		}
	}

	result := make(map[string][]string, len(collected))
	for groupID, names := range collected {
		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)
		result[groupID] = sorted
	}
	return result, nil
}

// ModulesByBranchByGroupID maps groupId to checked out branch to the modules on it.
// Modules in checkouts with a detached HEAD are omitted.
func (model *Model) ModulesByBranchByGroupID(executionContext context.Context) (map[string]map[string][]Module, error) {
	modules, modulesError := model.AllModules(executionContext)
	if modulesError != nil {
		return nil, modulesError
	}
	result := make(map[string]map[string][]Module)
	for _, module := range modules {
		name, onBranch, currentError := model.BranchFor(executionContext, module.Checkout)
		if currentError != nil {
			return nil, currentError
		}
		if !onBranch {
			continue
		}
		if result[module.GroupID] == nil {
			result[module.GroupID] = make(map[string][]Module)
		}
		result[module.GroupID][name] = append(result[module.GroupID][name], module)
	}
	return result, nil
}

func mostFrequent(counts map[string]int) optionalBranchName {
	var winner optionalBranchName
	highest := 0
	for name, count := range counts {
		if count > highest || (count == highest && name < winner.name) {
			winner = optionalBranchName{name: name, found: true}
			highest = count
		}
	}
	return winner
}
