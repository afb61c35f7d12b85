package discovery

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
)

const (
	gitMetadataEntryNameConstant          = ".git"
	moduleDescriptorFileNameConstant      = "pom.xml"
	buildOutputDirectoryNameConstant      = "target"
	nodeDependenciesDirectoryNameConstant = "node_modules"
)

// Discovery lists what a workspace scan found below a root.
type Discovery struct {
	ModuleDescriptors []string
	WorkingTrees      []string
}

// FilesystemWorkspaceDiscoverer locates module descriptors and git working trees on disk.
type FilesystemWorkspaceDiscoverer struct {
	skippedDirectoryNames map[string]struct{}
}

// NewFilesystemWorkspaceDiscoverer constructs a discoverer backed by filepath.WalkDir.
func NewFilesystemWorkspaceDiscoverer() *FilesystemWorkspaceDiscoverer {
	return &FilesystemWorkspaceDiscoverer{
		skippedDirectoryNames: map[string]struct{}{
			gitMetadataEntryNameConstant:          {},
			buildOutputDirectoryNameConstant:      {},
			nodeDependenciesDirectoryNameConstant: {},
		},
	}
}

// Discover walks root and returns the sorted module descriptor paths and working tree roots.
// Unreadable entries are skipped.
func (discoverer *FilesystemWorkspaceDiscoverer) Discover(executionContext context.Context, root string) (Discovery, error) {
	seenDescriptors := make(map[string]struct{})
	seenWorkingTrees := make(map[string]struct{})
	var discovery Discovery

	walkError := filepath.WalkDir(root, func(path string, directoryEntry fs.DirEntry, walkError error) error {
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}
		if walkError != nil {
			return nil
		}

		name := directoryEntry.Name()
		if name == gitMetadataEntryNameConstant {
			workingTreePath := filepath.Dir(path)
			if _, alreadySeen := seenWorkingTrees[workingTreePath]; !alreadySeen {
				seenWorkingTrees[workingTreePath] = struct{}{}
				discovery.WorkingTrees = append(discovery.WorkingTrees, workingTreePath)
			}
			if directoryEntry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if directoryEntry.IsDir() {
			if _, skipped := discoverer.skippedDirectoryNames[name]; skipped && path != root {
				return fs.SkipDir
			}
			return nil
		}

		if name == moduleDescriptorFileNameConstant {
			if _, alreadySeen := seenDescriptors[path]; !alreadySeen {
				seenDescriptors[path] = struct{}{}
				discovery.ModuleDescriptors = append(discovery.ModuleDescriptors, path)
			}
		}
		return nil
	})
	if walkError != nil {
		return Discovery{}, walkError
	}

	sort.Strings(discovery.ModuleDescriptors)
	sort.Strings(discovery.WorkingTrees)
	return discovery, nil
}
