package discovery_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/canopy/internal/discovery"
)

const (
	workspaceDirectoryName         = "workspace"
	coreRepositoryDirectoryName    = "core"
	toolsRepositoryDirectoryName   = "tools"
	documentationDirectoryName     = "docs"
	gitMetadataDirectoryName       = ".git"
	moduleDescriptorFileName       = "pom.xml"
	buildOutputDirectoryName       = "target"
	repositoryDirectoryPermissions = 0o755
	descriptorFilePermissions      = 0o644
	submoduleGitFileContent        = "gitdir: ../.git/modules/tools\n"
)

type workspaceEntry struct {
	segments     []string
	gitDirectory bool
	gitFile      bool
	descriptor   bool
}

func (entry workspaceEntry) path(rootDirectory string) string {
	return filepath.Join(append([]string{rootDirectory}, entry.segments...)...)
}

func materializeWorkspace(testInstance *testing.T, rootDirectory string, entries []workspaceEntry) {
	testInstance.Helper()
	for _, entry := range entries {
		entryPath := entry.path(rootDirectory)
		require.NoError(testInstance, os.MkdirAll(entryPath, repositoryDirectoryPermissions))
		if entry.gitDirectory {
			require.NoError(testInstance, os.MkdirAll(filepath.Join(entryPath, gitMetadataDirectoryName), repositoryDirectoryPermissions))
		}
		if entry.gitFile {
			require.NoError(testInstance, os.WriteFile(filepath.Join(entryPath, gitMetadataDirectoryName), []byte(submoduleGitFileContent), descriptorFilePermissions))
		}
		if entry.descriptor {
			require.NoError(testInstance, os.WriteFile(filepath.Join(entryPath, moduleDescriptorFileName), []byte("<project/>"), descriptorFilePermissions))
		}
	}
}

func TestFilesystemWorkspaceDiscovererFindsDescriptorsAndWorkingTrees(testInstance *testing.T) {
	temporaryRootDirectory := testInstance.TempDir()
	workspaceRoot := filepath.Join(temporaryRootDirectory, workspaceDirectoryName)

	materializeWorkspace(testInstance, workspaceRoot, []workspaceEntry{
		{segments: nil, gitDirectory: true, descriptor: true},
		{segments: []string{coreRepositoryDirectoryName}, gitDirectory: true, descriptor: true},
		{segments: []string{coreRepositoryDirectoryName, "api"}, descriptor: true},
		{segments: []string{coreRepositoryDirectoryName, buildOutputDirectoryName, "classes"}, descriptor: true},
		{segments: []string{toolsRepositoryDirectoryName}, gitFile: true, descriptor: true},
		{segments: []string{documentationDirectoryName}, gitDirectory: true},
		{segments: []string{gitMetadataDirectoryName, "modules", "tools"}, descriptor: true},
	})

	discoverer := discovery.NewFilesystemWorkspaceDiscoverer()
	result, discoveryError := discoverer.Discover(context.Background(), workspaceRoot)
	require.NoError(testInstance, discoveryError)

	require.Equal(testInstance, []string{
		filepath.Join(workspaceRoot, coreRepositoryDirectoryName, "api", moduleDescriptorFileName),
		filepath.Join(workspaceRoot, coreRepositoryDirectoryName, moduleDescriptorFileName),
		filepath.Join(workspaceRoot, moduleDescriptorFileName),
		filepath.Join(workspaceRoot, toolsRepositoryDirectoryName, moduleDescriptorFileName),
	}, result.ModuleDescriptors)

	require.Equal(testInstance, []string{
		workspaceRoot,
		filepath.Join(workspaceRoot, coreRepositoryDirectoryName),
		filepath.Join(workspaceRoot, documentationDirectoryName),
		filepath.Join(workspaceRoot, toolsRepositoryDirectoryName),
	}, result.WorkingTrees)
}

func TestFilesystemWorkspaceDiscovererHonorsCancellation(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	materializeWorkspace(testInstance, workspaceRoot, []workspaceEntry{{segments: []string{coreRepositoryDirectoryName}, gitDirectory: true, descriptor: true}})

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, discoveryError := discovery.NewFilesystemWorkspaceDiscoverer().Discover(cancelledContext, workspaceRoot)
	require.ErrorIs(testInstance, discoveryError, context.Canceled)
}

func TestFilesystemWorkspaceDiscovererMissingRootYieldsNothing(testInstance *testing.T) {
	result, discoveryError := discovery.NewFilesystemWorkspaceDiscoverer().Discover(context.Background(), filepath.Join(testInstance.TempDir(), "absent"))
	require.NoError(testInstance, discoveryError)
	require.Empty(testInstance, result.ModuleDescriptors)
	require.Empty(testInstance, result.WorkingTrees)
}
