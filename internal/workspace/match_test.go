package workspace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/canopy/internal/checkout"
	"github.com/temirov/canopy/internal/workspace"
)

func TestMatchCheckoutsResolvesScopes(testInstance *testing.T) {
	testCases := []struct {
		name          string
		scope         workspace.Scope
		callingRoot   bool
		includeRoot   bool
		family        workspace.Family
		groupID       string
		expectedPaths []string
	}{
		{
			name:          "just_this",
			scope:         workspace.ScopeJustThis,
			family:        "kivakit",
			groupID:       testKivakitGroupIDConstant,
			expectedPaths: []string{testKivakitPathConstant},
		},
		{
			name:          "just_this_with_root",
			scope:         workspace.ScopeJustThis,
			includeRoot:   true,
			family:        "kivakit",
			groupID:       testKivakitGroupIDConstant,
			expectedPaths: []string{testKivakitPathConstant, testRootPathConstant},
		},
		{
			name:          "family",
			scope:         workspace.ScopeFamily,
			family:        "kivakit",
			groupID:       testKivakitGroupIDConstant,
			expectedPaths: []string{testKivakitPathConstant},
		},
		{
			name:          "family_or_child_family",
			scope:         workspace.ScopeFamilyOrChildFamily,
			family:        "kivakit",
			groupID:       testKivakitGroupIDConstant,
			expectedPaths: []string{testKivakitPathConstant, testKivakitExtensionsPathConstant},
		},
		{
			name:          "same_group_id",
			scope:         workspace.ScopeSameGroupID,
			family:        "extensions",
			groupID:       testExtensionsGroupIDConstant,
			expectedPaths: []string{testKivakitExtensionsPathConstant},
		},
		{
			name:          "all_project_families_excludes_root",
			scope:         workspace.ScopeAllProjectFamilies,
			family:        "kivakit",
			groupID:       testKivakitGroupIDConstant,
			expectedPaths: []string{testKivakitPathConstant, testKivakitExtensionsPathConstant, testMesakitPathConstant},
		},
		{
			name:          "all_with_root",
			scope:         workspace.ScopeAll,
			includeRoot:   true,
			family:        "kivakit",
			groupID:       testKivakitGroupIDConstant,
			expectedPaths: []string{testDocumentationPathConstant, testKivakitPathConstant, testKivakitExtensionsPathConstant, testMesakitPathConstant, testRootPathConstant},
		},
		{
			name:          "just_this_from_root_with_root",
			scope:         workspace.ScopeJustThis,
			callingRoot:   true,
			includeRoot:   true,
			family:        "acme",
			groupID:       testRootGroupIDConstant,
			expectedPaths: []string{testRootPathConstant},
		},
		{
			name:          "just_this_from_root_without_root",
			scope:         workspace.ScopeJustThis,
			callingRoot:   true,
			family:        "acme",
			groupID:       testRootGroupIDConstant,
			expectedPaths: []string{},
		},
		{
			name:          "same_group_id_from_root_with_root",
			scope:         workspace.ScopeSameGroupID,
			callingRoot:   true,
			includeRoot:   true,
			family:        "acme",
			groupID:       testRootGroupIDConstant,
			expectedPaths: []string{testRootPathConstant},
		},
		{
			name:          "same_group_id_from_root_without_root",
			scope:         workspace.ScopeSameGroupID,
			callingRoot:   true,
			family:        "acme",
			groupID:       testRootGroupIDConstant,
			expectedPaths: []string{},
		},
		{
			name:          "empty_family_never_yields_root_alone",
			scope:         workspace.ScopeFamily,
			includeRoot:   true,
			family:        "lexakit",
			groupID:       "com.acme.lexakit",
			expectedPaths: []string{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newWorkspaceFixture()
			model := openModel(testInstance, fixture.scanner)
			calling := checkout.Checkout(fixture.kivakit)
			if testCase.callingRoot {
				calling = fixture.root
			}

			matched, matchError := model.MatchCheckouts(context.Background(), testCase.scope, calling, testCase.includeRoot, testCase.family, testCase.groupID)
			require.NoError(testInstance, matchError)
			require.Equal(testInstance, testCase.expectedPaths, checkoutPaths(matched))
		})
	}
}

func TestMatchCheckoutsReturnsInternedInstances(testInstance *testing.T) {
	fixture := newWorkspaceFixture()
	model := openModel(testInstance, fixture.scanner)

	matched, matchError := model.MatchCheckouts(context.Background(), workspace.ScopeFamily, fixture.kivakit, false, "kivakit", testKivakitGroupIDConstant)
	require.NoError(testInstance, matchError)
	require.Len(testInstance, matched, 1)
	require.Same(testInstance, fixture.kivakit, matched[0])
}

func TestMatchCheckoutsRejectsUnknownScope(testInstance *testing.T) {
	fixture := newWorkspaceFixture()
	model := openModel(testInstance, fixture.scanner)

	_, matchError := model.MatchCheckouts(context.Background(), workspace.Scope(42), fixture.kivakit, false, "kivakit", testKivakitGroupIDConstant)
	require.ErrorContains(testInstance, matchError, "unsupported scope")
}
