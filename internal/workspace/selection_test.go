package workspace_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/canopy/internal/workspace"
)

func TestSelectDerivesFamilyFromCallingPath(testInstance *testing.T) {
	testCases := []struct {
		name          string
		path          string
		selection     workspace.Selection
		expectedPaths []string
	}{
		{
			name:          "module_directory_supplies_group_id",
			path:          filepath.Join(testKivakitPathConstant, "core"),
			selection:     workspace.Selection{Scope: workspace.ScopeFamily},
			expectedPaths: []string{testKivakitPathConstant},
		},
		{
			name:          "checkout_modules_supply_group_id",
			path:          testKivakitPathConstant,
			selection:     workspace.Selection{Scope: workspace.ScopeFamily, IncludeRoot: true},
			expectedPaths: []string{testKivakitPathConstant, testRootPathConstant},
		},
		{
			name:          "explicit_family_wins",
			path:          testRootPathConstant,
			selection:     workspace.Selection{Scope: workspace.ScopeFamily, Family: "mesakit"},
			expectedPaths: []string{testMesakitPathConstant},
		},
		{
			name:          "explicit_group_id_wins",
			path:          testKivakitPathConstant,
			selection:     workspace.Selection{Scope: workspace.ScopeSameGroupID, GroupID: testExtensionsGroupIDConstant},
			expectedPaths: []string{testKivakitExtensionsPathConstant},
		},
		{
			name:          "checkout_without_modules_matches_nothing",
			path:          testDocumentationPathConstant,
			selection:     workspace.Selection{Scope: workspace.ScopeSameGroupID, IncludeRoot: true},
			expectedPaths: []string{},
		},
		{
			name:          "just_this_uses_nearest_checkout",
			path:          filepath.Join(testKivakitExtensionsPathConstant, "src"),
			selection:     workspace.Selection{Scope: workspace.ScopeJustThis},
			expectedPaths: []string{testKivakitExtensionsPathConstant},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			model := openModel(testInstance, newWorkspaceFixture().scanner)

			selected, selectError := model.Select(context.Background(), testCase.path, testCase.selection)
			require.NoError(testInstance, selectError)
			require.Equal(testInstance, testCase.expectedPaths, checkoutPaths(selected))
		})
	}
}

func TestSelectRejectsPathOutsideCheckouts(testInstance *testing.T) {
	model := openModel(testInstance, newWorkspaceFixture().scanner)

	_, selectError := model.Select(context.Background(), "/elsewhere", workspace.Selection{Scope: workspace.ScopeAll})
	require.ErrorIs(testInstance, selectError, workspace.ErrNotRepository)
}

func TestCallingCheckoutIsInterned(testInstance *testing.T) {
	model := openModel(testInstance, newWorkspaceFixture().scanner)

	first, firstError := model.CallingCheckout(context.Background(), testMesakitPathConstant)
	require.NoError(testInstance, firstError)
	all, allError := model.AllCheckouts(context.Background())
	require.NoError(testInstance, allError)

	var interned bool
	for _, candidate := range all {
		if candidate == first {
			interned = true
		}
	}
	require.True(testInstance, interned)
}
