package branches_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/canopy/internal/branches"
)

func TestProtectionPolicy(testInstance *testing.T) {
	policy, policyError := branches.NewProtectionPolicy([]string{" keep-me "}, []string{"^hotfix/", "-wip$"})
	require.NoError(testInstance, policyError)

	testCases := []struct {
		name      string
		branch    string
		protected bool
	}{
		{name: "trunk", branch: "master", protected: true},
		{name: "integration", branch: "develop", protected: true},
		{name: "stable", branch: "stable", protected: true},
		{name: "current_release", branch: "release/current", protected: true},
		{name: "release_prefix", branch: "release/1.2", protected: true},
		{name: "release_prefix_without_separator", branch: "released", protected: true},
		{name: "listed", branch: "keep-me", protected: true},
		{name: "pattern_prefix", branch: "hotfix/login", protected: true},
		{name: "pattern_suffix", branch: "feature/search-wip", protected: true},
		{name: "feature", branch: "feature/search", protected: false},
		{name: "nested_release_is_not_prefixed", branch: "feature/release", protected: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.protected, policy.IsProtected(testCase.branch))
		})
	}

	require.Equal(testInstance, []string{"develop", "keep-me", "master", "release/current", "stable"}, policy.ProtectedNames())
}

func TestNewSafeBranches(testInstance *testing.T) {
	safe, safeError := branches.NewSafeBranches([]string{" develop", "release/current", "develop", ""})
	require.NoError(testInstance, safeError)
	require.Equal(testInstance, []string{"develop", "release/current"}, safe.Names())
	require.True(testInstance, safe.Contains("develop"))
	require.False(testInstance, safe.Contains("master"))

	_, emptyError := branches.NewSafeBranches(nil)
	var configurationError branches.ConfigurationError
	require.ErrorAs(testInstance, emptyError, &configurationError)
}

func TestValidateBranchName(testInstance *testing.T) {
	testCases := []struct {
		name   string
		branch string
		valid  bool
	}{
		{name: "simple", branch: "develop", valid: true},
		{name: "nested", branch: "release/current", valid: true},
		{name: "empty", branch: "", valid: false},
		{name: "space", branch: "my branch", valid: false},
		{name: "parent_sequence", branch: "a..b", valid: false},
		{name: "reflog_sequence", branch: "a@{1}", valid: false},
		{name: "leading_dash", branch: "-develop", valid: false},
		{name: "trailing_slash", branch: "develop/", valid: false},
		{name: "lock_suffix", branch: "develop.lock", valid: false},
		{name: "trailing_dot", branch: "develop.", valid: false},
		{name: "glob", branch: "feature/*", valid: false},
		{name: "control_character", branch: "dev\x01elop", valid: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			validationError := branches.ValidateBranchName(testCase.branch)
			if testCase.valid {
				require.NoError(testInstance, validationError)
				return
			}
			var configurationError branches.ConfigurationError
			require.ErrorAs(testInstance, validationError, &configurationError)
		})
	}
}
