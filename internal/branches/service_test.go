package branches_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/canopy/internal/branches"
	"github.com/temirov/canopy/internal/checkout"
	"github.com/temirov/canopy/internal/checkout/checkouttest"
)

const (
	testOriginRemoteConstant   = "origin"
	testUpstreamRemoteConstant = "upstream"
	testDevelopBranchConstant  = "develop"
	testReleaseCurrentConstant = "release/current"
	testFeatureBranchConstant  = "feature/x"
	testCheckoutAPathConstant  = "/forest/alpha"
	testCheckoutBPathConstant  = "/forest/beta"
	testRemoteUpdateConstant   = "remote update"
	testPruneConstant          = "fetch --all --prune"
)

type cachingModel struct {
	mutex         sync.Mutex
	branches      map[string]checkout.Branches
	invalidations int
}

func newCachingModel() *cachingModel {
	return &cachingModel{branches: make(map[string]checkout.Branches)}
}

func (model *cachingModel) Branches(executionContext context.Context, target checkout.Checkout) (checkout.Branches, error) {
	model.mutex.Lock()
	defer model.mutex.Unlock()
	if cached, found := model.branches[target.Path()]; found {
		return cached, nil
	}
	loaded, loadError := checkout.LoadBranches(executionContext, target)
	if loadError != nil {
		return checkout.Branches{}, loadError
	}
	model.branches[target.Path()] = loaded
	return loaded, nil
}

func (model *cachingModel) InvalidateBranches(target checkout.Checkout) {
	model.mutex.Lock()
	defer model.mutex.Unlock()
	delete(model.branches, target.Path())
}

func (model *cachingModel) Invalidate() {
	model.mutex.Lock()
	defer model.mutex.Unlock()
	model.branches = make(map[string]checkout.Branches)
	model.invalidations++
}

func defaultOptions(acknowledge bool, checkouts ...checkout.Checkout) branches.Options {
	return branches.Options{
		SafeBranches:  []string{testDevelopBranchConstant, testReleaseCurrentConstant},
		Acknowledge:   acknowledge,
		CleanupRemote: true,
		CleanupLocal:  true,
		Parallelism:   2,
		Checkouts:     checkouts,
	}
}

func runCleanup(testInstance *testing.T, logger *zap.Logger, model branches.WorkspaceModel, options branches.Options) branches.Report {
	testInstance.Helper()
	service, serviceError := branches.NewService(branches.ServiceDependencies{Logger: logger, Model: model})
	require.NoError(testInstance, serviceError)
	report, runError := service.Run(context.Background(), options)
	require.NoError(testInstance, runError)
	return report
}

func record(checkoutPath string, remote string, branch string, head string) branches.BranchRecord {
	return branches.BranchRecord{Checkout: checkoutPath, Remote: remote, Branch: branch, Head: head}
}

func TestNewServiceRequiresDependencies(testInstance *testing.T) {
	_, loggerError := branches.NewService(branches.ServiceDependencies{Model: newCachingModel()})
	require.ErrorIs(testInstance, loggerError, branches.ErrLoggerNotConfigured)

	_, modelError := branches.NewService(branches.ServiceDependencies{Logger: zap.NewNop()})
	require.ErrorIs(testInstance, modelError, branches.ErrModelNotConfigured)
}

func TestRunRejectsInvalidConfigurationBeforeTouchingCheckouts(testInstance *testing.T) {
	testCases := []struct {
		name   string
		mutate func(options *branches.Options)
	}{
		{name: "empty_safe_branches", mutate: func(options *branches.Options) { options.SafeBranches = nil }},
		{name: "blank_safe_branches", mutate: func(options *branches.Options) { options.SafeBranches = []string{" ", ""} }},
		{name: "malformed_safe_branch", mutate: func(options *branches.Options) { options.SafeBranches = []string{"bad..name"} }},
		{name: "invalid_pattern", mutate: func(options *branches.Options) { options.ProtectedPatterns = []string{"feature/["} }},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fake := checkouttest.New(testCheckoutAPathConstant).WithRemoteBranch(testOriginRemoteConstant, testFeatureBranchConstant, "f1")
			options := defaultOptions(true, fake)
			testCase.mutate(&options)

			service, serviceError := branches.NewService(branches.ServiceDependencies{Logger: zap.NewNop(), Model: newCachingModel()})
			require.NoError(testInstance, serviceError)

			_, runError := service.Run(context.Background(), options)
			var configurationError branches.ConfigurationError
			require.ErrorAs(testInstance, runError, &configurationError)
			require.Empty(testInstance, fake.Mutations())
			require.Zero(testInstance, fake.CurrentBranchReads())
		})
	}
}

func TestRemoteBranchNameVetoedByOneUnmergedCheckout(testInstance *testing.T) {
	alpha := checkouttest.New(testCheckoutAPathConstant).
		WithRemoteBranch(testOriginRemoteConstant, testFeatureBranchConstant, "a1").
		WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "a2").
		WithAncestry("a2", "a1")
	beta := checkouttest.New(testCheckoutBPathConstant).
		WithRemoteBranch(testOriginRemoteConstant, testFeatureBranchConstant, "b1").
		WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "b2")

	report := runCleanup(testInstance, zap.NewNop(), newCachingModel(), defaultOptions(true, alpha, beta))

	require.Nil(testInstance, report.PlannedRemote)
	require.Nil(testInstance, report.RemoteDeleted)
	require.True(testInstance, alpha.HasRemoteBranch(testOriginRemoteConstant, testFeatureBranchConstant))
	require.True(testInstance, beta.HasRemoteBranch(testOriginRemoteConstant, testFeatureBranchConstant))
	require.Equal(testInstance, []string{testRemoteUpdateConstant, testPruneConstant}, alpha.Mutations())
	require.Equal(testInstance, []string{testRemoteUpdateConstant, testPruneConstant}, beta.Mutations())
}

func TestRemoteBranchMergedEverywhereIsDeletedWithLocalCounterpart(testInstance *testing.T) {
	alpha := checkouttest.New(testCheckoutAPathConstant).
		WithCurrentBranch(testDevelopBranchConstant).
		WithLocalBranch(testDevelopBranchConstant, "a2").
		WithLocalBranch(testFeatureBranchConstant, "a1").
		WithRemoteBranch(testOriginRemoteConstant, testFeatureBranchConstant, "a1").
		WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "a2").
		WithAncestry("a2", "a1")
	beta := checkouttest.New(testCheckoutBPathConstant).
		WithCurrentBranch(testFeatureBranchConstant).
		WithLocalBranch(testFeatureBranchConstant, "b1").
		WithRemoteBranch(testOriginRemoteConstant, testFeatureBranchConstant, "b1").
		WithRemoteBranch(testOriginRemoteConstant, testReleaseCurrentConstant, "b2").
		WithAncestry("b2", "b1")

	report := runCleanup(testInstance, zap.NewNop(), newCachingModel(), defaultOptions(true, alpha, beta))

	require.Equal(testInstance, []branches.BranchRecord{
		record(testCheckoutAPathConstant, testOriginRemoteConstant, testFeatureBranchConstant, "a1"),
		record(testCheckoutBPathConstant, testOriginRemoteConstant, testFeatureBranchConstant, "b1"),
	}, report.RemoteDeleted)
	require.Equal(testInstance, []branches.BranchRecord{
		record(testCheckoutAPathConstant, "", testFeatureBranchConstant, ""),
	}, report.LocalDeleted)
	require.False(testInstance, alpha.HasLocalBranch(testFeatureBranchConstant))
	require.True(testInstance, beta.HasLocalBranch(testFeatureBranchConstant))
	require.Nil(testInstance, report.Failures)
}

func TestLocalOnlyBranchMergedIntoSafeRemoteIsDeleted(testInstance *testing.T) {
	fake := checkouttest.New(testCheckoutAPathConstant).
		WithCurrentBranch("work").
		WithLocalBranch("work", "w1").
		WithLocalBranch("tmp-123", "t1").
		WithRemoteBranch(testOriginRemoteConstant, "work", "w1").
		WithRemoteBranch(testOriginRemoteConstant, testReleaseCurrentConstant, "r1").
		WithAncestry("r1", "t1")

	report := runCleanup(testInstance, zap.NewNop(), newCachingModel(), defaultOptions(true, fake))

	require.Equal(testInstance, []branches.BranchRecord{record(testCheckoutAPathConstant, "", "tmp-123", "t1")}, report.PlannedLocal)
	require.Equal(testInstance, []branches.BranchRecord{record(testCheckoutAPathConstant, "", "tmp-123", "t1")}, report.LocalDeleted)
	require.False(testInstance, fake.HasLocalBranch("tmp-123"))
	require.True(testInstance, fake.HasLocalBranch("work"))
	require.Contains(testInstance, fake.Mutations(), "branch -d tmp-123")
}

func TestLocalBranchWithRemoteCounterpartIsNotALocalCandidate(testInstance *testing.T) {
	fake := checkouttest.New(testCheckoutAPathConstant).
		WithCurrentBranch(testDevelopBranchConstant).
		WithLocalBranch(testDevelopBranchConstant, "d1").
		WithLocalBranch("paired", "p1").
		WithRemoteBranch(testUpstreamRemoteConstant, "paired", "p0").
		WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "d1").
		WithAncestry("d1", "p1")

	report := runCleanup(testInstance, zap.NewNop(), newCachingModel(), defaultOptions(true, fake))

	require.Nil(testInstance, report.PlannedLocal)
	require.True(testInstance, fake.HasLocalBranch("paired"))
}

func TestCurrentLocalBranchIsKeptWithWarning(testInstance *testing.T) {
	fake := checkouttest.New(testCheckoutAPathConstant).
		WithCurrentBranch("tmp").
		WithLocalBranch("tmp", "t1").
		WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "d1").
		WithAncestry("d1", "t1")

	report := runCleanup(testInstance, zap.NewNop(), newCachingModel(), defaultOptions(true, fake))

	require.Nil(testInstance, report.PlannedLocal)
	require.Nil(testInstance, report.LocalDeleted)
	require.Len(testInstance, report.Warnings, 1)
	require.Contains(testInstance, report.Warnings[0], "tmp")
	require.True(testInstance, fake.HasLocalBranch("tmp"))
}

func TestDryRunPlansWithoutMutating(testInstance *testing.T) {
	fake := checkouttest.New(testCheckoutAPathConstant).
		WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "d0").
		WithRemoteBranch(testOriginRemoteConstant, "feature/a", "f1").
		WithRemoteBranch(testOriginRemoteConstant, "feature/b", "f2").
		WithRemoteBranch(testOriginRemoteConstant, "feature/c", "f3").
		WithAncestry("d0", "f1", "f2", "f3")
	observedCore, observedLogs := observer.New(zapcore.InfoLevel)

	report := runCleanup(testInstance, zap.New(observedCore), newCachingModel(), defaultOptions(false, fake))

	require.False(testInstance, report.Acknowledged)
	require.Equal(testInstance, []branches.BranchRecord{
		record(testCheckoutAPathConstant, testOriginRemoteConstant, "feature/a", "f1"),
		record(testCheckoutAPathConstant, testOriginRemoteConstant, "feature/b", "f2"),
		record(testCheckoutAPathConstant, testOriginRemoteConstant, "feature/c", "f3"),
	}, report.PlannedRemote)
	require.Nil(testInstance, report.RemoteDeleted)
	require.Empty(testInstance, fake.Mutations())
	require.Equal(testInstance, 3, observedLogs.FilterMessage("Would delete remote branch").Len())
}

func TestProtectedBranchesAreNeverSelected(testInstance *testing.T) {
	fake := checkouttest.New(testCheckoutAPathConstant).WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "d0")
	protectedNames := []string{"master", "stable", "release/2.0", "releasefoo", "hotfix/keep", "extra"}
	for index, name := range append(append([]string{}, protectedNames...), "feature/go") {
		commit := "p" + string(rune('a'+index))
		fake.WithRemoteBranch(testOriginRemoteConstant, name, commit).WithAncestry("d0", commit)
	}
	options := defaultOptions(true, fake)
	options.ProtectedBranches = []string{"extra"}
	options.ProtectedPatterns = []string{"^hotfix/"}

	report := runCleanup(testInstance, zap.NewNop(), newCachingModel(), options)

	require.Len(testInstance, report.RemoteDeleted, 1)
	require.Equal(testInstance, "feature/go", report.RemoteDeleted[0].Branch)
	for _, name := range protectedNames {
		require.True(testInstance, fake.HasRemoteBranch(testOriginRemoteConstant, name), name)
	}
}

func TestSecondRunDeletesNothing(testInstance *testing.T) {
	fake := checkouttest.New(testCheckoutAPathConstant).
		WithCurrentBranch(testDevelopBranchConstant).
		WithLocalBranch(testDevelopBranchConstant, "d1").
		WithLocalBranch("scratch", "s1").
		WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "d1").
		WithRemoteBranch(testOriginRemoteConstant, testFeatureBranchConstant, "f1").
		WithAncestry("d1", "s1", "f1")
	model := newCachingModel()

	first := runCleanup(testInstance, zap.NewNop(), model, defaultOptions(true, fake))
	require.Len(testInstance, first.RemoteDeleted, 1)
	require.Len(testInstance, first.LocalDeleted, 1)

	second := runCleanup(testInstance, zap.NewNop(), model, defaultOptions(true, fake))
	require.Nil(testInstance, second.PlannedRemote)
	require.Nil(testInstance, second.PlannedLocal)
	require.Nil(testInstance, second.RemoteDeleted)
	require.Nil(testInstance, second.LocalDeleted)
}

func TestRemoteDeletionOutcomes(testInstance *testing.T) {
	testCases := []struct {
		name             string
		deletionError    error
		expectedDeleted  int
		expectedAbsent   int
		expectedFailures int
	}{
		{name: "already_absent", deletionError: checkout.ErrRemoteRefAbsent, expectedAbsent: 1},
		{name: "other_failure", deletionError: errors.New("permission denied"), expectedFailures: 1},
		{name: "success", expectedDeleted: 1},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fake := checkouttest.New(testCheckoutAPathConstant).
				WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "d1").
				WithRemoteBranch(testOriginRemoteConstant, testFeatureBranchConstant, "f1").
				WithAncestry("d1", "f1")
			if testCase.deletionError != nil {
				fake.WithRemoteDeletionError(testOriginRemoteConstant, testFeatureBranchConstant, testCase.deletionError)
			}

			report := runCleanup(testInstance, zap.NewNop(), newCachingModel(), defaultOptions(true, fake))

			require.Len(testInstance, report.RemoteDeleted, testCase.expectedDeleted)
			require.Len(testInstance, report.AlreadyAbsent, testCase.expectedAbsent)
			require.Len(testInstance, report.Failures, testCase.expectedFailures)
		})
	}
}

func TestBranchesOnOtherRemotesAreSkipped(testInstance *testing.T) {
	fake := checkouttest.New(testCheckoutAPathConstant).
		WithRemoteBranch(testUpstreamRemoteConstant, testDevelopBranchConstant, "u1").
		WithRemoteBranch(testUpstreamRemoteConstant, testFeatureBranchConstant, "u2").
		WithAncestry("u1", "u2")

	report := runCleanup(testInstance, zap.NewNop(), newCachingModel(), defaultOptions(true, fake))

	require.Nil(testInstance, report.PlannedRemote)
	require.True(testInstance, fake.HasRemoteBranch(testUpstreamRemoteConstant, testFeatureBranchConstant))
}

func TestUnreadableCheckoutIsRecordedAsFailure(testInstance *testing.T) {
	broken := checkouttest.New(testCheckoutAPathConstant).WithReadError(errors.New("corrupt index"))
	healthy := checkouttest.New(testCheckoutBPathConstant).
		WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "d1").
		WithRemoteBranch(testOriginRemoteConstant, testFeatureBranchConstant, "f1").
		WithAncestry("d1", "f1")
	options := defaultOptions(true, broken, healthy)
	options.CleanupLocal = false

	report := runCleanup(testInstance, zap.NewNop(), newCachingModel(), options)

	require.Len(testInstance, report.Failures, 1)
	require.Contains(testInstance, report.Failures[0], testCheckoutAPathConstant)
	require.Len(testInstance, report.RemoteDeleted, 1)
}

func TestDisabledPhasesOnlyWarn(testInstance *testing.T) {
	fake := checkouttest.New(testCheckoutAPathConstant).WithRemoteBranch(testOriginRemoteConstant, testFeatureBranchConstant, "f1")
	options := defaultOptions(true, fake)
	options.CleanupRemote = false
	options.CleanupLocal = false
	model := newCachingModel()

	report := runCleanup(testInstance, zap.NewNop(), model, options)

	require.Len(testInstance, report.Warnings, 1)
	require.Empty(testInstance, fake.Mutations())
	require.Zero(testInstance, model.invalidations)
}

func TestModelIsInvalidatedBetweenPhases(testInstance *testing.T) {
	fake := checkouttest.New(testCheckoutAPathConstant).WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "d1")
	model := newCachingModel()

	runCleanup(testInstance, zap.NewNop(), model, defaultOptions(false, fake))

	require.Equal(testInstance, 1, model.invalidations)
}

func TestEveryLogEntryCarriesRunIdentifier(testInstance *testing.T) {
	fake := checkouttest.New(testCheckoutAPathConstant).
		WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "d1").
		WithRemoteBranch(testOriginRemoteConstant, testFeatureBranchConstant, "f1").
		WithAncestry("d1", "f1")
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)

	report := runCleanup(testInstance, zap.New(observedCore), newCachingModel(), defaultOptions(false, fake))

	require.NotEmpty(testInstance, report.RunID)
	require.NotZero(testInstance, observedLogs.Len())
	for _, entry := range observedLogs.All() {
		require.Equal(testInstance, report.RunID, entry.ContextMap()["run_id"], entry.Message)
	}
}

func TestRunLogsSafeAndProtectedBranchesAtStart(testInstance *testing.T) {
	fake := checkouttest.New(testCheckoutAPathConstant).
		WithRemoteBranch(testOriginRemoteConstant, testDevelopBranchConstant, "d1")
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)

	options := defaultOptions(false, fake)
	options.ProtectedBranches = []string{"keep-me"}
	runCleanup(testInstance, zap.New(observedCore), newCachingModel(), options)

	startEntries := observedLogs.FilterMessage("Starting branch cleanup").All()
	require.Len(testInstance, startEntries, 1)
	fields := startEntries[0].ContextMap()
	require.Equal(testInstance, []any{testDevelopBranchConstant, testReleaseCurrentConstant}, fields["safe_branches"])
	require.Equal(testInstance, []any{"develop", "keep-me", "master", "release/current", "stable"}, fields["protected_branches"])
}
