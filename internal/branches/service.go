package branches

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/canopy/internal/checkout"
)

const (
	loggerNotConfiguredMessageConstant = "branch cleanup logger not configured"
	modelNotConfiguredMessageConstant  = "branch cleanup workspace model not configured"
	defaultParallelismConstant         = 4
	nothingEnabledMessageConstant      = "Both remote and local cleanup are disabled. Nothing will be done."
	pretendModeMessageConstant         = "Deletion not acknowledged; running in pretend mode. No branches will actually be deleted."
	nothingToDoMessageConstant         = "Nothing to do."
	cleanupStartedMessageConstant      = "Starting branch cleanup"
	cleanupFinishedMessageConstant     = "Branch cleanup finished"
	logFieldRunIDConstant              = "run_id"
	logFieldCheckoutConstant           = "checkout"
	logFieldBranchConstant             = "branch"
	logFieldRemoteConstant             = "remote"
	logFieldHeadConstant               = "head"
	logFieldSafeBranchesConstant       = "safe_branches"
	logFieldProtectedBranchesConstant  = "protected_branches"
	logFieldRemoteDeletedConstant      = "remote_deleted"
	logFieldLocalDeletedConstant       = "local_deleted"
	logFieldFailuresConstant           = "failures"
	unitFailureTemplateConstant        = "%s: %v"
)

// ErrLoggerNotConfigured indicates the service was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrModelNotConfigured indicates the service was constructed without a workspace model.
var ErrModelNotConfigured = errors.New(modelNotConfiguredMessageConstant)

// WorkspaceModel exposes the cached branch state the engine reads and the invalidation it drives.
type WorkspaceModel interface {
	Branches(executionContext context.Context, target checkout.Checkout) (checkout.Branches, error)
	InvalidateBranches(target checkout.Checkout)
	Invalidate()
}

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	Logger *zap.Logger
	Model  WorkspaceModel
}

// Options configure one cleanup run.
type Options struct {
	SafeBranches      []string
	ProtectedBranches []string
	ProtectedPatterns []string
	Acknowledge       bool
	CleanupRemote     bool
	CleanupLocal      bool
	Parallelism       int
	Checkouts         []checkout.Checkout
}

// Validate reports a ConfigurationError for an empty safe set, a malformed safe branch name or an invalid pattern.
func (options Options) Validate() error {
	_, _, validationError := options.compile()
	return validationError
}

func (options Options) compile() (SafeBranches, ProtectionPolicy, error) {
	safe, safeError := NewSafeBranches(options.SafeBranches)
	if safeError != nil {
		return nil, ProtectionPolicy{}, safeError
	}
	policy, policyError := NewProtectionPolicy(options.ProtectedBranches, options.ProtectedPatterns)
	if policyError != nil {
		return nil, ProtectionPolicy{}, policyError
	}
	return safe, policy, nil
}

// Service deletes branches already merged into safe branches across a set of checkouts.
type Service struct {
	logger *zap.Logger
	model  WorkspaceModel
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Model == nil {
		return nil, ErrModelNotConfigured
	}
	return &Service{logger: dependencies.Logger, model: dependencies.Model}, nil
}

// cleanupRun carries the validated configuration and the accumulating report of one Run invocation.
type cleanupRun struct {
	logger       *zap.Logger
	model        WorkspaceModel
	safe         SafeBranches
	policy       ProtectionPolicy
	acknowledged bool
	parallelism  int
	checkouts    []checkout.Checkout
	collector    *reportCollector
}

// Run validates the options, then deletes merged remote branches followed by orphaned local branches.
// Only configuration problems are returned as errors; per-branch failures are recorded in the report.
func (service *Service) Run(executionContext context.Context, options Options) (Report, error) {
	safe, policy, validationError := options.compile()
	if validationError != nil {
		return Report{}, validationError
	}

	runID := uuid.NewString()
	run := &cleanupRun{
		logger:       service.logger.With(zap.String(logFieldRunIDConstant, runID)),
		model:        service.model,
		safe:         safe,
		policy:       policy,
		acknowledged: options.Acknowledge,
		parallelism:  options.Parallelism,
		checkouts:    append([]checkout.Checkout{}, options.Checkouts...),
		collector:    &reportCollector{report: Report{RunID: runID, Acknowledged: options.Acknowledge}},
	}
	if run.parallelism <= 0 {
		run.parallelism = defaultParallelismConstant
	}

	if !options.CleanupRemote && !options.CleanupLocal {
		run.logger.Warn(nothingEnabledMessageConstant)
		run.collector.warn(nothingEnabledMessageConstant)
		return run.collector.snapshot(), nil
	}
	if !run.acknowledged {
		run.logger.Warn(pretendModeMessageConstant)
	}
	run.logger.Debug(
		cleanupStartedMessageConstant,
		zap.Strings(logFieldSafeBranchesConstant, safe.Names()),
		zap.Strings(logFieldProtectedBranchesConstant, policy.ProtectedNames()),
	)

	remoteScheduled := 0
	if options.CleanupRemote {
		remoteScheduled = run.cleanupRemoteBranches(executionContext)
	}

	localScheduled := 0
	if options.CleanupLocal {
		run.model.Invalidate()
		localScheduled = run.cleanupLocalBranches(executionContext)
	}

	if remoteScheduled == 0 && localScheduled == 0 {
		run.logger.Info(nothingToDoMessageConstant)
	} else {
		run.model.Invalidate()
	}

	report := run.collector.snapshot()
	run.logger.Info(cleanupFinishedMessageConstant,
		zap.Int(logFieldRemoteDeletedConstant, len(report.RemoteDeleted)),
		zap.Int(logFieldLocalDeletedConstant, len(report.LocalDeleted)),
		zap.Int(logFieldFailuresConstant, len(report.Failures)),
	)
	return report, nil
}

func candidateFields(candidate CheckoutAndHead) []zap.Field {
	return []zap.Field{
		zap.String(logFieldCheckoutConstant, candidate.Checkout.Path()),
		zap.String(logFieldRemoteConstant, candidate.Branch.Remote),
		zap.String(logFieldBranchConstant, candidate.Branch.Name),
		zap.String(logFieldHeadConstant, candidate.Head),
	}
}

func unitFailure(candidate CheckoutAndHead, failure error) string {
	return fmt.Sprintf(unitFailureTemplateConstant, candidate.String(), failure)
}
