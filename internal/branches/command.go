package branches

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/canopy/internal/checkout"
	"github.com/temirov/canopy/internal/dependencies"
	"github.com/temirov/canopy/internal/utils/flags"
	"github.com/temirov/canopy/internal/workspace"
)

const (
	outputFormatLabelConstant             = "output format"
	commandUseConstant                    = "branch-cleanup [path]"
	commandShortDescriptionConstant       = "Delete branches already merged into safe branches across the workspace"
	commandLongDescriptionConstant        = "branch-cleanup deletes remote branches whose head is contained in a safe branch in every checkout sharing the branch name, then deletes local-only branches merged into a safe remote branch. Nothing is deleted unless --i-understand-the-risks is given."
	commandExecutionErrorTemplateConstant = "branch cleanup failed: %w"
	reportRenderErrorTemplateConstant     = "unable to render branch cleanup report: %w"
	flagSafeBranchesNameConstant          = "safe-branches"
	flagSafeBranchesDescriptionConstant   = "Branches feature work is merged into; deletion requires a safe branch containing the branch head"
	flagProtectedNameConstant             = "protected-branches"
	flagProtectedDescriptionConstant      = "Additional branch names that are never deleted"
	flagPatternNameConstant               = "protected-pattern"
	flagPatternDescriptionConstant        = "Regular expression matching branch names that are never deleted (repeatable)"
	flagAcknowledgeNameConstant           = "i-understand-the-risks"
	flagAcknowledgeDescriptionConstant    = "Actually delete branches instead of reporting what would be deleted"
	flagCleanupRemoteNameConstant         = "cleanup-remote"
	flagCleanupRemoteDescriptionConstant  = "Delete merged remote branches"
	flagCleanupLocalNameConstant          = "cleanup-local"
	flagCleanupLocalDescriptionConstant   = "Delete merged local-only branches"
	flagScopeNameConstant                 = "scope"
	flagScopeDescriptionConstant          = "Checkouts to clean relative to the calling path"
	flagFamilyNameConstant                = "family"
	flagFamilyDescriptionConstant         = "Family used by the family scopes (derived from the calling path when empty)"
	flagGroupIDNameConstant               = "group-id"
	flagGroupIDDescriptionConstant        = "GroupId used by the same-group-id scope (derived from the calling path when empty)"
	flagIncludeRootNameConstant           = "include-root"
	flagIncludeRootDescriptionConstant    = "Include the root checkout when any other checkout matches"
	flagParallelismNameConstant           = "parallelism"
	flagParallelismDescriptionConstant    = "Maximum number of concurrent deletions"
	flagOutputNameConstant                = "output"
	flagOutputDescriptionConstant         = "Report format"
	logFieldPathConstant                  = "path"
	logFieldCheckoutCountConstant         = "checkouts"
	selectedCheckoutsMessageConstant      = "Selected checkouts for branch cleanup"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the Cobra command for branch cleanup.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	GitExecutor           checkout.GitExecutor
	Scanner               workspace.Scanner
	WorkingDirectory      string
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the branch-cleanup command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().StringSlice(flagSafeBranchesNameConstant, defaults.SafeBranches, flagSafeBranchesDescriptionConstant)
	command.Flags().StringSlice(flagProtectedNameConstant, nil, flagProtectedDescriptionConstant)
	command.Flags().StringArray(flagPatternNameConstant, nil, flagPatternDescriptionConstant)
	command.Flags().Bool(flagAcknowledgeNameConstant, false, flagAcknowledgeDescriptionConstant)
	command.Flags().Bool(flagCleanupRemoteNameConstant, defaults.CleanupRemote, flagCleanupRemoteDescriptionConstant)
	command.Flags().Bool(flagCleanupLocalNameConstant, defaults.CleanupLocal, flagCleanupLocalDescriptionConstant)
	command.Flags().String(flagScopeNameConstant, defaults.Scope, flags.FormatChoiceUsage(defaults.Scope, workspace.ScopeNames(), flagScopeDescriptionConstant))
	command.Flags().String(flagFamilyNameConstant, "", flagFamilyDescriptionConstant)
	command.Flags().String(flagGroupIDNameConstant, "", flagGroupIDDescriptionConstant)
	command.Flags().Bool(flagIncludeRootNameConstant, defaults.IncludeRoot, flagIncludeRootDescriptionConstant)
	command.Flags().Int(flagParallelismNameConstant, defaults.Parallelism, flagParallelismDescriptionConstant)
	command.Flags().String(flagOutputNameConstant, defaults.Output, flags.FormatChoiceUsage(defaults.Output, OutputFormats(), flagOutputDescriptionConstant))

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.applyFlagOverrides(command, builder.resolveConfiguration())

	scope, scopeError := workspace.ParseScope(configuration.Scope)
	if scopeError != nil {
		return scopeError
	}
	if formatError := flags.ValidateChoice(outputFormatLabelConstant, configuration.Output, OutputFormats()); formatError != nil {
		return formatError
	}
	options := Options{
		SafeBranches:      configuration.SafeBranches,
		ProtectedBranches: configuration.ProtectedBranches,
		ProtectedPatterns: configuration.ProtectedPatterns,
		Acknowledge:       configuration.Acknowledge,
		CleanupRemote:     configuration.CleanupRemote,
		CleanupLocal:      configuration.CleanupLocal,
		Parallelism:       configuration.Parallelism,
	}
	if validationError := options.Validate(); validationError != nil {
		return validationError
	}

	logger := builder.resolveLogger()
	path, pathError := dependencies.ResolveWorkingPath(arguments, builder.WorkingDirectory)
	if pathError != nil {
		return pathError
	}
	model, modelError := dependencies.OpenWorkspace(logger, builder.Scanner, builder.GitExecutor, path)
	if modelError != nil {
		return modelError
	}

	selection := workspace.Selection{
		Scope:       scope,
		Family:      configuration.Family,
		GroupID:     configuration.GroupID,
		IncludeRoot: configuration.IncludeRoot,
	}
	checkouts, selectionError := model.Select(command.Context(), path, selection)
	if selectionError != nil {
		return selectionError
	}
	logger.Debug(selectedCheckoutsMessageConstant, zap.String(logFieldPathConstant, path), zap.Int(logFieldCheckoutCountConstant, len(checkouts)))
	options.Checkouts = checkouts

	service, serviceError := NewService(ServiceDependencies{Logger: logger, Model: model})
	if serviceError != nil {
		return serviceError
	}
	report, runError := service.Run(command.Context(), options)
	if runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}

	if renderError := report.Render(command.OutOrStdout(), configuration.Output); renderError != nil {
		return fmt.Errorf(reportRenderErrorTemplateConstant, renderError)
	}
	return nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) applyFlagOverrides(command *cobra.Command, configuration CommandConfiguration) CommandConfiguration {
	commandFlags := command.Flags()
	if commandFlags.Changed(flagSafeBranchesNameConstant) {
		configuration.SafeBranches, _ = commandFlags.GetStringSlice(flagSafeBranchesNameConstant)
	}
	if commandFlags.Changed(flagProtectedNameConstant) {
		configuration.ProtectedBranches, _ = commandFlags.GetStringSlice(flagProtectedNameConstant)
	}
	if commandFlags.Changed(flagPatternNameConstant) {
		configuration.ProtectedPatterns, _ = commandFlags.GetStringArray(flagPatternNameConstant)
	}
	if commandFlags.Changed(flagAcknowledgeNameConstant) {
		configuration.Acknowledge, _ = commandFlags.GetBool(flagAcknowledgeNameConstant)
	}
	if commandFlags.Changed(flagCleanupRemoteNameConstant) {
		configuration.CleanupRemote, _ = commandFlags.GetBool(flagCleanupRemoteNameConstant)
	}
	if commandFlags.Changed(flagCleanupLocalNameConstant) {
		configuration.CleanupLocal, _ = commandFlags.GetBool(flagCleanupLocalNameConstant)
	}
	if commandFlags.Changed(flagScopeNameConstant) {
		configuration.Scope, _ = commandFlags.GetString(flagScopeNameConstant)
	}
	if commandFlags.Changed(flagFamilyNameConstant) {
		configuration.Family, _ = commandFlags.GetString(flagFamilyNameConstant)
	}
	if commandFlags.Changed(flagGroupIDNameConstant) {
		configuration.GroupID, _ = commandFlags.GetString(flagGroupIDNameConstant)
	}
	if commandFlags.Changed(flagIncludeRootNameConstant) {
		configuration.IncludeRoot, _ = commandFlags.GetBool(flagIncludeRootNameConstant)
	}
	if commandFlags.Changed(flagParallelismNameConstant) {
		configuration.Parallelism, _ = commandFlags.GetInt(flagParallelismNameConstant)
	}
	if commandFlags.Changed(flagOutputNameConstant) {
		configuration.Output, _ = commandFlags.GetString(flagOutputNameConstant)
	}
	return configuration.Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}
