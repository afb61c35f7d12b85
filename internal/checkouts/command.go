package checkouts

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
	outputFormatLabelConstant          = "output format"
	commandUseConstant                 = "checkouts [path]"
	commandShortDescriptionConstant    = "List the checkouts a scope selects"
	commandLongDescriptionConstant     = "checkouts lists, deepest first, the git working trees a scope selects relative to the calling path."
	renderErrorTemplateConstant        = "unable to render checkout listing: %w"
	flagScopeNameConstant              = "scope"
	flagScopeDescriptionConstant       = "Checkouts to list relative to the calling path"
	flagFamilyNameConstant             = "family"
	flagFamilyDescriptionConstant      = "Family used by the family scopes (derived from the calling path when empty)"
	flagGroupIDNameConstant            = "group-id"
	flagGroupIDDescriptionConstant     = "GroupId used by the same-group-id scope (derived from the calling path when empty)"
	flagIncludeRootNameConstant        = "include-root"
	flagIncludeRootDescriptionConstant = "Include the root checkout when any other checkout matches"
	flagDetailsNameConstant            = "details"
	flagDetailsDescriptionConstant     = "Show the branch, detached head and dirty state of each checkout"
	flagOutputNameConstant             = "output"
	flagOutputDescriptionConstant      = "Listing format"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the checkouts command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	GitExecutor           checkout.GitExecutor
	Scanner               workspace.Scanner
	WorkingDirectory      string
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the checkouts command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(flagScopeNameConstant, defaults.Scope, flags.FormatChoiceUsage(defaults.Scope, workspace.ScopeNames(), flagScopeDescriptionConstant))
	command.Flags().String(flagFamilyNameConstant, "", flagFamilyDescriptionConstant)
	command.Flags().String(flagGroupIDNameConstant, "", flagGroupIDDescriptionConstant)
	command.Flags().Bool(flagIncludeRootNameConstant, defaults.IncludeRoot, flagIncludeRootDescriptionConstant)
	command.Flags().Bool(flagDetailsNameConstant, defaults.Details, flagDetailsDescriptionConstant)
	command.Flags().String(flagOutputNameConstant, defaults.Output, flags.FormatChoiceUsage(defaults.Output, OutputFormats(), flagOutputDescriptionConstant))

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	commandFlags := command.Flags()
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
	if commandFlags.Changed(flagDetailsNameConstant) {
		configuration.Details, _ = commandFlags.GetBool(flagDetailsNameConstant)
	}
	if commandFlags.Changed(flagOutputNameConstant) {
		configuration.Output, _ = commandFlags.GetString(flagOutputNameConstant)
	}
	configuration = configuration.Sanitize()

	scope, scopeError := workspace.ParseScope(configuration.Scope)
	if scopeError != nil {
		return scopeError
	}
	if formatError := flags.ValidateChoice(outputFormatLabelConstant, configuration.Output, OutputFormats()); formatError != nil {
		return formatError
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

	selected, selectionError := model.Select(command.Context(), path, workspace.Selection{
		Scope:       scope,
		Family:      configuration.Family,
		GroupID:     configuration.GroupID,
		IncludeRoot: configuration.IncludeRoot,
	})
	if selectionError != nil {
		return selectionError
	}

	entries, describeError := Describe(command.Context(), model, selected, configuration.Details)
	if describeError != nil {
		return describeError
	}
	if renderError := Render(command.OutOrStdout(), configuration.Output, entries); renderError != nil {
		return fmt.Errorf(renderErrorTemplateConstant, renderError)
	}
	return nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
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
