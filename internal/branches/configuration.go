package branches

import (
	"strings"

	"github.com/temirov/canopy/internal/workspace"
)

const (
	configurationSafeBranchesKeyConstant      = "safe_branches"
	configurationProtectedBranchesKeyConstant = "protected_branches"
	configurationProtectedPatternsKeyConstant = "protected_patterns"
	configurationAcknowledgeKeyConstant       = "acknowledge"
	configurationCleanupRemoteKeyConstant     = "cleanup_remote"
	configurationCleanupLocalKeyConstant      = "cleanup_local"
	configurationScopeKeyConstant             = "scope"
	configurationFamilyKeyConstant            = "family"
	configurationGroupIDKeyConstant           = "group_id"
	configurationIncludeRootKeyConstant       = "include_root"
	configurationParallelismKeyConstant       = "parallelism"
	configurationOutputKeyConstant            = "output"
	configurationKeySeparatorConstant         = "."
)

var defaultSafeBranchNames = []string{"develop", "release/current"}

// CommandConfiguration captures configuration values for the branch cleanup command.
type CommandConfiguration struct {
	SafeBranches      []string `mapstructure:"safe_branches"`
	ProtectedBranches []string `mapstructure:"protected_branches"`
	ProtectedPatterns []string `mapstructure:"protected_patterns"`
	Acknowledge       bool     `mapstructure:"acknowledge"`
	CleanupRemote     bool     `mapstructure:"cleanup_remote"`
	CleanupLocal      bool     `mapstructure:"cleanup_local"`
	Scope             string   `mapstructure:"scope"`
	Family            string   `mapstructure:"family"`
	GroupID           string   `mapstructure:"group_id"`
	IncludeRoot       bool     `mapstructure:"include_root"`
	Parallelism       int      `mapstructure:"parallelism"`
	Output            string   `mapstructure:"output"`
}

// DefaultCommandConfiguration provides baseline configuration values for branch cleanup.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		SafeBranches:  append([]string{}, defaultSafeBranchNames...),
		CleanupRemote: true,
		CleanupLocal:  true,
		Scope:         workspace.ScopeAll.String(),
		IncludeRoot:   true,
		Parallelism:   defaultParallelismConstant,
		Output:        OutputFormatText,
	}
}

// DefaultConfigurationValues flattens the defaults under the provided configuration key prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	key := func(name string) string {
		if len(prefix) == 0 {
			return name
		}
		return prefix + configurationKeySeparatorConstant + name
	}
	return map[string]any{
		key(configurationSafeBranchesKeyConstant):      defaults.SafeBranches,
		key(configurationProtectedBranchesKeyConstant): []string{},
		key(configurationProtectedPatternsKeyConstant): []string{},
		key(configurationAcknowledgeKeyConstant):       defaults.Acknowledge,
		key(configurationCleanupRemoteKeyConstant):     defaults.CleanupRemote,
		key(configurationCleanupLocalKeyConstant):      defaults.CleanupLocal,
		key(configurationScopeKeyConstant):             defaults.Scope,
		key(configurationFamilyKeyConstant):            defaults.Family,
		key(configurationGroupIDKeyConstant):           defaults.GroupID,
		key(configurationIncludeRootKeyConstant):       defaults.IncludeRoot,
		key(configurationParallelismKeyConstant):       defaults.Parallelism,
		key(configurationOutputKeyConstant):            defaults.Output,
	}
}

// Sanitize trims configuration values without applying implicit defaults.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration

	sanitized.SafeBranches = sanitizeValues(configuration.SafeBranches)
	sanitized.ProtectedBranches = sanitizeValues(configuration.ProtectedBranches)
	sanitized.ProtectedPatterns = sanitizeValues(configuration.ProtectedPatterns)
	sanitized.Scope = strings.TrimSpace(configuration.Scope)
	sanitized.Family = strings.TrimSpace(configuration.Family)
	sanitized.GroupID = strings.TrimSpace(configuration.GroupID)
	sanitized.Output = strings.ToLower(strings.TrimSpace(configuration.Output))

	return sanitized
}

func sanitizeValues(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for _, candidate := range raw {
		trimmed := strings.TrimSpace(candidate)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
