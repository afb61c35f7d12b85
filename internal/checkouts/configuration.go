package checkouts

import (
	"strings"

	"github.com/temirov/canopy/internal/workspace"
)

const (
	configurationScopeKeyConstant       = "scope"
	configurationFamilyKeyConstant      = "family"
	configurationGroupIDKeyConstant     = "group_id"
	configurationIncludeRootKeyConstant = "include_root"
	configurationDetailsKeyConstant     = "details"
	configurationOutputKeyConstant      = "output"
	configurationKeySeparatorConstant   = "."
)

// CommandConfiguration captures configuration values for the checkouts command.
type CommandConfiguration struct {
	Scope       string `mapstructure:"scope"`
	Family      string `mapstructure:"family"`
	GroupID     string `mapstructure:"group_id"`
	IncludeRoot bool   `mapstructure:"include_root"`
	Details     bool   `mapstructure:"details"`
	Output      string `mapstructure:"output"`
}

// DefaultCommandConfiguration provides baseline configuration values for the checkouts command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Scope:       workspace.ScopeAll.String(),
		IncludeRoot: true,
		Output:      OutputFormatText,
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
		key(configurationScopeKeyConstant):       defaults.Scope,
		key(configurationFamilyKeyConstant):      defaults.Family,
		key(configurationGroupIDKeyConstant):     defaults.GroupID,
		key(configurationIncludeRootKeyConstant): defaults.IncludeRoot,
		key(configurationDetailsKeyConstant):     defaults.Details,
		key(configurationOutputKeyConstant):      defaults.Output,
	}
}

// Sanitize trims configuration values without applying implicit defaults.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Scope = strings.TrimSpace(configuration.Scope)
	sanitized.Family = strings.TrimSpace(configuration.Family)
	sanitized.GroupID = strings.TrimSpace(configuration.GroupID)
	sanitized.Output = strings.ToLower(strings.TrimSpace(configuration.Output))
	return sanitized
}
