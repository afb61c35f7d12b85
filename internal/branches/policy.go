package branches

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	releaseBranchPrefixConstant               = "release"
	emptySafeBranchesMessageConstant          = "refusing to run without safe branches: every remote branch would be a deletion candidate"
	invalidPatternMessageTemplateConstant     = "invalid protected branch pattern %q: %v"
	malformedBranchMessageTemplateConstant    = "illegal branch name format: %q"
	configurationErrorMessageTemplateConstant = "invalid branch cleanup configuration: %s"
	forbiddenBranchSequencesConstant          = " \t~^:?*[\\"
	branchLockSuffixConstant                  = ".lock"
	branchReflogSequenceConstant              = "@{"
	branchParentSequenceConstant              = ".."
	branchSeparatorConstant                   = "/"
	branchOptionPrefixConstant                = "-"
)

var alwaysProtectedBranchNames = []string{"master", "develop", "stable", "release/current"}

// ConfigurationError reports an unusable cleanup configuration. It is returned before any repository is touched.
type ConfigurationError struct {
	Reason string
}

// Error describes the configuration problem.
func (configurationError ConfigurationError) Error() string {
	return fmt.Sprintf(configurationErrorMessageTemplateConstant, configurationError.Reason)
}

// ProtectionPolicy decides which branch names may never be deleted.
type ProtectionPolicy struct {
	names    map[string]struct{}
	patterns []*regexp.Regexp
}

// NewProtectionPolicy unions the always-protected names with the provided names and regular expressions.
func NewProtectionPolicy(protectedNames []string, protectedPatterns []string) (ProtectionPolicy, error) {
	policy := ProtectionPolicy{names: make(map[string]struct{})}
	for _, name := range alwaysProtectedBranchNames {
		policy.names[name] = struct{}{}
	}
	for _, name := range protectedNames {
		if trimmed := strings.TrimSpace(name); len(trimmed) > 0 {
			policy.names[trimmed] = struct{}{}
		}
	}
	for _, pattern := range protectedPatterns {
		if len(strings.TrimSpace(pattern)) == 0 {
			continue
		}
		compiled, compileError := regexp.Compile(pattern)
		if compileError != nil {
			return ProtectionPolicy{}, ConfigurationError{Reason: fmt.Sprintf(invalidPatternMessageTemplateConstant, pattern, compileError)}
		}
		policy.patterns = append(policy.patterns, compiled)
	}
	return policy, nil
}

// IsProtected reports whether the branch name is release-prefixed, listed, or matched by a pattern anywhere in the name.
func (policy ProtectionPolicy) IsProtected(branchName string) bool {
	if strings.HasPrefix(branchName, releaseBranchPrefixConstant) {
		return true
	}
	if _, listed := policy.names[branchName]; listed {
		return true
	}
	for _, pattern := range policy.patterns {
		if pattern.MatchString(branchName) {
			return true
		}
	}
	return false
}

// ProtectedNames returns the sorted explicitly protected names.
func (policy ProtectionPolicy) ProtectedNames() []string {
	names := make([]string, 0, len(policy.names))
	for name := range policy.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SafeBranches is the set of branch names feature work is merged into.
type SafeBranches map[string]struct{}

// NewSafeBranches validates and deduplicates the provided names. An empty result is a ConfigurationError.
func NewSafeBranches(names []string) (SafeBranches, error) {
	safe := make(SafeBranches)
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if len(trimmed) == 0 {
			continue
		}
		if validationError := ValidateBranchName(trimmed); validationError != nil {
			return nil, validationError
		}
		safe[trimmed] = struct{}{}
	}
	if len(safe) == 0 {
		return nil, ConfigurationError{Reason: emptySafeBranchesMessageConstant}
	}
	return safe, nil
}

// Contains reports whether the name is a safe branch.
func (safe SafeBranches) Contains(branchName string) bool {
	_, found := safe[branchName]
	return found
}

// Names returns the sorted safe branch names.
func (safe SafeBranches) Names() []string {
	names := make([]string, 0, len(safe))
	for name := range safe {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateBranchName rejects names git would refuse as a branch.
func ValidateBranchName(branchName string) error {
	malformed := ConfigurationError{Reason: fmt.Sprintf(malformedBranchMessageTemplateConstant, branchName)}
	switch {
	case len(strings.TrimSpace(branchName)) == 0,
		strings.ContainsAny(branchName, forbiddenBranchSequencesConstant),
		strings.Contains(branchName, branchParentSequenceConstant),
		strings.Contains(branchName, branchReflogSequenceConstant),
		strings.HasPrefix(branchName, branchOptionPrefixConstant),
		strings.HasPrefix(branchName, branchSeparatorConstant),
		strings.HasSuffix(branchName, branchSeparatorConstant),
		strings.HasSuffix(branchName, branchLockSuffixConstant),
		strings.HasSuffix(branchName, "."):
		return malformed
	}
	for _, character := range branchName {
		if character < 0x20 || character == 0x7f {
			return malformed
		}
	}
	return nil
}
