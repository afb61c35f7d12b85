package workspace

import (
	"fmt"
	"strings"
)

const unknownScopeErrorTemplateConstant = "unknown scope %q (expected one of %s)"

// Scope selects the checkouts an operation applies to.
type Scope int

// Supported scopes.
const (
	ScopeJustThis Scope = iota
	ScopeFamily
	ScopeFamilyOrChildFamily
	ScopeSameGroupID
	ScopeAllProjectFamilies
	ScopeAll
)

var scopeNames = []string{
	ScopeJustThis:            "just-this",
	ScopeFamily:              "family",
	ScopeFamilyOrChildFamily: "family-or-child-family",
	ScopeSameGroupID:         "same-group-id",
	ScopeAllProjectFamilies:  "all-project-families",
	ScopeAll:                 "all",
}

// ScopeNames lists the textual scope names in declaration order.
func ScopeNames() []string {
	return append([]string{}, scopeNames...)
}

// ParseScope converts a textual scope name.
func ParseScope(value string) (Scope, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for index, name := range scopeNames {
		if name == normalized {
			return Scope(index), nil
		}
	}
	return ScopeJustThis, fmt.Errorf(unknownScopeErrorTemplateConstant, value, strings.Join(scopeNames, ", "))
}

// String returns the textual scope name.
func (scope Scope) String() string {
	if scope < 0 || int(scope) >= len(scopeNames) {
		return fmt.Sprintf("scope(%d)", int(scope))
	}
	return scopeNames[scope]
}
