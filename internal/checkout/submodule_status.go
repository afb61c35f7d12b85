package checkout

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	submoduleStatusParseErrorTemplateConstant = "unrecognized submodule status line %q"
	submoduleModifiedMarkerConstant           = "+"
	submoduleUninitializedMarkerConstant      = "-"
	submoduleConflictMarkerConstant           = "U"
)

var submoduleStatusPattern = regexp.MustCompile(`^([ +\-U])([a-f0-9]+)\s+(\S+)(?:\s+\((\S+)\))?\s*$`)

// SubmoduleStatus is one line of `git submodule status`.
type SubmoduleStatus struct {
	Path          string
	Commit        string
	Description   string
	Modified      bool
	Uninitialized bool
	Conflicted    bool
}

// ParseSubmoduleStatus parses `git submodule status` output, resolving paths against root.
func ParseSubmoduleStatus(root string, output string) ([]SubmoduleStatus, error) {
	var statuses []SubmoduleStatus
	for _, line := range strings.Split(output, lineSeparatorConstant) {
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		matches := submoduleStatusPattern.FindStringSubmatch(line)
		if matches == nil {
			return nil, fmt.Errorf(submoduleStatusParseErrorTemplateConstant, line)
		}
		statuses = append(statuses, SubmoduleStatus{
			Path:          filepath.Join(root, filepath.FromSlash(matches[3])),
			Commit:        matches[2],
			Description:   matches[4],
			Modified:      matches[1] == submoduleModifiedMarkerConstant,
			Uninitialized: matches[1] == submoduleUninitializedMarkerConstant,
			Conflicted:    matches[1] == submoduleConflictMarkerConstant,
		})
	}
	return statuses, nil
}
