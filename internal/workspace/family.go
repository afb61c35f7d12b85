package workspace

import "strings"

const groupIDSegmentSeparatorConstant = "."

// Family groups modules by the last segment of their groupId.
type Family string

// FamilyOf derives the family of a groupId.
func FamilyOf(groupID string) Family {
	trimmed := strings.TrimSpace(groupID)
	separatorIndex := strings.LastIndex(trimmed, groupIDSegmentSeparatorConstant)
	if separatorIndex < 0 {
		return Family(trimmed)
	}
	return Family(trimmed[separatorIndex+1:])
}

// ParentFamilyOf derives the family one level above the family of a groupId.
func ParentFamilyOf(groupID string) (Family, bool) {
	segments := strings.Split(strings.TrimSpace(groupID), groupIDSegmentSeparatorConstant)
	if len(segments) < 2 {
		return "", false
	}
	return Family(segments[len(segments)-2]), true
}

// IsParentFamilyOf reports whether the groupId belongs to a child family of this family.
func (family Family) IsParentFamilyOf(groupID string) bool {
	parent, found := ParentFamilyOf(groupID)
	return found && parent == family
}

// Contains reports whether the groupId belongs to this family.
func (family Family) Contains(groupID string) bool {
	return FamilyOf(groupID) == family
}

// String returns the family name.
func (family Family) String() string {
	return string(family)
}
