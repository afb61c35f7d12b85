package checkout

import (
	"sort"
	"strings"
)

const (
	trackingNameSeparatorConstant  = "/"
	localReferencePrefixConstant   = "refs/heads/"
	remoteReferencePrefixConstant  = "refs/remotes/"
	remoteSymbolicHeadNameConstant = "HEAD"
	lineSeparatorConstant          = "\n"
	lsRemoteFieldCountConstant     = 2
)

// Branch identifies a local branch or a remote-tracking branch.
type Branch struct {
	Name   string
	Remote string
}

// LocalBranch constructs a local branch record.
func LocalBranch(name string) Branch {
	return Branch{Name: name}
}

// RemoteBranch constructs a remote-tracking branch record.
func RemoteBranch(remote string, name string) Branch {
	return Branch{Name: name, Remote: remote}
}

// IsLocal reports whether the branch has no remote.
func (branch Branch) IsLocal() bool {
	return len(branch.Remote) == 0
}

// TrackingName returns remote/name for remote branches and the bare name otherwise.
func (branch Branch) TrackingName() string {
	if branch.IsLocal() {
		return branch.Name
	}
	return branch.Remote + trackingNameSeparatorConstant + branch.Name
}

// ReferenceName returns the fully qualified git reference of the branch.
func (branch Branch) ReferenceName() string {
	if branch.IsLocal() {
		return localReferencePrefixConstant + branch.Name
	}
	return remoteReferencePrefixConstant + branch.TrackingName()
}

// IsSameName reports whether both branches carry the same bare name.
func (branch Branch) IsSameName(other Branch) bool {
	return branch.Name == other.Name
}

// Compare orders branches by name, then local before remote, then by remote name.
func (branch Branch) Compare(other Branch) int {
	if nameComparison := strings.Compare(branch.Name, other.Name); nameComparison != 0 {
		return nameComparison
	}
	return strings.Compare(branch.Remote, other.Remote)
}

// String returns the tracking name.
func (branch Branch) String() string {
	return branch.TrackingName()
}

// ParseRemoteTrackingName splits remote/name using the longest matching configured remote.
// When no configured remote matches, the first path segment is taken as the remote.
func ParseRemoteTrackingName(trackingName string, remoteNames []string) (Branch, bool) {
	trimmed := strings.TrimSpace(trackingName)
	matchedRemote := ""
	for _, remoteName := range remoteNames {
		if strings.HasPrefix(trimmed, remoteName+trackingNameSeparatorConstant) && len(remoteName) > len(matchedRemote) {
			matchedRemote = remoteName
		}
	}

	if len(matchedRemote) == 0 {
		separatorIndex := strings.Index(trimmed, trackingNameSeparatorConstant)
		if separatorIndex <= 0 {
			return Branch{}, false
		}
		matchedRemote = trimmed[:separatorIndex]
	}

	branchName := strings.TrimPrefix(trimmed, matchedRemote+trackingNameSeparatorConstant)
	if len(branchName) == 0 || branchName == remoteSymbolicHeadNameConstant {
		return Branch{}, false
	}
	return RemoteBranch(matchedRemote, branchName), true
}

// SortBranches orders branches in place using Branch.Compare.
func SortBranches(branches []Branch) {
	sort.SliceStable(branches, func(left int, right int) bool {
		return branches[left].Compare(branches[right]) < 0
	})
}

// Branches is a snapshot of the branches of one checkout.
type Branches struct {
	currentBranchName string
	hasCurrentBranch  bool
	local             []Branch
	remote            []Branch
}

// NewBranches builds a snapshot. An empty current branch name means the head is detached.
func NewBranches(currentBranchName string, local []Branch, remote []Branch) Branches {
	localCopy := append([]Branch{}, local...)
	remoteCopy := append([]Branch{}, remote...)
	SortBranches(localCopy)
	SortBranches(remoteCopy)
	return Branches{
		currentBranchName: currentBranchName,
		hasCurrentBranch:  len(currentBranchName) > 0,
		local:             localCopy,
		remote:            remoteCopy,
	}
}

// CurrentBranch returns the checked out local branch, if any.
func (branches Branches) CurrentBranch() (Branch, bool) {
	if !branches.hasCurrentBranch {
		return Branch{}, false
	}
	return LocalBranch(branches.currentBranchName), true
}

// IsCurrent reports whether the branch is the checked out local branch.
func (branches Branches) IsCurrent(branch Branch) bool {
	return branches.hasCurrentBranch && branch.IsLocal() && branch.Name == branches.currentBranchName
}

// Local returns the local branches in order.
func (branches Branches) Local() []Branch {
	return append([]Branch{}, branches.local...)
}

// Remote returns the remote-tracking branches in order.
func (branches Branches) Remote() []Branch {
	return append([]Branch{}, branches.remote...)
}

// All returns local then remote branches.
func (branches Branches) All() []Branch {
	return append(branches.Local(), branches.remote...)
}

// Find looks a branch up by its tracking name.
func (branches Branches) Find(trackingName string) (Branch, bool) {
	for _, branch := range branches.All() {
		if branch.TrackingName() == trackingName {
			return branch, true
		}
	}
	return Branch{}, false
}

// Contains reports whether the exact branch is part of the snapshot.
func (branches Branches) Contains(branch Branch) bool {
	candidates := branches.remote
	if branch.IsLocal() {
		candidates = branches.local
	}
	for _, candidate := range candidates {
		if candidate == branch {
			return true
		}
	}
	return false
}

// RemoteBranchesNamed returns every remote-tracking branch with the given bare name.
func (branches Branches) RemoteBranchesNamed(name string) []Branch {
	var matches []Branch
	for _, branch := range branches.remote {
		if branch.Name == name {
			matches = append(matches, branch)
		}
	}
	return matches
}

// Opposite returns the counterpart of a branch on the other side: the local branch for a remote
// branch, or the first remote branch of the same name for a local branch.
func (branches Branches) Opposite(branch Branch) (Branch, bool) {
	if branch.IsLocal() {
		remoteBranches := branches.RemoteBranchesNamed(branch.Name)
		if len(remoteBranches) == 0 {
			return Branch{}, false
		}
		return remoteBranches[0], true
	}
	counterpart, found := branches.Find(LocalBranch(branch.Name).TrackingName())
	if !found || !counterpart.IsLocal() {
		return Branch{}, false
	}
	return counterpart, true
}

// HasRemoteForLocalOrLocalForRemote reports whether the branch has a same-named counterpart.
func (branches Branches) HasRemoteForLocalOrLocalForRemote(branch Branch) bool {
	_, found := branches.Opposite(branch)
	return found
}

// ParseContainsOutput converts `git branch -a --contains <commit> --format=%(refname)` output into a snapshot.
func ParseContainsOutput(output string, remoteNames []string) Branches {
	var local []Branch
	var remote []Branch
	for _, line := range strings.Split(output, lineSeparatorConstant) {
		reference := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(reference, localReferencePrefixConstant):
			local = append(local, LocalBranch(strings.TrimPrefix(reference, localReferencePrefixConstant)))
		case strings.HasPrefix(reference, remoteReferencePrefixConstant):
			branch, parsed := ParseRemoteTrackingName(strings.TrimPrefix(reference, remoteReferencePrefixConstant), remoteNames)
			if parsed {
				remote = append(remote, branch)
			}
		}
	}
	return NewBranches("", local, remote)
}

// Heads maps branch names on a remote to their commit identifiers.
type Heads struct {
	Remote  string
	commits map[string]string
}

// NewHeads builds remote heads from a name to commit mapping.
func NewHeads(remote string, commits map[string]string) Heads {
	copied := make(map[string]string, len(commits))
	for name, commit := range commits {
		copied[name] = commit
	}
	return Heads{Remote: remote, commits: copied}
}

// ParseLSRemoteHeads converts `git ls-remote --heads <remote>` output.
func ParseLSRemoteHeads(remote string, output string) Heads {
	commits := make(map[string]string)
	for _, line := range strings.Split(output, lineSeparatorConstant) {
		fields := strings.Fields(line)
		if len(fields) != lsRemoteFieldCountConstant {
			continue
		}
		if !strings.HasPrefix(fields[1], localReferencePrefixConstant) {
			continue
		}
		commits[strings.TrimPrefix(fields[1], localReferencePrefixConstant)] = fields[0]
	}
	return Heads{Remote: remote, commits: commits}
}

// Find returns the commit a remote branch points at.
func (heads Heads) Find(branchName string) (string, bool) {
	commit, found := heads.commits[branchName]
	return commit, found
}

// Names returns the sorted branch names present on the remote.
func (heads Heads) Names() []string {
	names := make([]string, 0, len(heads.commits))
	for name := range heads.commits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
