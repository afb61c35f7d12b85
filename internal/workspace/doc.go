// Package workspace models a forest of git working trees holding Maven modules.
//
// Model scans the tree below a root working tree once, cross-indexes modules,
// checkouts and groupIds, and keeps the snapshot until Invalidate is called.
// Per-checkout facts such as the current branch are computed lazily and
// memoized. MatchCheckouts resolves a Scope into an ordered list of checkouts.
package workspace
