// Package branches deletes branches that are already merged into safe branches across a workspace.
//
// Service runs two ordered phases over the selected checkouts. The remote phase deletes remote branches whose
// head is contained in a safe remote branch in every checkout sharing the branch name, together with their local
// counterparts. The local phase then deletes local-only branches merged into a safe remote branch. Nothing is
// deleted unless the run is acknowledged; the resulting Report lists what was planned and what happened.
// CommandBuilder exposes the service as the branch-cleanup Cobra command.
package branches
