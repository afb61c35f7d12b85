// Package execshell provides structured helpers for invoking git.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and reports failures as CommandFailedError or
// CommandExecutionError so callers can inspect exit codes and standard error.
package execshell
