// Package cli builds the canopy root command. It loads configuration from the embedded defaults, an optional
// config.yaml and CANOPY_* environment variables, creates the zap logger, and registers the branch-cleanup and
// checkouts commands.
package cli
