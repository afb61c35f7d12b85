// Package utils holds the configuration and logging bootstrap shared by canopy commands.
//
// ConfigurationLoader layers embedded defaults, an optional YAML file and CANOPY_* environment
// variables through Viper. LoggerFactory builds the zap logger every command receives.
package utils
