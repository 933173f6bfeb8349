// Package utils exposes the configuration and logging plumbing shared by the vendman commands.
//
// ConfigurationLoader layers embedded defaults, configuration files and VENDMAN_* environment
// variables through Viper; LoggerFactory builds the zap loggers used for diagnostics.
package utils
