// Package config loads runtime configuration with viper and checks it
// against an embedded CUE schema.
//
// Precedence, lowest first: defaults, config file, WIKIREF_* environment
// variables. Command-line flags are applied by the cli package on top.
package config
