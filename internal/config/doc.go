// Package config loads CLI settings from a YAML file and PAGEGEN_ prefixed
// environment variables.
package config
