// Package config defines the chartered-cli configuration.
//
// Configuration lives in ~/.chartered/config.yaml and is layered by
// confloader: file, then CHARTERED_ environment variables, then global
// flags. Missing values keep the defaults from Default().
package config
