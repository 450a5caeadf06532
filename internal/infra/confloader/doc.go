// Package confloader provides configuration loading mechanism.
//
// The loader layers values from several sources into a single koanf
// instance and unmarshals them into typed structs.
//
// Priority (highest to lowest):
//
//  1. Overrides such as command-line flags (WithOverrides)
//  2. Environment variables (CHARTERED_ prefix)
//  3. Configuration file (YAML)
//  4. Default values already present in the target
//
// The Watcher reports changes to individual files. It is used to pick up
// session state written by another process sharing the same store.
package confloader
