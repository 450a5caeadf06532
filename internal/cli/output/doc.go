// Package output renders command results for chartered-cli.
//
// Results are printed in one of three formats:
//
//   - table: aligned columns for people (default)
//   - json: indented JSON for scripts
//   - yaml: YAML via gopkg.in/yaml.v3
//
// Backend payloads arrive as json.RawMessage; every formatter decodes
// them first so the same response renders in all three formats.
package output
