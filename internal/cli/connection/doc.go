// Package connection is the request gateway between chartered-cli and the
// registry's web API.
//
//   - gateway.go: URL composition, the Do primitive and forced logout
//   - http.go: HTTP client construction, headers and envelope decoding
//
// Every backend call goes through Gateway.Do (or the generic Request
// helper). It is the only code that looks at HTTP status codes: a 401 on
// an authenticated call clears the session exactly once, however many
// calls observe it.
package connection
