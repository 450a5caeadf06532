// Package shutdown coordinates the end of long-running commands.
//
// A Handler waits for SIGINT or SIGTERM, a programmatic Trigger (for
// example when the server ends the session), or cancellation of the
// caller's context. It then runs the registered hooks in reverse order
// under a deadline.
package shutdown
