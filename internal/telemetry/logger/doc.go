// Package logger provides structured logging for chartered-cli on top of
// log/slog.
//
// Bearer tokens never reach the output: attributes whose key looks
// sensitive are replaced wholesale, and authenticated endpoint URLs have
// their token segment masked.
package logger
