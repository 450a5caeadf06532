// Package domain defines the core domain models for chartered-cli.
package domain

// ChangeReason labels why the held session changed.
type ChangeReason string

const (
	ReasonLogin        ChangeReason = "login"
	ReasonExtend       ChangeReason = "extend"
	ReasonLogout       ChangeReason = "logout"
	ReasonForcedLogout ChangeReason = "forced-logout"
	ReasonHydrate      ChangeReason = "hydrate"
	ReasonSync         ChangeReason = "sync"
)
