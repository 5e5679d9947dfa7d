package auth

import (
	"time"
)

// SessionStatus describes how long the presented access token stays valid
type SessionStatus struct {
	ExpiresAt        time.Time
	RemainingSeconds int64
	Warning          bool
}

// SessionStatus reports the remaining lifetime of the token behind claims.
// Warning is raised once the remaining time drops to the configured threshold.
func (s *JWTService) SessionStatus(claims *Claims) SessionStatus {
	if claims == nil || claims.ExpiresAt == nil {
		return SessionStatus{Warning: true}
	}

	expiresAt := claims.ExpiresAt.Time
	remaining := expiresAt.Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}

	return SessionStatus{
		ExpiresAt:        expiresAt,
		RemainingSeconds: int64(remaining / time.Second),
		Warning:          remaining <= s.config.SessionWarning,
	}
}

// SessionWarning returns the configured warning threshold
func (s *JWTService) SessionWarning() time.Duration {
	return s.config.SessionWarning
}
