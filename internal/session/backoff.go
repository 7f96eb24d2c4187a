package session

import "time"

const (
	defaultBaseBackoff = time.Second
	maxBackoff         = 30 * time.Second
)

// calculateBackoff returns base·2^failures, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return min(base, maxBackoff)
	}
	backoff := base
	for range failures {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
