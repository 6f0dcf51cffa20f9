package chat

import (
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between chat messages per user.
// Entries are kept after a user leaves; a returning user is measured against
// the last message sent under the same name.
type RateLimiter struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewRateLimiter creates an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		last: make(map[string]time.Time),
	}
}

// TryAdmit admits username when it has never sent, or when at least
// minInterval has passed since its last admitted message. An admit records
// now; a reject changes nothing.
func (rl *RateLimiter) TryAdmit(username string, now time.Time, minInterval time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if last, ok := rl.last[username]; ok && now.Sub(last) < minInterval {
		return false
	}
	rl.last[username] = now
	return true
}
