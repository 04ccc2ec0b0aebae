package server

import (
	"sync"
	"time"

	"github.com/lawnchairsociety/questengine/internal/config"
)

// RejectLimiter locks out clients that keep sending commands the engine
// rejects (malformed JSON, unknown NPCs, unknown command types). Each
// lockout doubles the previous one up to a ceiling.
type RejectLimiter struct {
	mu          sync.Mutex
	clients     map[string]*rejectInfo
	maxRejected int
	lockout     time.Duration
	maxLockout  time.Duration
	now         func() time.Time
	stop        chan struct{}
	stopOnce    sync.Once
}

type rejectInfo struct {
	rejected     int
	lockedUntil  time.Time
	lockoutCount int
}

// NewRejectLimiter creates a limiter and starts its cleanup loop.
func NewRejectLimiter(cfg config.RateLimitConfig) *RejectLimiter {
	rl := &RejectLimiter{
		clients:     make(map[string]*rejectInfo),
		maxRejected: cfg.MaxRejected,
		lockout:     time.Duration(cfg.LockoutSeconds) * time.Second,
		maxLockout:  time.Duration(cfg.MaxLockoutSeconds) * time.Second,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
	if rl.maxRejected <= 0 {
		rl.maxRejected = 10
	}
	if rl.lockout <= 0 {
		rl.lockout = 30 * time.Second
	}
	if rl.maxLockout < rl.lockout {
		rl.maxLockout = rl.lockout
	}

	go rl.cleanupLoop(5 * time.Minute)
	return rl
}

// Stop ends the cleanup loop. Safe to call more than once.
func (rl *RejectLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// IsLocked reports whether ip is locked out and for how much longer.
func (rl *RejectLimiter) IsLocked(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	info, ok := rl.clients[ip]
	if !ok {
		return false, 0
	}
	if now := rl.now(); now.Before(info.lockedUntil) {
		return true, info.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordReject counts a rejected command. It reports true once the client
// has crossed the threshold, along with the lockout length.
func (rl *RejectLimiter) RecordReject(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	info, ok := rl.clients[ip]
	if !ok {
		info = &rejectInfo{}
		rl.clients[ip] = info
	}
	if now.Before(info.lockedUntil) {
		return true, info.lockedUntil.Sub(now)
	}

	info.rejected++
	if info.rejected < rl.maxRejected {
		return false, 0
	}

	info.lockoutCount++
	d := rl.lockout
	for i := 1; i < info.lockoutCount; i++ {
		if d >= rl.maxLockout/2 {
			d = rl.maxLockout
			break
		}
		d *= 2
	}
	if d > rl.maxLockout {
		d = rl.maxLockout
	}
	info.lockedUntil = now.Add(d)
	info.rejected = 0
	return true, d
}

// RecordAccept clears the reject count for ip. Past lockouts still count
// toward backoff until cleanup drops the entry.
func (rl *RejectLimiter) RecordAccept(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if info, ok := rl.clients[ip]; ok {
		info.rejected = 0
	}
}

// Rejected returns the current reject count for ip.
func (rl *RejectLimiter) Rejected(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if info, ok := rl.clients[ip]; ok {
		return info.rejected
	}
	return 0
}

func (rl *RejectLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup drops entries unlocked for at least ten minutes with no pending rejects.
func (rl *RejectLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-10 * time.Minute)
	for ip, info := range rl.clients {
		if info.lockedUntil.Before(cutoff) && info.rejected == 0 {
			delete(rl.clients, ip)
		}
	}
}
