package server

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// RateLimit bounds execute requests per sender. A non-positive rate
// disables limiting.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const visitorIdleTTL = 10 * time.Minute

type senderLimiter struct {
	cfg      RateLimit
	clock    clockwork.Clock
	mu       sync.Mutex
	visitors map[string]*rateEntry
}

func newSenderLimiter(cfg RateLimit, clock clockwork.Clock) *senderLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &senderLimiter{cfg: cfg, clock: clock, visitors: make(map[string]*rateEntry)}
}

func (l *senderLimiter) Allow(sender string) bool {
	if l == nil || l.cfg.RequestsPerSecond <= 0 {
		return true
	}
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.visitors[sender]
	if !ok {
		l.prune(now)
		burst := l.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		entry = &rateEntry{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), burst)}
		l.visitors[sender] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *senderLimiter) prune(now time.Time) {
	for id, entry := range l.visitors {
		if now.Sub(entry.lastSeen) > visitorIdleTTL {
			delete(l.visitors, id)
		}
	}
}
