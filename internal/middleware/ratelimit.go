package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LimiterPool hands out one token bucket per key and forgets keys that have
// been idle for longer than the TTL.
type LimiterPool struct {
	mu            sync.Mutex
	entries       map[string]*limiterEntry
	limit         rate.Limit
	burst         int
	ttl           time.Duration
	cleanupPeriod time.Duration
	startCleanup  sync.Once
	stopOnce      sync.Once
	stopCh        chan struct{}
	now           func() time.Time
}

func NewLimiterPool(perSecond float64, burst int) *LimiterPool {
	if burst < 1 {
		burst = 1
	}
	return &LimiterPool{
		entries:       make(map[string]*limiterEntry),
		limit:         rate.Limit(perSecond),
		burst:         burst,
		ttl:           10 * time.Minute,
		cleanupPeriod: time.Minute,
		stopCh:        make(chan struct{}),
		now:           time.Now,
	}
}

// Allow reports whether key may perform one more action now.
func (p *LimiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

func (p *LimiterPool) get(key string) *rate.Limiter {
	p.startCleanup.Do(func() {
		go p.cleanupLoop()
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.entries[key]; ok {
		entry.lastSeen = p.now()
		return entry.limiter
	}

	limiter := rate.NewLimiter(p.limit, p.burst)
	p.entries[key] = &limiterEntry{limiter: limiter, lastSeen: p.now()}
	return limiter
}

func (p *LimiterPool) Shutdown() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

func (p *LimiterPool) cleanupLoop() {
	ticker := time.NewTicker(p.cleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.evictIdle()
		case <-p.stopCh:
			return
		}
	}
}

func (p *LimiterPool) evictIdle() {
	cutoff := p.now().Add(-p.ttl)
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, entry := range p.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(p.entries, key)
		}
	}
}

// RateLimit limits requests per authenticated user, or per client IP when the
// request carries no user.
func RateLimit(pool *LimiterPool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, _ := c.Locals("user_id").(string)
		if key == "" {
			key = "ip:" + c.IP()
		}
		if !pool.Allow(key) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests"})
		}
		return c.Next()
	}
}
