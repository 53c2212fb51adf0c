package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token-bucket rate limiter.
type Limiter struct {
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastUpdate).Seconds()
	l.lastUpdate = now

	l.tokens += elapsed * l.rate
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}

	if l.tokens >= 1 {
		l.tokens--
		return true
	}

	return false
}

// Pool hands out one limiter per connection. Entries live exactly as long
// as the connection: the transport removes them on disconnect, so no
// background sweep is needed.
type Pool struct {
	limiters map[string]*Limiter
	rate     float64
	burst    int
	mu       sync.Mutex
}

func NewPool(rate float64, burst int) *Pool {
	return &Pool{
		limiters: make(map[string]*Limiter),
		rate:     rate,
		burst:    burst,
	}
}

func (p *Pool) Get(connectionID string) *Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if limiter, ok := p.limiters[connectionID]; ok {
		return limiter
	}
	limiter := NewLimiter(p.rate, p.burst)
	p.limiters[connectionID] = limiter
	return limiter
}

func (p *Pool) Remove(connectionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.limiters, connectionID)
}
