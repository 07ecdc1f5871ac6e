package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// staleAfterWindows is how many idle windows a client entry survives before pruning
const staleAfterWindows = 10

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter admits at most one request per window for each client IP.
// A zero window disables limiting.
type RateLimiter struct {
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	lastPrune time.Time
}

// NewRateLimiter creates a per-IP limiter
func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{
		window:  window,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow reports whether a request from ip may proceed, and if not, how long to wait
func (l *RateLimiter) Allow(ip string) (bool, time.Duration) {
	if l.window <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Every(l.window), 1)}
		l.clients[ip] = c
	}
	c.lastSeen = now

	r := c.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *RateLimiter) pruneLocked(now time.Time) {
	stale := staleAfterWindows * l.window
	if now.Sub(l.lastPrune) < stale {
		return
	}
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > stale {
			delete(l.clients, ip)
		}
	}
	l.lastPrune = now
}

// Middleware rejects requests over the limit with 429
func (l *RateLimiter) Middleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			ok, wait := l.Allow(ip)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			log.Warn().
				Str("client_ip", ip).
				Str("path", r.URL.Path).
				Dur("retry_after", wait).
				Msg("Rate limit exceeded")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(wait.Seconds()))))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": fmt.Sprintf("rate limit exceeded, retry in %s", wait.Round(time.Millisecond)),
			})
		})
	}
}

// clientIP returns the host part of RemoteAddr (already rewritten by RealIP)
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
