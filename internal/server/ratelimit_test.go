package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func fixedClock(start time.Time) (*time.Time, func() time.Time) {
	current := start
	return &current, func() time.Time { return current }
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := NewRateLimiter(0)
	for i := 0; i < 5; i++ {
		ok, _ := l.Allow("10.0.0.1")
		assert.True(t, ok)
	}
}

func TestRateLimiter_OnePerWindow(t *testing.T) {
	l := NewRateLimiter(10 * time.Second)
	current, clock := fixedClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	l.now = clock

	ok, _ := l.Allow("10.0.0.1")
	assert.True(t, ok)

	*current = current.Add(3 * time.Second)
	ok, wait := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.InDelta(t, float64(7*time.Second), float64(wait), float64(time.Millisecond))

	// a different client is unaffected
	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok)

	// rejected requests do not extend the wait
	*current = current.Add(7*time.Second + time.Millisecond)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
}

func TestRateLimiter_PrunesIdleClients(t *testing.T) {
	l := NewRateLimiter(time.Second)
	current, clock := fixedClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	l.now = clock

	l.Allow("10.0.0.1")
	*current = current.Add(time.Minute)
	l.Allow("10.0.0.2")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.clients, 1)
	assert.Contains(t, l.clients, "10.0.0.2")
}

func TestRateLimiter_Middleware(t *testing.T) {
	l := NewRateLimiter(time.Minute)
	handler := l.Middleware(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/ledger/transactions", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusCreated, send("192.0.2.1:5000").Code)

	rec := send("192.0.2.1:5001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	assert.Equal(t, http.StatusCreated, send("192.0.2.2:5000").Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
