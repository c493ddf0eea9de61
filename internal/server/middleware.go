package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const correlationIDKey = "correlation_id"

// correlationMiddleware stamps every request with an id used to tie a
// logged internal error back to the opaque 500 the client received
// (spec.md §7: "internal errors never leak detail to the HTTP response").
func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(correlationIDKey, id)
		c.Header("X-Correlation-Id", id)
		c.Next()
	}
}

// timeoutWriter wraps a gin.ResponseWriter so a timed-out request can be
// answered from the middleware's own goroutine without racing the
// still-running handler goroutine's eventual write to the same
// underlying http.ResponseWriter. Every write takes the mutex, and
// writeTimeoutResponse sets timedOut atomically with sending the 504,
// so a handler write arriving after the timeout response is discarded
// instead of corrupting it.
type timeoutWriter struct {
	gin.ResponseWriter
	mu       sync.Mutex
	timedOut bool
}

func (w *timeoutWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *timeoutWriter) WriteString(s string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return len(s), nil
	}
	return w.ResponseWriter.WriteString(s)
}

// writeTimeoutResponse sends the 504 and marks the writer closed to the
// handler goroutine in one critical section, so there is no window in
// which a late handler write could land after we've started responding.
func (w *timeoutWriter) writeTimeoutResponse(body []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return
	}
	w.timedOut = true
	w.ResponseWriter.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.ResponseWriter.WriteHeader(http.StatusGatewayTimeout)
	_, _ = w.ResponseWriter.Write(body)
}

// requestTimeoutMiddleware bounds how long a single query request may
// run before the server gives up and returns 504, per spec.md §5's
// suspension-point budget for HTTP handlers. The handler keeps running
// on its own goroutine against the live *gin.Context (it may still need
// to commit a DB-driven response), so the response writer — not the
// context — is what has to be made safe for the two goroutines to share.
func requestTimeoutMiddleware(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		tw := &timeoutWriter{ResponseWriter: c.Writer}
		c.Writer = tw

		done := make(chan struct{})
		go func() {
			c.Next()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			body, _ := json.Marshal(gin.H{"error": "request timed out"})
			tw.writeTimeoutResponse(body)
			c.Abort()
		}
	}
}

// rateLimitMiddleware caps requests per client IP in a fixed window,
// adapted from the teacher's in-memory RateLimitMiddleware
// (middleware/auth.go) with a mutex added since gin handlers run
// concurrently across goroutines.
func rateLimitMiddleware(maxRequests int, window time.Duration) gin.HandlerFunc {
	var mu sync.Mutex
	counts := make(map[string]int)
	lastReset := time.Now()

	return func(c *gin.Context) {
		mu.Lock()
		if time.Since(lastReset) > window {
			counts = make(map[string]int)
			lastReset = time.Now()
		}
		ip := c.ClientIP()
		counts[ip]++
		exceeded := counts[ip] > maxRequests
		mu.Unlock()

		if exceeded {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
