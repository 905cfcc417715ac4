package httpmiddleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitConfig configures a sliding-window limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per Window.
	Max    int
	Window time.Duration
	// KeyFunc buckets requests. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
	// Message is returned with 429 responses.
	Message string
}

type window struct {
	prev, curr   float64
	currStart    time.Time
	lastActivity time.Time
}

// Limiter approximates a sliding window by weighting the previous fixed
// window by its remaining overlap.
type Limiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter returns a Limiter. Non-positive settings fall back to 100
// requests per minute.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.Max <= 0 {
		cfg.Max = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	if cfg.Message == "" {
		cfg.Message = "too many requests, please try again later"
	}
	return &Limiter{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow records a hit for key and reports whether it is within the limit,
// along with the remaining budget and the end of the current window.
func (l *Limiter) Allow(key string) (remaining int, reset time.Time, ok bool) {
	now := l.now()
	start := now.Truncate(l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	switch {
	case w == nil:
		w = &window{currStart: start}
		l.windows[key] = w
	case start.Sub(w.currStart) >= 2*l.cfg.Window:
		w.prev, w.curr, w.currStart = 0, 0, start
	case start.After(w.currStart):
		w.prev, w.curr, w.currStart = w.curr, 0, start
	}
	w.lastActivity = now

	overlap := 1 - float64(now.Sub(w.currStart))/float64(l.cfg.Window)
	used := w.prev*math.Max(overlap, 0) + w.curr
	reset = w.currStart.Add(l.cfg.Window)
	if used >= float64(l.cfg.Max) {
		return 0, reset, false
	}
	w.curr++
	return max(int(float64(l.cfg.Max)-used-1), 0), reset, true
}

// Sweep drops keys idle for two windows.
func (l *Limiter) Sweep() {
	cutoff := l.now().Add(-2 * l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if w.lastActivity.Before(cutoff) {
			delete(l.windows, key)
		}
	}
}

// RunSweeper calls Sweep every two windows until ctx is done.
func (l *Limiter) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(2 * l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Middleware rejects requests over the limit with 429 and sets the
// X-RateLimit-* headers on every response.
func (l *Limiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, reset, ok := l.Allow(l.cfg.KeyFunc(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !ok {
				wait := max(reset.Sub(l.now()), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, l.cfg.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit starts a limiter whose idle keys are swept until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := NewLimiter(cfg)
	go l.RunSweeper(ctx)
	return l.Middleware()
}
