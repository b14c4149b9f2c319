package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"distromart-be/internal/auth"
	"distromart-be/internal/utils"

	"golang.org/x/time/rate"
)

// Money-moving requests get a fixed strict quota on top of the general one.
const (
	limitStrict = rate.Limit(2)
	burstStrict = 5
)

const visitorTTL = 3 * time.Minute

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per caller and tier.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	general  rate.Limit
	burst    int
}

func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		visitors: make(map[string]*visitor),
		general:  rate.Limit(rps),
		burst:    burst,
	}
}

func (l *Limiter) get(key string, r rate.Limit, b int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		l.visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup drops idle visitors every interval until ctx is done.
func (l *Limiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(time.Now())
		}
	}
}

func (l *Limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(l.visitors, key)
		}
	}
}

// Middleware must run after Authenticate so authenticated callers are keyed
// by user rather than address.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := l.tier(r)

		var identity string
		if actor, ok := auth.ActorFrom(r.Context()); ok {
			identity = "user:" + actor.ID.String()
		} else {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			identity = "ip:" + ip
		}

		if !l.get(identity+":"+tier, limit, burst).Allow() {
			utils.WriteJSONError(w, http.StatusTooManyRequests, utils.ErrorBody{
				Code:    "rate_limited",
				Message: http.StatusText(http.StatusTooManyRequests),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// tier picks the strict bucket for requests that create orders or record
// payments.
func (l *Limiter) tier(r *http.Request) (rate.Limit, int, string) {
	if r.Method == http.MethodPost && (strings.HasSuffix(r.URL.Path, "/payments") || strings.HasPrefix(r.URL.Path, "/api/orders")) {
		return limitStrict, burstStrict, "strict"
	}
	return l.general, l.burst, "general"
}
