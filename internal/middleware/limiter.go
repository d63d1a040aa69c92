package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"campus-eats-be/internal/utils"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Login / payment initiation (Strict)
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// General (Default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	// Status polling from the order page
	limitFrontend = rate.Limit(20)
	burstFrontend = 40

	// Authenticated admin dashboard
	limitAdmin = rate.Limit(50)
	burstAdmin = 100
)

const (
	sweepInterval = time.Minute
	visitorTTL    = 3 * time.Minute
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// getVisitor retrieves or creates a limiter for key. Stale entries are swept
// at most once per sweepInterval, on the request path.
func (l *RateLimiter) getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= sweepInterval {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, exists := l.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		l.visitors[key] = &visitor{limiter, now}
		return limiter
	}

	v.lastSeen = now
	return v.limiter
}

// Middleware checks if the request is allowed by the rate limiter.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := resolveRateTier(r)

		var identity string
		if sub, ok := utils.GetAdminSubjectFromContext(r.Context()); ok {
			identity = "admin:" + sub
		} else if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
			identity = "device:" + deviceID
		} else {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			identity = "ip:" + ip
		}

		// Same identity gets separate quotas per tier, e.g. "ip:1.2.3.4:strict".
		key := fmt.Sprintf("%s:%s", identity, tier)

		if !l.getVisitor(key, limit, burst).Allow() {
			w.Header().Set("Retry-After", "1")
			utils.WriteJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resolveRateTier determines which rate limit policy applies to the request.
func resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	path := r.URL.Path

	switch {
	case path == "/admin/login" || path == "/payments/initiate":
		return limitStrict, burstStrict, "strict"
	case utils.IsAdmin(r.Context()):
		return limitAdmin, burstAdmin, "admin"
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/orders/"),
		path == "/payments/verify":
		return limitFrontend, burstFrontend, "frontend"
	default:
		return limitGeneral, burstGeneral, "general"
	}
}
