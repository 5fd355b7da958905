package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"pkt.systems/pslog"
)

const limiterIdleTTL = 5 * time.Minute

var errRateLimited = errors.New("rate limit exceeded")

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// limiterSet holds one token bucket per client IP. Idle buckets are swept
// opportunistically on the request path.
type limiterSet struct {
	limit     rate.Limit
	burst     int
	clients   sync.Map // string -> *clientLimiter
	lastSweep atomic.Int64
	now       func() time.Time
}

func newLimiterSet(perSecond float64, burst int) *limiterSet {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	set := &limiterSet{limit: rate.Limit(perSecond), burst: burst, now: time.Now}
	set.lastSweep.Store(set.now().UnixNano())
	return set
}

func (s *limiterSet) allow(ip string) bool {
	now := s.now()
	s.sweep(now)
	return s.get(ip, now).limiter.AllowN(now, 1)
}

func (s *limiterSet) get(ip string, now time.Time) *clientLimiter {
	if val, ok := s.clients.Load(ip); ok {
		entry := val.(*clientLimiter)
		entry.lastSeen.Store(now.UnixNano())
		return entry
	}
	entry := &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
	entry.lastSeen.Store(now.UnixNano())
	actual, loaded := s.clients.LoadOrStore(ip, entry)
	if loaded {
		actual.(*clientLimiter).lastSeen.Store(now.UnixNano())
	}
	return actual.(*clientLimiter)
}

func (s *limiterSet) sweep(now time.Time) {
	last := s.lastSweep.Load()
	if now.UnixNano()-last < int64(limiterIdleTTL) || !s.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	cutoff := now.Add(-limiterIdleTTL).UnixNano()
	s.clients.Range(func(key, value any) bool {
		if value.(*clientLimiter).lastSeen.Load() < cutoff {
			s.clients.Delete(key)
		}
		return true
	})
}

func (s *limiterSet) retryAfter() string {
	seconds := int(1 / float64(s.limit))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func withRateLimit(next http.Handler, limiters *limiterSet, proxy *trustedProxy) http.Handler {
	if limiters == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := proxy.clientIP(r)
		if !limiters.allow(ip) {
			pslog.Ctx(r.Context()).Warn("http rate limited", "remote", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", limiters.retryAfter())
			writeError(w, http.StatusTooManyRequests, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
