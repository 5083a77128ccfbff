package ratelimit

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// PrincipalResolver reports the authenticated username for a request, if any.
// The gate keys authenticated traffic per user and anonymous traffic per
// client IP.
type PrincipalResolver func(r *http.Request) (username string, ok bool)

// BucketSource yields the bucket for an identity key. Cache satisfies it; a
// failing source makes the gate fail open.
type BucketSource interface {
	Bucket(key string, policy Policy) (*Bucket, error)
}

// Bucket makes Cache a BucketSource.
func (c *Cache) Bucket(key string, policy Policy) (*Bucket, error) {
	return c.Get(key, policy), nil
}

// GateConfig configures the admission gate.
type GateConfig struct {
	// UserPolicy applies to user:<name> keys.
	UserPolicy Policy
	// IPPolicy applies to ip:<addr> keys.
	IPPolicy Policy
	// ExemptPrefixes lists path prefixes the gate passes through untouched.
	ExemptPrefixes []string
}

// DefaultGateConfig mirrors the production limits: authenticated users get
// 100 requests per minute, anonymous clients 20 per minute per IP.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		UserPolicy: Policy{Capacity: 100, RefillTokens: 100, RefillInterval: time.Minute},
		IPPolicy:   Policy{Capacity: 20, RefillTokens: 20, RefillInterval: time.Minute},
	}
}

// Gate is the HTTP admission middleware. It consumes one token per request
// from the caller's bucket and rejects with 429 when the bucket is empty.
type Gate struct {
	cfg       GateConfig
	source    BucketSource
	principal PrincipalResolver
	log       *slog.Logger
	now       func() time.Time

	// OnDenied, when set, is invoked with the identity key of each rejected
	// request. Used for metrics.
	OnDenied func(key string)
}

// NewGate builds a gate over source. principal may be nil, in which case all
// traffic is keyed by IP.
func NewGate(cfg GateConfig, source BucketSource, principal PrincipalResolver, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	if principal == nil {
		principal = func(*http.Request) (string, bool) { return "", false }
	}
	return &Gate{cfg: cfg, source: source, principal: principal, log: log, now: time.Now}
}

// Middleware wraps next with admission control.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, p := range g.cfg.ExemptPrefixes {
			if strings.HasPrefix(r.URL.Path, p) {
				next.ServeHTTP(w, r)
				return
			}
		}

		key, policy := g.identify(r)

		bucket, err := g.source.Bucket(key, policy)
		if err != nil {
			// Fail open: a broken limiter must not take the API down.
			g.log.Warn("ratelimit.source_error", "key", key, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, retryAfter := bucket.Take(g.now())
		if !allowed {
			if g.OnDenied != nil {
				g.OnDenied(key)
			}
			writeRejected(w, retryAfter)
			return
		}

		w.Header().Set("X-Rate-Limit-Remaining", strconv.FormatInt(remaining, 10))
		next.ServeHTTP(w, r)
	})
}

// identify picks the identity key and the policy that governs it.
func (g *Gate) identify(r *http.Request) (string, Policy) {
	if username, ok := g.principal(r); ok {
		return "user:" + username, g.cfg.UserPolicy
	}
	return "ip:" + clientIP(r), g.cfg.IPPolicy
}

// clientIP takes the first X-Forwarded-For entry when present, falling back
// to the peer address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rejectedBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter"`
}

func writeRejected(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int64(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Rate-Limit-Retry-After-Seconds", strconv.FormatInt(secs, 10))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(rejectedBody{
		Error:      "Rate limit exceeded",
		Message:    "Too many requests, please try again in " + strconv.FormatInt(secs, 10) + " seconds",
		RetryAfter: secs,
	})
}
