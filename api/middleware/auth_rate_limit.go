package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/api/responses"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/logger"
)

// maxAuthBody bounds how much of an auth request is buffered to find the email.
const maxAuthBody = 64 << 10

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// subjectFunc picks the counter subject out of a request; "" skips the counter.
type subjectFunc func(r *http.Request, body []byte) string

type authLimit struct {
	kind      string
	limit     int
	needsBody bool
	subject   subjectFunc
}

// AuthRateLimitPolicy throttles one auth endpoint with a shared window.
type AuthRateLimitPolicy struct {
	name   string
	window time.Duration
	limits []authLimit
}

// NewAuthRateLimitPolicy builds a policy counting per client IP and per
// normalized email. A zero limit disables that counter.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	policy := AuthRateLimitPolicy{name: name, window: window}
	if ipLimit > 0 {
		policy.limits = append(policy.limits, authLimit{kind: "ip", limit: ipLimit, subject: ipSubject})
	}
	if emailLimit > 0 {
		policy.limits = append(policy.limits, authLimit{kind: "email", limit: emailLimit, needsBody: true, subject: emailSubject})
	}
	return policy
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && len(p.limits) > 0
}

func (p AuthRateLimitPolicy) needsBody() bool {
	for _, l := range p.limits {
		if l.needsBody {
			return true
		}
	}
	return false
}

// AuthRateLimit counts every request against each limit of policy and answers
// RATE_LIMITED with Retry-After once any of them is exhausted. Counter store
// failures let the request through.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.needsBody() {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, maxAuthBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			for _, l := range policy.limits {
				subject := l.subject(r, body)
				if subject == "" {
					continue
				}
				if !policy.allow(ctx, store, logg, l, subject) {
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (p AuthRateLimitPolicy) allow(ctx context.Context, store rateLimiterStore, logg *logger.Logger, l authLimit, subject string) bool {
	scope := p.name + ":" + l.kind + ":" + subject
	allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(l.limit), p.window)
	if err != nil {
		if logg != nil {
			logg.Error(logg.WithField(ctx, "scope", l.kind), "auth.rate_limit.store_error", err)
		}
		return true
	}
	if !allowed && logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"scope":          l.kind,
			"policy":         p.name,
			"attempts":       count,
			"limit":          l.limit,
			"window_seconds": int(p.window.Seconds()),
		}), "auth.rate_limit.blocked")
	}
	return allowed
}

func ipSubject(r *http.Request, _ []byte) string {
	return clientIP(r)
}

// emailSubject hashes the address so raw emails never land in the counter store.
func emailSubject(_ *http.Request, body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

// clientIP prefers the first forwarded hop, then X-Real-IP, then the socket
// peer. Unparseable header values are ignored.
func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := canonicalIP(first); ip != "" {
			return ip
		}
	}
	if ip := canonicalIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := canonicalIP(host); ip != "" {
		return ip
	}
	return strings.TrimSpace(host)
}

func canonicalIP(value string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(value))
	if err != nil {
		return ""
	}
	return addr.Unmap().String()
}
