package redis

import "strings"

// Keyspace prefixes every key the marketplace writes so one Redis instance
// can be shared with other tenants.
type Keyspace string

const defaultKeyspace Keyspace = "mkt"

func (k Keyspace) join(parts ...string) string {
	var b strings.Builder
	b.WriteString(string(k))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

// Idempotency keys a stored replay for scope (method, route, actor) and the
// caller-supplied Idempotency-Key.
func (k Keyspace) Idempotency(scope, id string) string {
	return k.join("idempotency", scope, id)
}

// RateLimit keys a fixed-window counter.
func (k Keyspace) RateLimit(scope string) string {
	return k.join("rate_limit", scope)
}

// AccessSession keys the refresh record bound to a JWT jti.
func (k Keyspace) AccessSession(accessID string) string {
	return k.join("session", "access", accessID)
}
