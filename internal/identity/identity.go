// Package identity derives the anonymous per-visitor token used to keep
// reactions, votes and submission quotas honest. The token is a one-way hash
// of coarse request metadata: a deterrent against casual abuse, not an
// authentication mechanism.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

const (
	UnknownOrigin = "0.0.0.0"
	UnknownAgent  = "unknown"

	tokenLength = sha256.Size * 2
)

// Derive hashes origin and agent into a 64 character hex token. Missing
// values are replaced by placeholders so a token is always produced.
func Derive(origin, agent string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = UnknownOrigin
	}
	agent = strings.TrimSpace(agent)
	if agent == "" {
		agent = UnknownAgent
	}
	sum := sha256.Sum256([]byte(origin + "::" + agent))
	return hex.EncodeToString(sum[:])
}

// Origin picks the client address: first X-Forwarded-For hop, then
// X-Real-IP, then the connection's remote host.
func Origin(h http.Header, remoteAddr string) string {
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(h.Get("X-Real-IP")); real != "" {
		return real
	}
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// FromRequest derives the token for r. ok is false when the request carries
// neither an origin nor a user agent, in which case the token is the shared
// placeholder hash and must not be used to key reactions or votes.
func FromRequest(r *http.Request) (token string, ok bool) {
	origin := strings.TrimSpace(Origin(r.Header, r.RemoteAddr))
	agent := strings.TrimSpace(r.UserAgent())
	return Derive(origin, agent), origin != "" || agent != ""
}

// Valid reports whether token has the shape produced by Derive.
func Valid(token string) bool {
	if len(token) != tokenLength {
		return false
	}
	for _, c := range token {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
