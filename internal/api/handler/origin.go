package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may open the live channel.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

func NewOriginPolicy(origins []string, log *slog.Logger) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{})}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			p.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		p.allowed[normalized] = struct{}{}
	}
	return p
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// Check is a websocket.Upgrader CheckOrigin. Requests without an Origin
// header come from non-browser clients and are allowed.
func (p *OriginPolicy) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || p.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, allowed := p.allowed[normalized]
	return allowed
}
