package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// originChecker validates the Origin header of WebSocket upgrade requests
// against a configured allow-list. A "*" entry allows every origin.
type originChecker struct {
	log      zerolog.Logger
	allowAll bool
	allowed  map[string]struct{}
}

func newOriginChecker(origins []string, log zerolog.Logger) *originChecker {
	checker := &originChecker{
		log:     log,
		allowed: make(map[string]struct{}, len(origins)),
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			checker.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn().Str("origin", origin).Msg("ignoring invalid origin in configuration")
			continue
		}
		checker.allowed[normalized] = struct{}{}
	}

	return checker
}

// normalizeOrigin reduces an origin to lowercase scheme://host for
// comparison.
func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// check reports whether the request's Origin header is allowed, logging
// rejections.
func (o *originChecker) check(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" {
		o.log.Warn().Msg("blocked websocket connection with missing origin")
		return false
	}

	normalized, ok := normalizeOrigin(header)
	if !ok {
		o.log.Warn().Str("origin", header).Msg("blocked websocket connection with malformed origin")
		return false
	}

	if o.allowAll {
		return true
	}
	if _, exists := o.allowed[normalized]; exists {
		return true
	}

	o.log.Warn().Str("origin", header).Msg("blocked websocket connection from disallowed origin")
	return false
}
