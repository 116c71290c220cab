package originpolicy

import (
	"strings"
)

// Policy is the static cross-origin trust configuration. It is built once at
// boot and read-only afterwards; every request consults it before handler
// dispatch.
type Policy struct {
	// Environment gates the studio carve-out ("production" disables it).
	Environment string `yaml:"environment"`
	// AllowedOrigins are matched exactly. The first entry doubles as the
	// fallback origin echoed to unrecognized requesters.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// PublicRoutes are exact paths, or prefixes when they end in "*".
	PublicRoutes []string `yaml:"public_routes"`
	// StudioPrefixes are path prefixes treated as public outside production;
	// those endpoints run their own principal check internally.
	StudioPrefixes []string `yaml:"studio_prefixes"`
}

type RouteClass int

const (
	RouteProtected RouteClass = iota
	RoutePublic
)

// DefaultOrigin is what unrecognized requesters get echoed back. Known
// policy wrinkle: a mismatched-origin response may be cached by
// intermediaries; kept deliberately, see ResolveOrigin callers.
func (p *Policy) DefaultOrigin() string {
	if len(p.AllowedOrigins) == 0 {
		return ""
	}
	return p.AllowedOrigins[0]
}

// ResolveOrigin returns the origin to grant and whether the requester's
// origin was an exact allow-list match. No suffix or substring matching:
// "evil-app.example.com" must not ride on "app.example.com".
func (p *Policy) ResolveOrigin(requestOrigin string) (string, bool) {
	for _, allowed := range p.AllowedOrigins {
		if requestOrigin != "" && requestOrigin == allowed {
			return allowed, true
		}
	}
	return p.DefaultOrigin(), false
}

// RouteClassOf classifies a request path. Anything unmatched is protected;
// the default is deny, not allow.
func (p *Policy) RouteClassOf(path string) RouteClass {
	for _, pattern := range p.PublicRoutes {
		if matchRoute(pattern, path) {
			return RoutePublic
		}
	}
	if p.studioCarveOut() {
		for _, prefix := range p.StudioPrefixes {
			if prefix != "" && strings.HasPrefix(path, prefix) {
				return RoutePublic
			}
		}
	}
	return RouteProtected
}

func (p *Policy) studioCarveOut() bool {
	return strings.ToLower(strings.TrimSpace(p.Environment)) != "production"
}

func matchRoute(pattern, path string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return path == pattern
}
