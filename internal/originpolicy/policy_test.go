package originpolicy

import "testing"

func testPolicy(env string) *Policy {
	return &Policy{
		Environment:    env,
		AllowedOrigins: []string{"https://app.wavenote.io", "https://www.wavenote.io"},
		PublicRoutes:   []string{"/healthcheck", "/api/webhooks/*", "/api/auth/me"},
		StudioPrefixes: []string{"/api/studio"},
	}
}

func TestRouteClassOf(t *testing.T) {
	cases := []struct {
		name string
		env  string
		path string
		want RouteClass
	}{
		{name: "exact_public", env: "production", path: "/healthcheck", want: RoutePublic},
		{name: "wildcard_public", env: "production", path: "/api/webhooks/identity", want: RoutePublic},
		{name: "wildcard_public_nested", env: "production", path: "/api/webhooks/identity/retry", want: RoutePublic},
		{name: "unlisted_is_protected", env: "production", path: "/api/notes", want: RouteProtected},
		{name: "near_miss_exact_is_protected", env: "production", path: "/healthcheck2", want: RouteProtected},
		{name: "root_is_protected", env: "production", path: "/", want: RouteProtected},
		{name: "studio_protected_in_production", env: "production", path: "/api/studio/emails", want: RouteProtected},
		{name: "studio_public_in_development", env: "development", path: "/api/studio/emails", want: RoutePublic},
		{name: "studio_public_in_staging", env: "staging", path: "/api/studio", want: RoutePublic},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := testPolicy(tc.env).RouteClassOf(tc.path)
			if got != tc.want {
				t.Fatalf("RouteClassOf(%q) in %s = %v, want %v", tc.path, tc.env, got, tc.want)
			}
		})
	}
}

func TestResolveOrigin(t *testing.T) {
	p := testPolicy("production")

	cases := []struct {
		name        string
		origin      string
		wantOrigin  string
		wantMatched bool
	}{
		{name: "exact_match", origin: "https://app.wavenote.io", wantOrigin: "https://app.wavenote.io", wantMatched: true},
		{name: "second_entry", origin: "https://www.wavenote.io", wantOrigin: "https://www.wavenote.io", wantMatched: true},
		{name: "empty_gets_default", origin: "", wantOrigin: "https://app.wavenote.io", wantMatched: false},
		{name: "unknown_gets_default", origin: "https://evil.example.com", wantOrigin: "https://app.wavenote.io", wantMatched: false},
		// Lookalike domains must not match: exact string comparison only.
		{name: "suffix_spoof", origin: "https://evil-app.wavenote.io", wantOrigin: "https://app.wavenote.io", wantMatched: false},
		{name: "substring_spoof", origin: "https://app.wavenote.io.evil.com", wantOrigin: "https://app.wavenote.io", wantMatched: false},
		{name: "scheme_mismatch", origin: "http://app.wavenote.io", wantOrigin: "https://app.wavenote.io", wantMatched: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotOrigin, gotMatched := p.ResolveOrigin(tc.origin)
			if gotOrigin != tc.wantOrigin || gotMatched != tc.wantMatched {
				t.Fatalf("ResolveOrigin(%q) = (%q, %v), want (%q, %v)", tc.origin, gotOrigin, gotMatched, tc.wantOrigin, tc.wantMatched)
			}
		})
	}
}

func TestDefaultOriginEmptyPolicy(t *testing.T) {
	p := &Policy{}
	if got := p.DefaultOrigin(); got != "" {
		t.Fatalf("DefaultOrigin() on empty policy = %q, want empty", got)
	}
	origin, matched := p.ResolveOrigin("https://app.wavenote.io")
	if origin != "" || matched {
		t.Fatalf("ResolveOrigin on empty policy = (%q, %v), want empty, false", origin, matched)
	}
}
