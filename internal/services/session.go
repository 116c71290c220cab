package services

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wavenote/wavenote-backend/internal/logger"
)

var ErrUnauthenticated = errors.New("unauthenticated")

const sessionCookieName = "__session"

// Principal is the authenticated subject of the current request, as asserted
// by the identity provider's session token.
type Principal struct {
	SubjectID string
	Email     string
	Name      string
}

// SessionService is the boundary contract with the identity provider: given
// a request, who is the currently authenticated principal. Tokens are
// provider-issued JWTs, RS256 against the provider JWKS in real deployments
// or HS256 against a shared dev secret when no JWKS URL is configured.
type SessionService interface {
	PrincipalFromRequest(ctx context.Context, r *http.Request) (*Principal, error)
	PrincipalFromToken(ctx context.Context, tokenString string) (*Principal, error)
}

type sessionService struct {
	log      *logger.Logger
	issuer   string
	hsSecret []byte
	jwks     *jwksCache
}

func NewSessionService(log *logger.Logger, jwksURL, hsSecret, issuer string, httpClient *http.Client) SessionService {
	serviceLog := log.With("service", "SessionService")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	var cache *jwksCache
	if strings.TrimSpace(jwksURL) != "" {
		cache = &jwksCache{
			url:    strings.TrimSpace(jwksURL),
			client: httpClient,
			ttl:    time.Hour,
		}
	}
	var secret []byte
	if strings.TrimSpace(hsSecret) != "" {
		secret = []byte(strings.TrimSpace(hsSecret))
	}
	return &sessionService{
		log:      serviceLog,
		issuer:   strings.TrimSpace(issuer),
		hsSecret: secret,
		jwks:     cache,
	}
}

func (ss *sessionService) PrincipalFromRequest(ctx context.Context, r *http.Request) (*Principal, error) {
	tokenString := extractSessionToken(r)
	if tokenString == "" {
		return nil, ErrUnauthenticated
	}
	return ss.PrincipalFromToken(ctx, tokenString)
}

func (ss *sessionService) PrincipalFromToken(ctx context.Context, tokenString string) (*Principal, error) {
	claims := jwt.MapClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "HS256"}),
		jwt.WithExpirationRequired(),
	}
	if ss.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ss.issuer))
	}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.Alg() {
		case "HS256":
			if len(ss.hsSecret) == 0 {
				return nil, fmt.Errorf("hs256 token but no session secret configured")
			}
			return ss.hsSecret, nil
		case "RS256":
			if ss.jwks == nil {
				return nil, fmt.Errorf("rs256 token but no jwks url configured")
			}
			kid, _ := t.Header["kid"].(string)
			return ss.jwks.key(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
	}, opts...)
	if err != nil {
		ss.log.Debug("Session token rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, fmt.Errorf("%w: token missing sub claim", ErrUnauthenticated)
	}
	p := &Principal{SubjectID: sub}
	if email, ok := claims["email"].(string); ok {
		p.Email = strings.TrimSpace(email)
	}
	if name, ok := claims["name"].(string); ok && strings.TrimSpace(name) != "" {
		p.Name = strings.TrimSpace(name)
	} else {
		first, _ := claims["first_name"].(string)
		last, _ := claims["last_name"].(string)
		p.Name = strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	}
	return p, nil
}

func extractSessionToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

type jwksCache struct {
	url    string
	client *http.Client
	ttl    time.Duration

	mu      sync.Mutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

func (jc *jwksCache) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	jc.mu.Lock()
	defer jc.mu.Unlock()

	if key, ok := jc.keys[kid]; ok && time.Since(jc.fetched) < jc.ttl {
		return key, nil
	}
	if err := jc.refreshLocked(ctx); err != nil {
		// A stale key set beats a hard failure while the endpoint flaps.
		if key, ok := jc.keys[kid]; ok {
			return key, nil
		}
		return nil, err
	}
	if key, ok := jc.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("jwks: no key for kid %q", kid)
}

func (jc *jwksCache) refreshLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jc.url, nil)
	if err != nil {
		return err
	}
	resp, err := jc.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("jwks: no usable RSA keys")
	}
	jc.keys = keys
	jc.fetched = time.Now()
	return nil
}

func parseRSAKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}
