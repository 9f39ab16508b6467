// Package auth validates bearer tokens whose subject claim carries the
// authenticated user_id (SPEC_FULL.md §6: "issuance is out of scope; the
// core requires only that an authenticated user_id reaches each endpoint").
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/synapse-sync/core/internal/apperr"
	"github.com/synapse-sync/core/internal/store"
)

type ctxKey string

const ctxUserID ctxKey = "uid"

// JWTCfg holds JWT authentication configuration.
type JWTCfg struct {
	HS256Secret string // HMAC secret, for backend-issued tokens / dev
	DevMode     bool   // Allow X-Debug-Sub header (local dev only)
	Issuer      string // Expected issuer, if validated
	JWKSURL     string // RS256 JWKS endpoint, if an external IdP is used
	Audience    string
}

// jwksCache caches an external IdP's RSA signing keys, refreshed on a TTL
// and on unknown kid (handles key rotation without a restart).
type jwksCache struct {
	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	lastFetch  time.Time
	cacheTTL   time.Duration
	jwksURL    string
	httpClient *http.Client
}

var globalJWKSCache *jwksCache

type jwksResponse struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (c *jwksCache) fetchJWKS(forceRefresh bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !forceRefresh && time.Since(c.lastFetch) < c.cacheTTL && len(c.keys) > 0 {
		return nil
	}

	resp, err := c.httpClient.Get(c.jwksURL)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read JWKS response: %w", err)
	}

	var jwks jwksResponse
	if err := json.Unmarshal(body, &jwks); err != nil {
		return fmt.Errorf("failed to parse JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" || key.Use != "sig" {
			continue
		}

		nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			log.Warn().Err(err).Str("kid", key.Kid).Msg("failed to decode modulus")
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			log.Warn().Err(err).Str("kid", key.Kid).Msg("failed to decode exponent")
			continue
		}

		var eInt int
		for _, b := range eBytes {
			eInt = eInt<<8 | int(b)
		}

		keys[key.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: eInt}
	}

	if len(keys) == 0 {
		return errors.New("no valid RSA signing keys found in JWKS")
	}

	c.keys = keys
	c.lastFetch = time.Now()
	log.Info().Int("key_count", len(keys)).Msg("refreshed JWKS cache")
	return nil
}

func (c *jwksCache) getPublicKey(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	cacheExpired := time.Since(c.lastFetch) >= c.cacheTTL
	c.mu.RUnlock()

	if cacheExpired {
		if err := c.fetchJWKS(false); err != nil {
			log.Warn().Err(err).Msg("failed to refresh expired JWKS cache, using stale keys")
		}
	}

	c.mu.RLock()
	key, ok := c.keys[kid]
	c.mu.RUnlock()

	if !ok {
		if err := c.fetchJWKS(true); err != nil {
			return nil, fmt.Errorf("failed to fetch JWKS for missing key %s: %w", kid, err)
		}
		c.mu.RLock()
		key, ok = c.keys[kid]
		c.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("key ID %s not found in JWKS even after refresh", kid)
		}
	}

	return key, nil
}

// ValidateToken validates a JWT and returns its subject claim, which the
// caller must be able to parse as a user_id. Supports RS256 (external IdP,
// via JWKS) and HS256 (backend-issued / dev) tokens.
func ValidateToken(tokenString string, cfg JWTCfg) (string, error) {
	if tokenString == "" {
		return "", errors.New("token is empty")
	}
	if cfg.JWKSURL != "" && globalJWKSCache == nil {
		return "", errors.New("JWKS cache not initialized")
	}

	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodRSA:
			if globalJWKSCache == nil {
				return nil, errors.New("JWKS cache not initialized")
			}
			kid, ok := t.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, errors.New("missing kid in token header")
			}
			return globalJWKSCache.getPublicKey(kid)

		case *jwt.SigningMethodHMAC:
			if cfg.HS256Secret == "" {
				return nil, errors.New("HS256 secret not configured")
			}
			return []byte(cfg.HS256Secret), nil

		default:
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
	})
	if err != nil || !t.Valid {
		return "", fmt.Errorf("jwt validation failed: %w", err)
	}

	if cfg.Issuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != cfg.Issuer {
			return "", fmt.Errorf("invalid issuer: expected %s, got %v", cfg.Issuer, claims["iss"])
		}
	}
	if cfg.Audience != "" {
		if !audienceMatches(claims["aud"], cfg.Audience) {
			return "", fmt.Errorf("invalid audience: expected %s, got %v", cfg.Audience, claims["aud"])
		}
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing or invalid sub claim")
	}
	return sub, nil
}

func audienceMatches(aud any, expected string) bool {
	switch v := aud.(type) {
	case string:
		return v == expected
	case []interface{}:
		for _, a := range v {
			if s, ok := a.(string); ok && s == expected {
				return true
			}
		}
	}
	return false
}

// InitJWKSCache initializes the global JWKS cache. A no-op if JWKSURL is
// unset; call once at startup.
func InitJWKSCache(cfg JWTCfg) error {
	if cfg.JWKSURL == "" {
		return nil
	}
	if globalJWKSCache != nil {
		return nil
	}

	globalJWKSCache = &jwksCache{
		keys:       make(map[string]*rsa.PublicKey),
		cacheTTL:   1 * time.Hour,
		jwksURL:    cfg.JWKSURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	if err := globalJWKSCache.fetchJWKS(false); err != nil {
		log.Warn().Err(err).Msg("failed to pre-fetch JWKS (will retry on first request)")
		return err
	}
	log.Info().Str("jwks_url", cfg.JWKSURL).Msg("upstream IdP RS256 validation enabled")
	return nil
}

// Middleware authenticates the request and loads the corresponding active
// user. Unlike a provisioning IdP integration, this core never creates
// users from a bearer token - the subject must already name an existing,
// active app_user (SPEC_FULL.md §6: user creation is an external concern).
func Middleware(st *store.Store, cfg JWTCfg) func(http.Handler) http.Handler {
	_ = InitJWKSCache(cfg)

	if cfg.DevMode {
		log.Warn().Msg("SECURITY WARNING: DevMode enabled - X-Debug-Sub header will bypass JWT authentication")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := ""
			if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
				tok = h[7:]
			}

			sub := ""
			if cfg.DevMode && tok == "" {
				sub = r.Header.Get("X-Debug-Sub")
			}
			if tok != "" {
				var err error
				sub, err = ValidateToken(tok, cfg)
				if err != nil {
					log.Warn().Err(err).Msg("jwt validation failed")
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
			}
			if sub == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			userID, err := uuid.Parse(sub)
			if err != nil {
				log.Warn().Str("sub", sub).Msg("token subject is not a valid user id")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := st.GetActiveUser(r.Context(), st.Pool, userID)
			if err != nil {
				if apperr.KindOf(err) == apperr.Authentication {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				log.Error().Err(err).Msg("failed to load authenticated user")
				http.Error(w, "server error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID extracts the authenticated user id from request context. Returns
// uuid.Nil if absent (should never happen after Middleware).
func UserID(ctx context.Context) uuid.UUID {
	if v := ctx.Value(ctxUserID); v != nil {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
