package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/ticket-board/internal/config"
	apperrors "github.com/spec-kit/ticket-board/pkg/util"
)

const jwksCacheTTL = time.Hour

// JWKSVerifier verifies RS256 session JWTs locally against the provider's
// published signing keys, checking issuer and audience. No provider round
// trip happens on the hot path once keys are cached.
type JWKSVerifier struct {
	jwksURL    string
	issuer     string
	audience   string
	httpClient *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

// NewJWKSVerifier builds a verifier from config. A nil httpClient gets a
// sensible default timeout.
func NewJWKSVerifier(cfg config.StytchConfig, httpClient *http.Client) (*JWKSVerifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("stytch project id required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSVerifier{
		jwksURL:    cfg.JWKSURL(),
		issuer:     cfg.Issuer(),
		audience:   cfg.ProjectID,
		httpClient: httpClient,
	}, nil
}

type sessionClaims struct {
	Organization struct {
		OrganizationID string `json:"organization_id"`
	} `json:"https://stytch.com/organization"`
	Session struct {
		ID string `json:"id"`
	} `json:"https://stytch.com/session"`
	jwt.RegisteredClaims
}

// Verify parses and validates a session JWT. Signature, issuer, audience
// and expiry are all enforced; a token without an organization claim is
// rejected even when otherwise valid.
func (v *JWKSVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.signingKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)
	if err != nil || !parsed.Valid {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	if claims.Organization.OrganizationID == "" {
		return nil, apperrors.NewUnauthorized("organization undeterminable")
	}
	return &Identity{
		MemberID:       claims.Subject,
		OrganizationID: claims.Organization.OrganizationID,
		SessionID:      claims.Session.ID,
	}, nil
}

// signingKey returns the cached key for kid, refreshing from the JWKS
// endpoint when the cache is cold, expired, or does not know the kid.
func (v *JWKSVerifier) signingKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Now().Before(v.expiresAt)
	v.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	keys, err := v.fetchKeys(ctx)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.keys = keys
	v.expiresAt = time.Now().Add(jwksCacheTTL)
	v.mu.Unlock()

	key, ok = keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func (v *JWKSVerifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks request failed: %s", resp.Status)
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
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, jwk := range doc.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		key, err := parseRSAKey(jwk.N, jwk.E)
		if err != nil {
			continue
		}
		keys[jwk.Kid] = key
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks contained no usable keys")
	}
	return keys, nil
}

func parseRSAKey(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
