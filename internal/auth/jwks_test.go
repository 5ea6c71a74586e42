package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-board/internal/config"
)

const testKid = "jwk-test-1"

type jwksFixture struct {
	verifier   *JWKSVerifier
	privateKey *rsa.PrivateKey
	cfg        config.StytchConfig
	requests   *int
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/.well-known/jwks.json", r.URL.Path)
		requests++
		publicKey := privateKey.Public().(*rsa.PublicKey)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": testKid,
				"n":   base64.RawURLEncoding.EncodeToString(publicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(publicKey.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(srv.Close)

	cfg := config.StytchConfig{
		ProjectID: "project-test-1",
		Domain:    srv.URL,
	}
	verifier, err := NewJWKSVerifier(cfg, srv.Client())
	require.NoError(t, err)

	return &jwksFixture{verifier: verifier, privateKey: privateKey, cfg: cfg, requests: &requests}
}

func (f *jwksFixture) signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	signed, err := token.SignedString(f.privateKey)
	require.NoError(t, err)
	return signed
}

func (f *jwksFixture) sessionClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "member-1",
		"iss": f.cfg.Issuer(),
		"aud": []string{f.cfg.ProjectID},
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"https://stytch.com/organization": map[string]any{
			"organization_id": "org-1",
		},
		"https://stytch.com/session": map[string]any{
			"id": "session-1",
		},
	}
}

func TestJWKSVerifyValidToken(t *testing.T) {
	f := newJWKSFixture(t)

	identity, err := f.verifier.Verify(context.Background(), f.signToken(t, f.sessionClaims()))
	require.NoError(t, err)
	require.Equal(t, "member-1", identity.MemberID)
	require.Equal(t, "org-1", identity.OrganizationID)
	require.Equal(t, "session-1", identity.SessionID)
}

func TestJWKSVerifyCachesKeys(t *testing.T) {
	f := newJWKSFixture(t)
	ctx := context.Background()

	_, err := f.verifier.Verify(ctx, f.signToken(t, f.sessionClaims()))
	require.NoError(t, err)
	_, err = f.verifier.Verify(ctx, f.signToken(t, f.sessionClaims()))
	require.NoError(t, err)

	require.Equal(t, 1, *f.requests)
}

func TestJWKSVerifyRejections(t *testing.T) {
	f := newJWKSFixture(t)
	ctx := context.Background()

	t.Run("wrong issuer", func(t *testing.T) {
		claims := f.sessionClaims()
		claims["iss"] = "stytch.com/another-project"
		_, err := f.verifier.Verify(ctx, f.signToken(t, claims))
		requireUnauthorized(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := f.sessionClaims()
		claims["aud"] = []string{"someone-else"}
		_, err := f.verifier.Verify(ctx, f.signToken(t, claims))
		requireUnauthorized(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := f.sessionClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		_, err := f.verifier.Verify(ctx, f.signToken(t, claims))
		requireUnauthorized(t, err)
	})

	t.Run("missing organization claim", func(t *testing.T) {
		claims := f.sessionClaims()
		delete(claims, "https://stytch.com/organization")
		_, err := f.verifier.Verify(ctx, f.signToken(t, claims))
		requireUnauthorized(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, f.sessionClaims())
		token.Header["kid"] = testKid
		signed, err := token.SignedString(otherKey)
		require.NoError(t, err)

		_, err = f.verifier.Verify(ctx, signed)
		requireUnauthorized(t, err)
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := f.verifier.Verify(ctx, "not-a-jwt")
		requireUnauthorized(t, err)
	})
}
