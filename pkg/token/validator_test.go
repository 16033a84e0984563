package token_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/idlayer/authfront/pkg/token"
)

type testKeys struct {
	private jwk.Key
	jwksURL string
}

func newTestKeys(t *testing.T) *testKeys {
	t.Helper()

	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	private, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatal(err)
	}
	private.Set(jwk.KeyIDKey, "test-key")
	private.Set(jwk.AlgorithmKey, jwa.ES256)

	public, err := private.PublicKey()
	if err != nil {
		t.Fatal(err)
	}
	set := jwk.NewSet()
	set.AddKey(public)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(server.Close)

	return &testKeys{private: private, jwksURL: server.URL}
}

func (k *testKeys) signToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	tok, err := jwt.NewBuilder().
		Subject("user_123").
		Claim("sid", "session_abc").
		IssuedAt(time.Now()).
		Expiration(expiresAt).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256, k.private))
	if err != nil {
		t.Fatal(err)
	}
	return string(signed)
}

func TestIsValid(t *testing.T) {
	keys := newTestKeys(t)
	validator, err := token.NewValidator(context.Background(), keys.jwksURL)
	if err != nil {
		t.Fatal(err)
	}

	accessToken := keys.signToken(t, time.Now().Add(time.Hour))
	if !validator.IsValid(context.Background(), accessToken) {
		t.Fatal("expected valid token to verify")
	}
}

func TestIsValidExpired(t *testing.T) {
	keys := newTestKeys(t)
	validator, err := token.NewValidator(context.Background(), keys.jwksURL)
	if err != nil {
		t.Fatal(err)
	}

	accessToken := keys.signToken(t, time.Now().Add(-time.Minute))
	if validator.IsValid(context.Background(), accessToken) {
		t.Fatal("expected expired token to fail")
	}
}

func TestIsValidTamperedSignature(t *testing.T) {
	keys := newTestKeys(t)
	validator, err := token.NewValidator(context.Background(), keys.jwksURL)
	if err != nil {
		t.Fatal(err)
	}

	accessToken := keys.signToken(t, time.Now().Add(time.Hour))
	lastDot := strings.LastIndex(accessToken, ".")

	// every single-byte mutation of the signature must invalidate it
	for i := lastDot + 1; i < len(accessToken); i++ {
		mutated := []byte(accessToken)
		mutated[i] ^= 0x01
		if validator.IsValid(context.Background(), string(mutated)) {
			t.Fatalf("token with signature byte %d mutated was accepted", i-lastDot-1)
		}
	}
}

func TestIsValidMalformed(t *testing.T) {
	keys := newTestKeys(t)
	validator, err := token.NewValidator(context.Background(), keys.jwksURL)
	if err != nil {
		t.Fatal(err)
	}

	for _, accessToken := range []string{"", "garbage", "a.b.c"} {
		if validator.IsValid(context.Background(), accessToken) {
			t.Fatalf("malformed token %q was accepted", accessToken)
		}
	}
}

func TestIsValidKeySetUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	validator, err := token.NewValidator(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}

	keys := newTestKeys(t)
	accessToken := keys.signToken(t, time.Now().Add(time.Hour))
	if validator.IsValid(context.Background(), accessToken) {
		t.Fatal("expected validation to fail when the key set cannot be fetched")
	}
}

func TestSessionIDClaim(t *testing.T) {
	keys := newTestKeys(t)
	validator, err := token.NewValidator(context.Background(), keys.jwksURL)
	if err != nil {
		t.Fatal(err)
	}

	tok, err := validator.Parse(context.Background(), keys.signToken(t, time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if sid := token.SessionID(tok); sid != "session_abc" {
		t.Fatalf("expected sid claim session_abc, got %q", sid)
	}
}
