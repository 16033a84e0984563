// Package token verifies bearer access tokens against the identity
// provider's published key set.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Validator checks token signatures and time claims against a cached
// remote JWKS. The cache is process-wide and safe for concurrent use;
// the key set is fetched lazily on first validation.
type Validator struct {
	jwksURL  string
	keyCache *jwk.Cache
}

func NewValidator(ctx context.Context, jwksURL string) (*Validator, error) {
	keyCache := jwk.NewCache(ctx)
	if err := keyCache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("unable to register key set %s: %w", jwksURL, err)
	}

	return &Validator{
		jwksURL:  jwksURL,
		keyCache: keyCache,
	}, nil
}

// IsValid reports whether the access token carries a good signature and
// unexpired time claims. Every failure mode collapses to false; callers
// observe an invalid token only as "needs refresh".
func (v *Validator) IsValid(ctx context.Context, accessToken string) bool {
	_, err := v.Parse(ctx, accessToken)
	return err == nil
}

// Parse verifies and returns the token so callers can read its claims,
// e.g. the sid claim needed to revoke the provider-side session.
func (v *Validator) Parse(ctx context.Context, accessToken string) (jwt.Token, error) {
	keySet, err := v.keyCache.Get(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("unable to get key set: %w", err)
	}

	tok, err := jwt.Parse(
		[]byte(accessToken),
		jwt.WithKeySet(keySet, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(true),
		jwt.WithRequiredClaim("exp"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to parse access token: %w", err)
	}
	return tok, nil
}

// SessionID extracts the provider session id claim from a verified
// token, or "" when absent.
func SessionID(tok jwt.Token) string {
	if sid, ok := tok.Get("sid"); ok {
		if s, ok := sid.(string); ok {
			return s
		}
	}
	return ""
}
