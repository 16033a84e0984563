// Package session keeps per-browser authentication state in a sealed
// cookie. The cookie is the only place this state lives; there is no
// server-side session table.
package session

import (
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Auth is the token pair of a signed-in session. It is either fully
// populated or absent, never partial.
type Auth struct {
	AccessToken  string `cbor:"at"`
	RefreshToken string `cbor:"rt"`
	UserID       string `cbor:"sub"`
	ExpiresAt    int64  `cbor:"exp"`
}

// NewAuth builds an Auth record from a freshly issued token pair. The
// expiry is lifted from the access token's exp claim; signature
// verification is the validator's job, not ours.
func NewAuth(accessToken, refreshToken, userID string) *Auth {
	auth := &Auth{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       userID,
	}
	if tok, err := jwt.ParseInsecure([]byte(accessToken)); err == nil {
		auth.ExpiresAt = tok.Expiration().Unix()
	}
	return auth
}

type Session struct {
	// ID is minted on first save and only used for log correlation.
	ID   string `cbor:"id"`
	Auth *Auth  `cbor:"auth,omitempty"`
}

func (s *Session) SignedIn() bool {
	return s.Auth != nil
}

func (s *Session) SignIn(auth *Auth) {
	s.Auth = auth
}

func (s *Session) SignOut() {
	s.Auth = nil
}
