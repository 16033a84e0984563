// Package csrf issues and verifies the per-session CSRF token. The
// token lives in its own readable cookie so client scripts can echo it
// back on state-changing requests; the sealed session cookie alone is
// not taken as proof of intent.
package csrf

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	CookieName = "csrfToken"
	// tokenBytes is the entropy of the token before hex encoding.
	tokenBytes = 16

	lifetime = 30 * 24 * time.Hour
)

type Guard struct {
	cookieTemplate *http.Cookie
	// Skipper excludes paths from cookie issuance; nil issues the
	// cookie everywhere.
	Skipper middleware.Skipper
}

func NewGuard(production bool) *Guard {
	return &Guard{
		cookieTemplate: &http.Cookie{
			Name:     CookieName,
			Path:     "/",
			MaxAge:   int(lifetime.Seconds()),
			HttpOnly: false,
			Secure:   production,
			SameSite: http.SameSiteStrictMode,
		},
	}
}

// GenerateToken returns a fresh random token, hex encoded.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("unable to generate csrf token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Ensure issues the CSRF cookie once per session and leaves an existing
// token untouched; the token is stable for the cookie's lifetime.
func (g *Guard) Ensure(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if g.Skipper != nil && g.Skipper(c) {
			return next(c)
		}
		if _, err := c.Cookie(CookieName); err != nil {
			token, err := GenerateToken()
			if err != nil {
				return err
			}
			cookie := *g.cookieTemplate
			cookie.Value = token
			c.SetCookie(&cookie)
		}
		return next(c)
	}
}

// Verify requires the submitted value to match the cookie exactly. A
// missing cookie or empty submission always fails.
func (g *Guard) Verify(submitted string, r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return submitted != "" && submitted == cookie.Value
}
