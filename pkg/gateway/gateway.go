// Package gateway runs ahead of routing on every request: it loads the
// sealed session, validates the embedded access token and transparently
// refreshes an expired token pair, so downstream handlers never observe
// a session with a known-invalid access token.
package gateway

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/idlayer/authfront/pkg/idp"
	"github.com/idlayer/authfront/pkg/session"
	"github.com/idlayer/authfront/pkg/token"
)

const contextKeySession = "authfront_session"

type Config struct {
	Sessions *session.Store
	Tokens   *token.Validator
	IDP      idp.Client
	// Skipper excludes paths from session handling; defaults to
	// DefaultSkipper.
	Skipper middleware.Skipper
}

// DefaultSkipper excludes webhook endpoints and static assets.
func DefaultSkipper(c echo.Context) bool {
	path := c.Request().URL.Path
	if strings.HasPrefix(path, "/webhooks") {
		return true
	}
	// anything with a dot is a static asset (favicon.ico, app.css, ...)
	return strings.Contains(path, ".")
}

// Middleware wires the session store, token validator and refresher
// into a single pass per request.
func Middleware(cfg Config) echo.MiddlewareFunc {
	skipper := cfg.Skipper
	if skipper == nil {
		skipper = DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}

			ctx := c.Request().Context()
			sess := cfg.Sessions.Load(c.Request())

			if sess.SignedIn() && !cfg.Tokens.IsValid(ctx, sess.Auth.AccessToken) {
				// one refresh attempt per request; the next request
				// retries independently
				authn, err := cfg.IDP.AuthenticateWithRefreshToken(ctx, sess.Auth.RefreshToken)
				if err != nil {
					// transparently signed out rather than left with a
					// dead token pair
					slog.Info("token refresh failed, signing session out", "session_id", sess.ID, "error", err)
					sess.SignOut()
				} else {
					sess.SignIn(session.NewAuth(authn.AccessToken, authn.RefreshToken, authn.User.ID))
				}
				if err := cfg.Sessions.Save(c.Response(), sess); err != nil {
					return err
				}
			}

			c.Set(contextKeySession, sess)
			return next(c)
		}
	}
}

// FromContext returns the session the middleware attached, or an empty
// session on excluded paths.
func FromContext(c echo.Context) *session.Session {
	if sess, ok := c.Get(contextKeySession).(*session.Session); ok {
		return sess
	}
	return &session.Session{}
}
