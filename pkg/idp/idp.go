// Package idp is the client for the remote identity provider's user
// management API. All account state lives at the provider; this package
// only moves requests and responses across the wire and surfaces the
// provider's error codes as typed errors.
package idp

import (
	"context"
	"time"
)

type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailVerified bool   `json:"email_verified"`
}

// Authentication is the token pair handed out after any successful
// authentication grant.
type Authentication struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type EmailVerification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PasswordReset struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"password_reset_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Factor is a registered MFA factor of a user.
type Factor struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Challenge is a provider-issued MFA challenge scoped to one factor.
type Challenge struct {
	ID        string    `json:"id"`
	FactorID  string    `json:"authentication_factor_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CreateUserParams struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Client is the capability surface this layer consumes from the identity
// provider. It is injected everywhere so tests can substitute a fake.
type Client interface {
	ClientID() string
	JWKSURL() string
	AuthorizationURL(provider, state string) string

	CreateUser(ctx context.Context, params CreateUserParams) (*User, error)
	AuthenticateWithPassword(ctx context.Context, email, password string) (*Authentication, error)
	AuthenticateWithCode(ctx context.Context, code string) (*Authentication, error)
	AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Authentication, error)
	AuthenticateWithEmailVerification(ctx context.Context, pendingAuthenticationToken, code string) (*Authentication, error)
	AuthenticateWithTOTP(ctx context.Context, pendingAuthenticationToken, challengeID, code string) (*Authentication, error)
	ListUsersByEmail(ctx context.Context, email string) ([]User, error)
	VerifyEmail(ctx context.Context, userID, code string) (*User, error)
	CreatePasswordReset(ctx context.Context, email string) (*PasswordReset, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*User, error)
	RevokeSession(ctx context.Context, sessionID string) error
	GetEmailVerification(ctx context.Context, id string) (*EmailVerification, error)
	CreateMFAChallenge(ctx context.Context, factorID string) (*Challenge, error)
}
