package idp

import (
	"context"
	"errors"
)

// MockClient is a scriptable Client for tests. Unset operations fail;
// Calls counts invocations per operation.
type MockClient struct {
	Calls map[string]int

	CreateUserFunc                        func(ctx context.Context, params CreateUserParams) (*User, error)
	AuthenticateWithPasswordFunc          func(ctx context.Context, email, password string) (*Authentication, error)
	AuthenticateWithCodeFunc              func(ctx context.Context, code string) (*Authentication, error)
	AuthenticateWithRefreshTokenFunc      func(ctx context.Context, refreshToken string) (*Authentication, error)
	AuthenticateWithEmailVerificationFunc func(ctx context.Context, pendingAuthenticationToken, code string) (*Authentication, error)
	AuthenticateWithTOTPFunc              func(ctx context.Context, pendingAuthenticationToken, challengeID, code string) (*Authentication, error)
	ListUsersByEmailFunc                  func(ctx context.Context, email string) ([]User, error)
	VerifyEmailFunc                       func(ctx context.Context, userID, code string) (*User, error)
	CreatePasswordResetFunc               func(ctx context.Context, email string) (*PasswordReset, error)
	ResetPasswordFunc                     func(ctx context.Context, token, newPassword string) (*User, error)
	RevokeSessionFunc                     func(ctx context.Context, sessionID string) error
	GetEmailVerificationFunc              func(ctx context.Context, id string) (*EmailVerification, error)
	CreateMFAChallengeFunc                func(ctx context.Context, factorID string) (*Challenge, error)
}

var errNotScripted = errors.New("operation not scripted")

func NewMockClient() *MockClient {
	return &MockClient{Calls: map[string]int{}}
}

func (m *MockClient) record(op string) {
	if m.Calls == nil {
		m.Calls = map[string]int{}
	}
	m.Calls[op]++
}

func (m *MockClient) ClientID() string {
	return "client_test"
}

func (m *MockClient) JWKSURL() string {
	return "https://idp.invalid/sso/jwks/client_test"
}

func (m *MockClient) AuthorizationURL(provider, state string) string {
	m.record("AuthorizationURL")
	return "https://idp.invalid/user_management/authorize?provider=" + provider + "&state=" + state
}

func (m *MockClient) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	m.record("CreateUser")
	if m.CreateUserFunc == nil {
		return nil, errNotScripted
	}
	return m.CreateUserFunc(ctx, params)
}

func (m *MockClient) AuthenticateWithPassword(ctx context.Context, email, password string) (*Authentication, error) {
	m.record("AuthenticateWithPassword")
	if m.AuthenticateWithPasswordFunc == nil {
		return nil, errNotScripted
	}
	return m.AuthenticateWithPasswordFunc(ctx, email, password)
}

func (m *MockClient) AuthenticateWithCode(ctx context.Context, code string) (*Authentication, error) {
	m.record("AuthenticateWithCode")
	if m.AuthenticateWithCodeFunc == nil {
		return nil, errNotScripted
	}
	return m.AuthenticateWithCodeFunc(ctx, code)
}

func (m *MockClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Authentication, error) {
	m.record("AuthenticateWithRefreshToken")
	if m.AuthenticateWithRefreshTokenFunc == nil {
		return nil, errNotScripted
	}
	return m.AuthenticateWithRefreshTokenFunc(ctx, refreshToken)
}

func (m *MockClient) AuthenticateWithEmailVerification(ctx context.Context, pendingAuthenticationToken, code string) (*Authentication, error) {
	m.record("AuthenticateWithEmailVerification")
	if m.AuthenticateWithEmailVerificationFunc == nil {
		return nil, errNotScripted
	}
	return m.AuthenticateWithEmailVerificationFunc(ctx, pendingAuthenticationToken, code)
}

func (m *MockClient) AuthenticateWithTOTP(ctx context.Context, pendingAuthenticationToken, challengeID, code string) (*Authentication, error) {
	m.record("AuthenticateWithTOTP")
	if m.AuthenticateWithTOTPFunc == nil {
		return nil, errNotScripted
	}
	return m.AuthenticateWithTOTPFunc(ctx, pendingAuthenticationToken, challengeID, code)
}

func (m *MockClient) ListUsersByEmail(ctx context.Context, email string) ([]User, error) {
	m.record("ListUsersByEmail")
	if m.ListUsersByEmailFunc == nil {
		return nil, errNotScripted
	}
	return m.ListUsersByEmailFunc(ctx, email)
}

func (m *MockClient) VerifyEmail(ctx context.Context, userID, code string) (*User, error) {
	m.record("VerifyEmail")
	if m.VerifyEmailFunc == nil {
		return nil, errNotScripted
	}
	return m.VerifyEmailFunc(ctx, userID, code)
}

func (m *MockClient) CreatePasswordReset(ctx context.Context, email string) (*PasswordReset, error) {
	m.record("CreatePasswordReset")
	if m.CreatePasswordResetFunc == nil {
		return nil, errNotScripted
	}
	return m.CreatePasswordResetFunc(ctx, email)
}

func (m *MockClient) ResetPassword(ctx context.Context, token, newPassword string) (*User, error) {
	m.record("ResetPassword")
	if m.ResetPasswordFunc == nil {
		return nil, errNotScripted
	}
	return m.ResetPasswordFunc(ctx, token, newPassword)
}

func (m *MockClient) RevokeSession(ctx context.Context, sessionID string) error {
	m.record("RevokeSession")
	if m.RevokeSessionFunc == nil {
		return errNotScripted
	}
	return m.RevokeSessionFunc(ctx, sessionID)
}

func (m *MockClient) GetEmailVerification(ctx context.Context, id string) (*EmailVerification, error) {
	m.record("GetEmailVerification")
	if m.GetEmailVerificationFunc == nil {
		return nil, errNotScripted
	}
	return m.GetEmailVerificationFunc(ctx, id)
}

func (m *MockClient) CreateMFAChallenge(ctx context.Context, factorID string) (*Challenge, error) {
	m.record("CreateMFAChallenge")
	if m.CreateMFAChallengeFunc == nil {
		return nil, errNotScripted
	}
	return m.CreateMFAChallengeFunc(ctx, factorID)
}
