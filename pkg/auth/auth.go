// Package auth drives the authentication flows against the identity
// provider: sign-up, sign-in, OAuth redirects, MFA, email verification
// and password reset. Every operation is a single request/response
// exchange; the only state carried between steps is what the client
// echoes back (pending authentication token, challenge id), for which
// the provider is the sole authority.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/idlayer/authfront/pkg/idp"
)

// VerificationMailer sends the out-of-band mails triggered by the
// flows. *email.Mailer implements it.
type VerificationMailer interface {
	SendEmailVerification(ctx context.Context, locale, verificationID, pendingAuthenticationToken string) error
	SendPasswordReset(ctx context.Context, locale, email, passwordResetToken string) error
}

type Config struct {
	IDP       idp.Client
	Mailer    VerificationMailer
	Nonces    NonceService
	Providers *ProvidersPolicy
}

type Service struct {
	idp       idp.Client
	mailer    VerificationMailer
	nonces    NonceService
	providers *ProvidersPolicy
}

func NewService(cfg Config) (*Service, error) {
	if cfg.IDP == nil {
		return nil, fmt.Errorf("identity provider client is required")
	}
	if cfg.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}

	providers := cfg.Providers
	if providers == nil {
		providers = DefaultProvidersPolicy()
	}

	return &Service{
		idp:       cfg.IDP,
		mailer:    cfg.Mailer,
		nonces:    cfg.Nonces,
		providers: providers,
	}, nil
}

type SignUpParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Locale    string
}

// SignUp creates the account and immediately authenticates with the
// same credentials. When the provider defers authentication behind
// email verification, the session stays signed out and the
// verification mail goes out instead.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*idp.Authentication, Result) {
	_, err := s.idp.CreateUser(ctx, idp.CreateUserParams{
		Email:     params.Email,
		Password:  params.Password,
		FirstName: params.FirstName,
		LastName:  params.LastName,
	})
	if err != nil {
		return nil, failure(translate(err))
	}

	authn, err := s.idp.AuthenticateWithPassword(ctx, params.Email, params.Password)
	if err != nil {
		return s.authenticationFailure(ctx, params.Locale, err)
	}

	return authn, success()
}

type SignInParams struct {
	Email    string
	Password string
	Locale   string

	// Set when completing an MFA challenge instead of presenting
	// credentials.
	PendingAuthenticationToken string
	AuthenticationChallengeID  string
	Code                       string
}

// SignIn authenticates with credentials, or completes a pending MFA
// challenge when a pending authentication token is supplied.
func (s *Service) SignIn(ctx context.Context, params SignInParams) (*idp.Authentication, Result) {
	var authn *idp.Authentication
	var err error

	if params.PendingAuthenticationToken != "" {
		authn, err = s.idp.AuthenticateWithTOTP(ctx, params.PendingAuthenticationToken, params.AuthenticationChallengeID, params.Code)
	} else {
		authn, err = s.idp.AuthenticateWithPassword(ctx, params.Email, params.Password)
	}
	if err != nil {
		return s.authenticationFailure(ctx, params.Locale, err)
	}

	return authn, success()
}

// authenticationFailure folds provider authentication errors into the
// shared outcomes of sign-up and sign-in: the verification-required
// branch triggers the mail, the MFA branch hands the challenge data
// back to the client, everything else maps through the code table.
func (s *Service) authenticationFailure(ctx context.Context, locale string, err error) (*idp.Authentication, Result) {
	var idpErr *idp.Error
	if !errors.As(err, &idpErr) {
		return nil, failure(CodeContactAdministrator)
	}

	switch idpErr.Code {
	case idp.ErrorCodeEmailVerificationRequired:
		if mailErr := s.mailer.SendEmailVerification(ctx, locale, idpErr.EmailVerificationID, idpErr.PendingAuthenticationToken); mailErr != nil {
			slog.Error("unable to send verification mail", "error", mailErr)
		}
		return nil, failure(CodeEmailVerificationRequired)

	case idp.ErrorCodeMFAChallenge:
		result := Result{
			MFARequired:                true,
			PendingAuthenticationToken: idpErr.PendingAuthenticationToken,
			AuthenticationFactors:      idpErr.AuthenticationFactors,
		}
		// with a single registered factor there is nothing to select;
		// initiate the challenge right away
		if len(idpErr.AuthenticationFactors) == 1 {
			challenge, err := s.idp.CreateMFAChallenge(ctx, idpErr.AuthenticationFactors[0].ID)
			if err != nil {
				return nil, failure(translate(err))
			}
			result.ChallengeID = challenge.ID
		}
		return nil, result
	}

	return nil, failure(translate(err))
}

type VerifyEmailParams struct {
	Email string
	Code  string
	// Token is the pending authentication token from the verification
	// mail; optional.
	Token string
}

// VerifyEmail confirms the address. With a pending authentication token
// it first tries the authenticated path, which also signs the user in;
// if that fails it falls back to verifying directly against the account
// looked up by email.
func (s *Service) VerifyEmail(ctx context.Context, params VerifyEmailParams) (*idp.Authentication, Result) {
	if params.Token != "" {
		authn, err := s.idp.AuthenticateWithEmailVerification(ctx, params.Token, params.Code)
		if err == nil {
			return authn, success()
		}
		slog.Debug("authenticated email verification failed, trying unauthenticated path", "error", err)
	}

	users, err := s.idp.ListUsersByEmail(ctx, params.Email)
	if err != nil {
		return nil, failure(CodeContactAdministrator)
	}
	if len(users) == 0 {
		return nil, failure(CodeEmailNotFound)
	}

	if _, err := s.idp.VerifyEmail(ctx, users[0].ID, params.Code); err != nil {
		code := translate(err)
		if code != CodeInvalidEmailVerificationCode {
			code = CodeContactAdministrator
		}
		return nil, failure(code)
	}
	return nil, success()
}

// ForgotPassword requests a reset token and mails it out. A failed mail
// send is a failure: success here means "the reset mail is on its way".
func (s *Service) ForgotPassword(ctx context.Context, email, locale string) Result {
	reset, err := s.idp.CreatePasswordReset(ctx, email)
	if err != nil {
		return failure(translate(err))
	}

	if err := s.mailer.SendPasswordReset(ctx, locale, email, reset.Token); err != nil {
		slog.Error("unable to send password reset mail", "error", err)
		return failure(CodeContactAdministrator)
	}
	return success()
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) Result {
	if _, err := s.idp.ResetPassword(ctx, token, newPassword); err != nil {
		code := translate(err)
		switch code {
		case CodeInvalidToken, CodeTokenExpired:
			return failure(code)
		}
		return failure(CodeContactAdministrator)
	}
	return success()
}

// SignOut revokes the provider-side session. Revocation failures are
// logged and swallowed: local sign-out must never be blocked by a
// remote failure, so the caller clears the session regardless.
func (s *Service) SignOut(ctx context.Context, sessionID string) Result {
	if sessionID != "" {
		if err := s.idp.RevokeSession(ctx, sessionID); err != nil {
			slog.Warn("unable to revoke provider session", "session_id", sessionID, "error", err)
		}
	}
	return success()
}

// InitMFAChallenge requests a challenge for the chosen factor; the
// returned challenge id completes the sign-in.
func (s *Service) InitMFAChallenge(ctx context.Context, factorID string) Result {
	challenge, err := s.idp.CreateMFAChallenge(ctx, factorID)
	if err != nil {
		return failure(translate(err))
	}

	result := success()
	result.ChallengeID = challenge.ID
	return result
}

// AuthorizationURL builds the redirect to the provider's hosted
// authorization endpoint, with the caller's locale folded into the
// opaque state payload.
func (s *Service) AuthorizationURL(provider, locale string) (string, error) {
	providerID, ok := s.providers.Resolve(provider)
	if !ok {
		return "", fmt.Errorf("unknown oauth provider %q", provider)
	}

	state, err := s.newState(locale)
	if err != nil {
		return "", err
	}
	return s.idp.AuthorizationURL(providerID, state), nil
}

// CallbackResult tells the HTTP layer where to send the browser after
// the provider redirected back. Authentication is non-nil only on
// success.
type CallbackResult struct {
	Authentication *idp.Authentication
	RedirectPath   string
}

// Callback exchanges the authorization code for a token pair. Failures
// never surface as errors; they pick the redirect target instead.
func (s *Service) Callback(ctx context.Context, code, state string) CallbackResult {
	st, err := s.redeemState(state)
	if err != nil {
		slog.Warn("rejecting oauth callback", "error", err)
		return CallbackResult{RedirectPath: signInPath("en", "invalid_state")}
	}
	locale := localeOrDefault(st.Locale)

	if code == "" {
		return CallbackResult{RedirectPath: signInPath(locale, "invalid_request")}
	}

	authn, err := s.idp.AuthenticateWithCode(ctx, code)
	if err == nil {
		return CallbackResult{
			Authentication: authn,
			RedirectPath:   "/" + locale,
		}
	}

	var idpErr *idp.Error
	if errors.As(err, &idpErr) {
		if idpErr.Code == idp.ErrorCodeEmailVerificationRequired {
			if mailErr := s.mailer.SendEmailVerification(ctx, locale, idpErr.EmailVerificationID, idpErr.PendingAuthenticationToken); mailErr != nil {
				slog.Error("unable to send verification mail", "error", mailErr)
			}
			return CallbackResult{
				RedirectPath: fmt.Sprintf("/%s/auth/verify-email?email=%s", locale, url.QueryEscape(idpErr.Email)),
			}
		}
		return CallbackResult{RedirectPath: signInPath(locale, idpErr.Code)}
	}

	slog.Error("unable to exchange authorization code", "error", err)
	return CallbackResult{RedirectPath: signInPath(locale, "unknown_error")}
}

func signInPath(locale, errorCode string) string {
	return fmt.Sprintf("/%s/auth/sign-in?error=%s", locale, url.QueryEscape(errorCode))
}

func localeOrDefault(locale string) string {
	if locale == "" {
		return "en"
	}
	return locale
}
