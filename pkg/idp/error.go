package idp

import "fmt"

// Error codes the provider is known to emit. The orchestrator keeps an
// explicit mapping from each of these to its own error vocabulary.
const (
	ErrorCodeInvalidCredentials        = "invalid_credentials"
	ErrorCodeEmailVerificationRequired = "email_verification_required"
	ErrorCodePasswordStrength          = "password_strength_error"
	ErrorCodeEmailNotAvailable         = "email_not_available"
	ErrorCodeEntityNotFound            = "entity_not_found"
	ErrorCodeResetTokenNotFound        = "password_reset_token_not_found"
	ErrorCodeResetTokenExpired         = "password_reset_token_expired"
	ErrorCodeVerificationCodeIncorrect = "email_verification_code_incorrect"
	ErrorCodeOneTimeCodeIncorrect      = "invalid_one_time_code"
	ErrorCodeMFAChallenge              = "mfa_challenge"
)

// FieldError is a per-field validation failure inside a provider error.
type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// Error is the provider's error payload. Besides the code it may carry
// flow state: the pending authentication token and the verification id
// the client needs to continue an interrupted sign-in.
type Error struct {
	Status                     int          `json:"-"`
	Code                       string       `json:"code"`
	Message                    string       `json:"message"`
	Errors                     []FieldError `json:"errors,omitempty"`
	Email                      string       `json:"email,omitempty"`
	EmailVerificationID        string       `json:"email_verification_id,omitempty"`
	PendingAuthenticationToken string       `json:"pending_authentication_token,omitempty"`
	AuthenticationFactors      []Factor     `json:"authentication_factors,omitempty"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// HasFieldCode reports whether any nested field error carries the code.
func (e *Error) HasFieldCode(code string) bool {
	for _, fe := range e.Errors {
		if fe.Code == code {
			return true
		}
	}
	return false
}
