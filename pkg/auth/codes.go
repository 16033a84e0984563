package auth

import (
	"errors"

	"github.com/idlayer/authfront/pkg/idp"
)

// Code is the closed error vocabulary surfaced to callers. No raw
// provider error ever crosses this boundary.
type Code string

const (
	CodePasswordStrengthError        Code = "PASSWORD_STRENGTH_ERROR"
	CodeInvalidCredentials           Code = "INVALID_CREDENTIALS"
	CodeEmailNotFound                Code = "EMAIL_NOT_FOUND"
	CodeEmailAlreadyExists           Code = "EMAIL_ALREADY_EXISTS"
	CodeUserNotFound                 Code = "USER_NOT_FOUND"
	CodeEmailVerificationRequired    Code = "EMAIL_VERIFICATION_REQUIRED"
	CodeInvalidEmailVerificationCode Code = "INVALID_EMAIL_VERIFICATION_CODE"
	CodeInvalidToken                 Code = "INVALID_TOKEN"
	CodeTokenExpired                 Code = "TOKEN_EXPIRED"
	CodeContactAdministrator         Code = "CONTACT_ADMINISTRATOR"
)

// providerCodes maps every provider error code this system is known to
// receive onto the vocabulary above. Codes missing here fall to the
// catch-all; the table is asserted exhaustive in tests.
var providerCodes = map[string]Code{
	idp.ErrorCodePasswordStrength:          CodePasswordStrengthError,
	idp.ErrorCodeInvalidCredentials:        CodeInvalidCredentials,
	idp.ErrorCodeOneTimeCodeIncorrect:      CodeInvalidCredentials,
	idp.ErrorCodeEmailVerificationRequired: CodeEmailVerificationRequired,
	idp.ErrorCodeEmailNotAvailable:         CodeEmailAlreadyExists,
	idp.ErrorCodeEntityNotFound:            CodeUserNotFound,
	idp.ErrorCodeVerificationCodeIncorrect: CodeInvalidEmailVerificationCode,
	idp.ErrorCodeResetTokenNotFound:        CodeInvalidToken,
	idp.ErrorCodeResetTokenExpired:         CodeTokenExpired,
}

// translate maps a provider call failure to the closed vocabulary.
func translate(err error) Code {
	var idpErr *idp.Error
	if errors.As(err, &idpErr) {
		if code, ok := providerCodes[idpErr.Code]; ok {
			return code
		}
		if idpErr.HasFieldCode(idp.ErrorCodeEmailNotAvailable) {
			return CodeEmailAlreadyExists
		}
	}
	return CodeContactAdministrator
}
