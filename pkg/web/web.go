// Package web binds the HTTP form endpoints to the orchestrator. Every
// handler answers with the uniform auth result so the presentation
// layer can map error codes to localized messages.
package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/idlayer/authfront/pkg/auth"
	"github.com/idlayer/authfront/pkg/csrf"
	"github.com/idlayer/authfront/pkg/gateway"
	"github.com/idlayer/authfront/pkg/idp"
	"github.com/idlayer/authfront/pkg/session"
	"github.com/idlayer/authfront/pkg/token"
)

type Handler struct {
	Auth     *auth.Service
	Sessions *session.Store
	CSRF     *csrf.Guard
	Tokens   *token.Validator
}

func (h *Handler) MountRoutes(group *echo.Group) {
	group.POST("/sign-up", h.SignUp)
	group.POST("/sign-in", h.SignIn)
	group.POST("/verify-email", h.VerifyEmail)
	group.POST("/forgot-password", h.ForgotPassword)
	group.POST("/reset-password", h.ResetPassword)
	group.POST("/sign-out", h.SignOut)
	group.POST("/mfa/challenge", h.InitMFAChallenge)
	group.GET("/oauth/:provider", h.OAuthRedirect)
	group.GET("/callback", h.Callback)
}

// signIn populates the session with a fresh token pair and reseals the
// cookie before the response body is written.
func (h *Handler) signIn(c echo.Context, authn *idp.Authentication) error {
	sess := gateway.FromContext(c)
	sess.SignIn(session.NewAuth(authn.AccessToken, authn.RefreshToken, authn.User.ID))
	return h.Sessions.Save(c.Response(), sess)
}

type signUpRequest struct {
	Email     string `form:"email" validate:"required,email"`
	Password  string `form:"password" validate:"required,min=8"`
	FirstName string `form:"firstName" validate:"required"`
	LastName  string `form:"lastName" validate:"required"`
	Locale    string `form:"locale"`
}

func (h *Handler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	authn, result := h.Auth.SignUp(c.Request().Context(), auth.SignUpParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Locale:    req.Locale,
	})
	if authn != nil {
		if err := h.signIn(c, authn); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, result)
}

type signInRequest struct {
	Email    string `form:"email" validate:"omitempty,email"`
	Password string `form:"password"`
	Locale   string `form:"locale"`

	PendingAuthenticationToken string `form:"pendingAuthenticationToken"`
	AuthenticationChallengeID  string `form:"authenticationChallengeId"`
	Code                       string `form:"code"`
}

func (h *Handler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	authn, result := h.Auth.SignIn(c.Request().Context(), auth.SignInParams{
		Email:                      req.Email,
		Password:                   req.Password,
		Locale:                     req.Locale,
		PendingAuthenticationToken: req.PendingAuthenticationToken,
		AuthenticationChallengeID:  req.AuthenticationChallengeID,
		Code:                       req.Code,
	})
	if authn != nil {
		if err := h.signIn(c, authn); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, result)
}

type verifyEmailRequest struct {
	Email string `form:"email" validate:"required"`
	Code  string `form:"code" validate:"required,min=6"`
	Token string `form:"token"`
}

func (h *Handler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	authn, result := h.Auth.VerifyEmail(c.Request().Context(), auth.VerifyEmailParams{
		Email: req.Email,
		Code:  req.Code,
		Token: req.Token,
	})
	if authn != nil {
		if err := h.signIn(c, authn); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, result)
}

type forgotPasswordRequest struct {
	Email  string `form:"email" validate:"required,email"`
	Locale string `form:"locale"`
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result := h.Auth.ForgotPassword(c.Request().Context(), req.Email, req.Locale)
	return c.JSON(http.StatusOK, result)
}

type resetPasswordRequest struct {
	NewPassword string `form:"newPassword" validate:"required,min=8"`
	Token       string `form:"token" validate:"required"`
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result := h.Auth.ResetPassword(c.Request().Context(), req.Token, req.NewPassword)
	return c.JSON(http.StatusOK, result)
}

// SignOut is the one endpoint where the session cookie alone is not
// proof of intent; the CSRF token must match before anything happens.
func (h *Handler) SignOut(c echo.Context) error {
	if !h.CSRF.Verify(c.FormValue("csrfToken"), c.Request()) {
		return echo.NewHTTPError(http.StatusForbidden, "invalid csrf token")
	}

	ctx := c.Request().Context()
	sess := gateway.FromContext(c)

	var sessionID string
	if sess.SignedIn() {
		if tok, err := h.Tokens.Parse(ctx, sess.Auth.AccessToken); err == nil {
			sessionID = token.SessionID(tok)
		}
	}

	result := h.Auth.SignOut(ctx, sessionID)

	// clear locally even when revocation failed upstream
	sess.SignOut()
	if err := h.Sessions.Save(c.Response(), sess); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type mfaChallengeRequest struct {
	AuthenticationFactorID string `form:"authenticationFactorId" validate:"required"`
}

func (h *Handler) InitMFAChallenge(c echo.Context) error {
	var req mfaChallengeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result := h.Auth.InitMFAChallenge(c.Request().Context(), req.AuthenticationFactorID)
	return c.JSON(http.StatusOK, result)
}

// OAuthRedirect sends the browser to the provider's hosted
// authorization endpoint. It never fails into the result vocabulary; a
// bad provider name is a plain request error.
func (h *Handler) OAuthRedirect(c echo.Context) error {
	authURL, err := h.Auth.AuthorizationURL(c.Param("provider"), c.QueryParam("locale"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) Callback(c echo.Context) error {
	result := h.Auth.Callback(c.Request().Context(), c.QueryParam("code"), c.QueryParam("state"))

	if result.Authentication != nil {
		if err := h.signIn(c, result.Authentication); err != nil {
			return err
		}
	}
	return c.Redirect(http.StatusFound, result.RedirectPath)
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}
