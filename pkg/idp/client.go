package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type Config struct {
	APIURL      string
	ClientID    string
	APIKey      string
	RedirectURI string
}

type restClient struct {
	cfg  Config
	http *http.Client
}

// NewClient returns a Client talking to the provider's REST API.
func NewClient(cfg Config) Client {
	return &restClient{
		cfg:  cfg,
		http: http.DefaultClient,
	}
}

func (c *restClient) ClientID() string {
	return c.cfg.ClientID
}

func (c *restClient) JWKSURL() string {
	return fmt.Sprintf("%s/sso/jwks/%s", c.cfg.APIURL, c.cfg.ClientID)
}

func (c *restClient) AuthorizationURL(provider, state string) string {
	query := url.Values{}
	query.Set("client_id", c.cfg.ClientID)
	query.Set("redirect_uri", c.cfg.RedirectURI)
	query.Set("response_type", "code")
	query.Set("provider", provider)
	query.Set("state", state)

	return fmt.Sprintf("%s/user_management/authorize?%s", c.cfg.APIURL, query.Encode())
}

func (c *restClient) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/user_management/users", params, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// authenticate calls the provider's single authentication endpoint; the
// grant type selects between password, code, refresh token, email
// verification and TOTP grants.
func (c *restClient) authenticate(ctx context.Context, body map[string]string) (*Authentication, error) {
	body["client_id"] = c.cfg.ClientID

	var authn Authentication
	if err := c.do(ctx, http.MethodPost, "/user_management/authenticate", body, &authn); err != nil {
		return nil, err
	}
	return &authn, nil
}

func (c *restClient) AuthenticateWithPassword(ctx context.Context, email, password string) (*Authentication, error) {
	return c.authenticate(ctx, map[string]string{
		"grant_type": "password",
		"email":      email,
		"password":   password,
	})
}

func (c *restClient) AuthenticateWithCode(ctx context.Context, code string) (*Authentication, error) {
	return c.authenticate(ctx, map[string]string{
		"grant_type": "authorization_code",
		"code":       code,
	})
}

func (c *restClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Authentication, error) {
	return c.authenticate(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
}

func (c *restClient) AuthenticateWithEmailVerification(ctx context.Context, pendingAuthenticationToken, code string) (*Authentication, error) {
	return c.authenticate(ctx, map[string]string{
		"grant_type":                   "email_verification:code",
		"pending_authentication_token": pendingAuthenticationToken,
		"code":                         code,
	})
}

func (c *restClient) AuthenticateWithTOTP(ctx context.Context, pendingAuthenticationToken, challengeID, code string) (*Authentication, error) {
	return c.authenticate(ctx, map[string]string{
		"grant_type":                   "mfa:totp",
		"pending_authentication_token": pendingAuthenticationToken,
		"authentication_challenge_id":  challengeID,
		"code":                         code,
	})
}

func (c *restClient) ListUsersByEmail(ctx context.Context, email string) ([]User, error) {
	var page struct {
		Data []User `json:"data"`
	}
	path := "/user_management/users?email=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

func (c *restClient) VerifyEmail(ctx context.Context, userID, code string) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	path := fmt.Sprintf("/user_management/users/%s/email_verification/confirm", url.PathEscape(userID))
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"code": code}, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *restClient) CreatePasswordReset(ctx context.Context, email string) (*PasswordReset, error) {
	var reset PasswordReset
	if err := c.do(ctx, http.MethodPost, "/user_management/password_reset", map[string]string{"email": email}, &reset); err != nil {
		return nil, err
	}
	return &reset, nil
}

func (c *restClient) ResetPassword(ctx context.Context, token, newPassword string) (*User, error) {
	body := map[string]string{
		"token":        token,
		"new_password": newPassword,
	}
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/user_management/password_reset/confirm", body, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *restClient) RevokeSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, "/user_management/sessions/revoke", map[string]string{"session_id": sessionID}, nil)
}

func (c *restClient) GetEmailVerification(ctx context.Context, id string) (*EmailVerification, error) {
	var verification EmailVerification
	path := "/user_management/email_verification/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &verification); err != nil {
		return nil, err
	}
	return &verification, nil
}

func (c *restClient) CreateMFAChallenge(ctx context.Context, factorID string) (*Challenge, error) {
	var challenge Challenge
	path := fmt.Sprintf("/user_management/authentication_factors/%s/challenge", url.PathEscape(factorID))
	if err := c.do(ctx, http.MethodPost, path, nil, &challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (c *restClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("unable to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("unable to call provider: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("unable to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		idpErr := &Error{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, idpErr); err != nil || idpErr.Code == "" && len(idpErr.Errors) == 0 {
			// fall back to the legacy error field some endpoints use
			legacy := struct {
				Code string `json:"error"`
			}{}
			if err := json.Unmarshal(respBody, &legacy); err == nil && legacy.Code != "" {
				idpErr.Code = legacy.Code
			}
		}
		if idpErr.Code == "" && len(idpErr.Errors) == 0 {
			return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, respBody)
		}
		return idpErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unable to decode response: %w", err)
	}
	return nil
}
