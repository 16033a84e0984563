package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/idlayer/authfront/pkg/idp"
)

func TestAuthorizationURL(t *testing.T) {
	client := idp.NewMockClient()
	service := newTestService(t, client, &mockMailer{})

	authzURL, err := service.AuthorizationURL("GoogleOAuth", "de")
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := url.Parse(authzURL)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Query().Get("provider") != "GoogleOAuth" {
		t.Fatalf("unexpected provider in %s", authzURL)
	}

	payload, err := base64.StdEncoding.DecodeString(parsed.Query().Get("state"))
	if err != nil {
		t.Fatal(err)
	}
	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		t.Fatal(err)
	}
	if state.Locale != "de" {
		t.Fatalf("expected locale to ride in the state, got %+v", state)
	}
}

func TestAuthorizationURLUnknownProvider(t *testing.T) {
	service := newTestService(t, idp.NewMockClient(), &mockMailer{})

	if _, err := service.AuthorizationURL("FacebookOAuth", "en"); err == nil {
		t.Fatal("expected error for provider outside the policy")
	}
}

func TestStateNonceRedeemedOnce(t *testing.T) {
	nonces, err := NewNonceService()
	if err != nil {
		t.Fatal(err)
	}
	service, err := NewService(Config{IDP: idp.NewMockClient(), Mailer: &mockMailer{}, Nonces: nonces})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := service.newState("en")
	if err != nil {
		t.Fatal(err)
	}

	state, err := service.redeemState(raw)
	if err != nil {
		t.Fatal(err)
	}
	if state.Locale != "en" || state.Nonce == "" {
		t.Fatalf("unexpected state %+v", state)
	}

	if _, err := service.redeemState(raw); err == nil {
		t.Fatal("expected second redemption to fail")
	}
}

func TestCallbackSuccess(t *testing.T) {
	client := idp.NewMockClient()
	client.AuthenticateWithCodeFunc = func(ctx context.Context, code string) (*idp.Authentication, error) {
		if code != "authz_code" {
			t.Fatalf("unexpected code %s", code)
		}
		return testAuthentication(), nil
	}

	service := newTestService(t, client, &mockMailer{})
	state, err := service.newState("de")
	if err != nil {
		t.Fatal(err)
	}

	result := service.Callback(context.Background(), "authz_code", state)
	if result.Authentication == nil {
		t.Fatalf("expected authentication, got %+v", result)
	}
	if result.RedirectPath != "/de" {
		t.Fatalf("expected locale home redirect, got %s", result.RedirectPath)
	}
}

func TestCallbackInvalidState(t *testing.T) {
	client := idp.NewMockClient()
	service := newTestService(t, client, &mockMailer{})

	result := service.Callback(context.Background(), "authz_code", "%%%not-base64%%%")
	if result.Authentication != nil {
		t.Fatal("must not authenticate with a bad state")
	}
	if result.RedirectPath != "/en/auth/sign-in?error=invalid_state" {
		t.Fatalf("unexpected redirect %s", result.RedirectPath)
	}
	if client.Calls["AuthenticateWithCode"] != 0 {
		t.Fatal("code exchange must not run with a bad state")
	}
}

func TestCallbackMissingCode(t *testing.T) {
	service := newTestService(t, idp.NewMockClient(), &mockMailer{})
	state, err := service.newState("de")
	if err != nil {
		t.Fatal(err)
	}

	result := service.Callback(context.Background(), "", state)
	if result.RedirectPath != "/de/auth/sign-in?error=invalid_request" {
		t.Fatalf("unexpected redirect %s", result.RedirectPath)
	}
}

func TestCallbackVerificationRequired(t *testing.T) {
	client := idp.NewMockClient()
	client.AuthenticateWithCodeFunc = func(ctx context.Context, code string) (*idp.Authentication, error) {
		return nil, &idp.Error{
			Code:                       idp.ErrorCodeEmailVerificationRequired,
			Email:                      "a@x.com",
			EmailVerificationID:        "verification_1",
			PendingAuthenticationToken: "pending_1",
		}
	}

	mailer := &mockMailer{}
	service := newTestService(t, client, mailer)
	state, err := service.newState("de")
	if err != nil {
		t.Fatal(err)
	}

	result := service.Callback(context.Background(), "authz_code", state)
	if result.Authentication != nil {
		t.Fatal("authentication is deferred until verification completes")
	}
	if !strings.HasPrefix(result.RedirectPath, "/de/auth/verify-email?email=") {
		t.Fatalf("unexpected redirect %s", result.RedirectPath)
	}
	if mailer.verificationSends != 1 {
		t.Fatalf("expected one verification mail, got %d", mailer.verificationSends)
	}
}

func TestCallbackProviderError(t *testing.T) {
	client := idp.NewMockClient()
	client.AuthenticateWithCodeFunc = func(ctx context.Context, code string) (*idp.Authentication, error) {
		return nil, &idp.Error{Code: idp.ErrorCodeInvalidCredentials}
	}

	service := newTestService(t, client, &mockMailer{})
	state, err := service.newState("en")
	if err != nil {
		t.Fatal(err)
	}

	result := service.Callback(context.Background(), "authz_code", state)
	if result.RedirectPath != "/en/auth/sign-in?error=invalid_credentials" {
		t.Fatalf("unexpected redirect %s", result.RedirectPath)
	}
}

func TestProvidersPolicyResolve(t *testing.T) {
	policy := DefaultProvidersPolicy()

	if _, ok := policy.Resolve("GoogleOAuth"); !ok {
		t.Fatal("expected GoogleOAuth in the default policy")
	}
	if _, ok := policy.Resolve("MicrosoftOAuth"); !ok {
		t.Fatal("expected MicrosoftOAuth in the default policy")
	}
	if _, ok := policy.Resolve("GithubOAuth"); ok {
		t.Fatal("unexpected provider resolved")
	}
}
