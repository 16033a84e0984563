package csrf_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/idlayer/authfront/pkg/csrf"
	"github.com/idlayer/authfront/pkg/gateway"
)

func TestGenerateToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := csrf.GenerateToken()
		if err != nil {
			t.Fatal(err)
		}
		if len(tok) != 32 {
			t.Fatalf("expected 32 hex chars, got %d", len(tok))
		}
		if seen[tok] {
			t.Fatal("token repeated")
		}
		seen[tok] = true
	}
}

func TestVerify(t *testing.T) {
	guard := csrf.NewGuard(false)

	tok, err := csrf.GenerateToken()
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: tok})

	if !guard.Verify(tok, r) {
		t.Fatal("expected matching token to verify")
	}
	if guard.Verify("other", r) {
		t.Fatal("expected mismatched token to fail")
	}
	if guard.Verify("", r) {
		t.Fatal("expected empty submission to fail")
	}

	bare := httptest.NewRequest(http.MethodPost, "/", nil)
	if guard.Verify(tok, bare) {
		t.Fatal("expected missing cookie to fail")
	}
}

func TestEnsureIssuesCookieOnce(t *testing.T) {
	guard := csrf.NewGuard(false)
	e := echo.New()

	handler := guard.Ensure(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// no cookie yet: one gets issued
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := handler(c); err != nil {
		t.Fatal(err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	issued := cookies[0]
	if issued.Name != csrf.CookieName {
		t.Fatalf("unexpected cookie name %s", issued.Name)
	}
	if issued.HttpOnly {
		t.Fatal("csrf cookie must be readable by client scripts")
	}
	if issued.SameSite != http.SameSiteStrictMode {
		t.Fatal("csrf cookie must be SameSite=Strict")
	}

	// cookie present: left untouched
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: issued.Value})
	rec = httptest.NewRecorder()
	c = e.NewContext(r, rec)
	if err := handler(c); err != nil {
		t.Fatal(err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("expected existing token to stay stable")
	}
}

func TestEnsureSkipsExcludedPaths(t *testing.T) {
	guard := csrf.NewGuard(false)
	guard.Skipper = gateway.DefaultSkipper
	e := echo.New()

	handler := guard.Ensure(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/webhooks/idp", "/favicon.ico"} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, path, nil), rec)
		if err := handler(c); err != nil {
			t.Fatal(err)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Fatalf("no csrf cookie may be issued on %s", path)
		}
	}
}
