package webhook_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/idlayer/authfront/pkg/webhook"
)

const testSecret = "whsec_test"

func sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func receive(t *testing.T, header string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	r := httptest.NewRequest(http.MethodPost, "/webhooks/idp", strings.NewReader(string(body)))
	if header != "" {
		r.Header.Set("Idp-Signature", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(r, rec)

	err := webhook.NewHandler(testSecret).Receive(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestReceiveValidSignature(t *testing.T) {
	body := []byte(`{"id":"event_1","event":"user.created","data":{},"created_at":"2024-01-01T00:00:00Z"}`)
	timestamp := fmt.Sprint(time.Now().UnixMilli())
	header := fmt.Sprintf("t=%s, v1=%s", timestamp, sign(testSecret, timestamp, body))

	rec := receive(t, header, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
}

func TestReceiveWrongSecret(t *testing.T) {
	body := []byte(`{"id":"event_1","event":"user.created"}`)
	timestamp := fmt.Sprint(time.Now().UnixMilli())
	header := fmt.Sprintf("t=%s, v1=%s", timestamp, sign("whsec_other", timestamp, body))

	rec := receive(t, header, body)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestReceiveTamperedBody(t *testing.T) {
	body := []byte(`{"id":"event_1","event":"user.created"}`)
	timestamp := fmt.Sprint(time.Now().UnixMilli())
	header := fmt.Sprintf("t=%s, v1=%s", timestamp, sign(testSecret, timestamp, body))

	rec := receive(t, header, []byte(`{"id":"event_2","event":"user.deleted"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestReceiveStaleTimestamp(t *testing.T) {
	body := []byte(`{"id":"event_1","event":"user.created"}`)
	timestamp := fmt.Sprint(time.Now().Add(-10 * time.Minute).UnixMilli())
	header := fmt.Sprintf("t=%s, v1=%s", timestamp, sign(testSecret, timestamp, body))

	rec := receive(t, header, body)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestReceiveMissingHeader(t *testing.T) {
	rec := receive(t, "", []byte(`{"id":"event_1"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
