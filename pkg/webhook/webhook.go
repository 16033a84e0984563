// Package webhook receives event notifications from the identity
// provider. Webhook paths are excluded from the session gateway; the
// HMAC signature over the timestamped body is the only authentication.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const signatureHeader = "Idp-Signature"

// Event is the envelope of a provider notification. The payload is kept
// raw; this layer only acknowledges receipt.
type Event struct {
	ID        string          `json:"id"`
	Name      string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

type Handler struct {
	secret    []byte
	tolerance time.Duration
}

func NewHandler(secret string) *Handler {
	return &Handler{
		secret:    []byte(secret),
		tolerance: 5 * time.Minute,
	}
}

func (h *Handler) MountRoutes(group *echo.Group) {
	group.POST("/idp", h.Receive)
}

func (h *Handler) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to read body")
	}

	if err := h.verifySignature(c.Request().Header.Get(signatureHeader), body); err != nil {
		slog.Warn("rejecting webhook", "error", err, "remote_addr", c.RealIP())
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to decode event")
	}

	slog.Info("received provider event", "id", event.ID, "event", event.Name)
	return c.NoContent(http.StatusOK)
}

// verifySignature checks the "t=<unix ms>, v1=<hex hmac>" header: the
// HMAC-SHA256 of "<timestamp>.<body>" under the shared secret, with the
// timestamp inside the replay tolerance window.
func (h *Handler) verifySignature(header string, body []byte) error {
	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signature = value
		}
	}
	if timestamp == "" || signature == "" {
		return fmt.Errorf("malformed signature header")
	}

	issuedMillis, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed timestamp: %w", err)
	}
	issued := time.UnixMilli(issuedMillis)
	if age := time.Since(issued); age > h.tolerance || age < -h.tolerance {
		return fmt.Errorf("timestamp outside tolerance: %s", issued)
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)

	expected, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("malformed signature: %w", err)
	}
	if !hmac.Equal(mac.Sum(nil), expected) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}
