// Package email sends the transactional mails of the authentication
// flows through an HTTP mail API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Sender delivers a single rendered mail.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Config struct {
	APIURL string
	APIKey string
}

type httpSender struct {
	cfg  Config
	http *http.Client
}

// NewSender returns a Sender posting to a Plunk-style transactional
// mail API.
func NewSender(cfg Config) Sender {
	return &httpSender{
		cfg:  cfg,
		http: http.DefaultClient,
	}
}

func (s *httpSender) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	if err != nil {
		return fmt.Errorf("unable to encode mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL+"/v1/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("unable to create mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("unable to call mail API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail API returned status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
