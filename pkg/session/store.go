package session

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwe"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/segmentio/ksuid"
)

const Lifetime = 30 * 24 * time.Hour

type Config struct {
	// CookieName defaults to "session".
	CookieName string
	// Secret is base64 and must decode to at least 64 bytes; the first
	// half signs the payload, the second half encrypts it.
	Secret string
	// Production switches the Secure cookie attribute on.
	Production bool
}

// Store seals sessions into a tamper-evident cookie: CBOR payload,
// signed with HS256, then encrypted with direct-key A256GCM.
type Store struct {
	cookieTemplate *http.Cookie
	signKey        []byte
	encryptKey     []byte
}

func NewStore(cfg Config) (*Store, error) {
	secret, err := base64.StdEncoding.DecodeString(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("unable to decode session secret: %w", err)
	}
	if len(secret) < 64 {
		return nil, fmt.Errorf("session secret too short: need 64 bytes, got %d", len(secret))
	}

	name := cfg.CookieName
	if name == "" {
		name = "session"
	}

	return &Store{
		cookieTemplate: &http.Cookie{
			Name:     name,
			Path:     "/",
			MaxAge:   int(Lifetime.Seconds()),
			HttpOnly: true,
			Secure:   cfg.Production,
			SameSite: http.SameSiteLaxMode,
		},
		signKey:    secret[:32],
		encryptKey: secret[32:64],
	}, nil
}

// Load reconstructs the session from the request cookie. A missing,
// corrupt or unverifiable cookie yields an empty signed-out session;
// the client never sees an error for a bad cookie.
func (s *Store) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(s.cookieTemplate.Name)
	if err != nil {
		return &Session{}
	}

	session, err := s.unseal([]byte(cookie.Value))
	if err != nil {
		slog.Debug("discarding unreadable session cookie", "error", err)
		return &Session{}
	}
	return session
}

// Save seals the session and writes it to the response, refreshing the
// cookie's absolute lifetime.
func (s *Store) Save(w http.ResponseWriter, session *Session) error {
	if session.ID == "" {
		session.ID = ksuid.New().String()
	}

	sealed, err := s.seal(session)
	if err != nil {
		return fmt.Errorf("unable to seal session: %w", err)
	}

	cookie := *s.cookieTemplate
	cookie.Value = string(sealed)
	http.SetCookie(w, &cookie)
	return nil
}

func (s *Store) seal(session *Session) ([]byte, error) {
	payload, err := cbor.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("unable to encode session: %w", err)
	}

	signed, err := jws.Sign(payload, jws.WithKey(jwa.HS256, s.signKey))
	if err != nil {
		return nil, fmt.Errorf("unable to sign session: %w", err)
	}

	encrypted, err := jwe.Encrypt(signed, jwe.WithContentEncryption(jwa.A256GCM), jwe.WithKey(jwa.DIRECT, s.encryptKey))
	if err != nil {
		return nil, fmt.Errorf("unable to encrypt session: %w", err)
	}

	return encrypted, nil
}

func (s *Store) unseal(sealed []byte) (*Session, error) {
	signed, err := jwe.Decrypt(sealed, jwe.WithKey(jwa.DIRECT, s.encryptKey))
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt session: %w", err)
	}

	payload, err := jws.Verify(signed, jws.WithKey(jwa.HS256, s.signKey))
	if err != nil {
		return nil, fmt.Errorf("unable to verify session signature: %w", err)
	}

	var session Session
	if err := cbor.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unable to decode session: %w", err)
	}
	return &session, nil
}
