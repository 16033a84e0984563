package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-secure-stdlib/nonceutil"
)

// State is the opaque payload threaded through the provider's hosted
// authorization flow. It restores the caller's locale after the
// external redirect and, when a nonce service is configured, binds the
// callback to an authorization URL this process issued.
type State struct {
	Locale string `json:"locale"`
	Nonce  string `json:"nonce,omitempty"`
}

// NonceService issues one-time nonces and redeems each at most once.
type NonceService interface {
	Get() (string, error)
	Redeem(nonce string) error
}

type hashicorpNonceService struct {
	nonces nonceutil.NonceService
}

func NewNonceService() (NonceService, error) {
	nonces := nonceutil.NewNonceService()
	if err := nonces.Initialize(); err != nil {
		return nil, fmt.Errorf("unable to initialize nonce service: %w", err)
	}
	return &hashicorpNonceService{nonces}, nil
}

func (s *hashicorpNonceService) Get() (string, error) {
	nonce, _, err := s.nonces.Get()
	if err != nil {
		return "", err
	}
	return nonce, nil
}

func (s *hashicorpNonceService) Redeem(nonce string) error {
	if !s.nonces.Redeem(nonce) {
		return fmt.Errorf("unknown or already redeemed nonce")
	}
	return nil
}

func (s *Service) newState(locale string) (string, error) {
	state := State{Locale: locale}

	if s.nonces != nil {
		nonce, err := s.nonces.Get()
		if err != nil {
			return "", fmt.Errorf("unable to issue state nonce: %w", err)
		}
		state.Nonce = nonce
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("unable to encode state: %w", err)
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

func (s *Service) redeemState(raw string) (State, error) {
	payload, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return State{}, fmt.Errorf("unable to decode state: %w", err)
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return State{}, fmt.Errorf("unable to decode state: %w", err)
	}

	if s.nonces != nil {
		if err := s.nonces.Redeem(state.Nonce); err != nil {
			return State{}, fmt.Errorf("unable to redeem state nonce: %w", err)
		}
	}
	return state, nil
}
