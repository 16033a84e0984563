package auth

import "github.com/idlayer/authfront/pkg/idp"

// Result is the uniform outcome of every orchestrator operation: a
// success marker or exactly one error code, never both. The optional
// fields carry the flow state the client must echo on the next step.
type Result struct {
	Success bool `json:"success"`
	Error   Code `json:"error,omitempty"`

	// MFA challenge data; set when a password sign-in needs a second
	// factor. Not an error: the closed vocabulary does not apply.
	MFARequired                bool         `json:"mfaRequired,omitempty"`
	PendingAuthenticationToken string       `json:"pendingAuthenticationToken,omitempty"`
	AuthenticationFactors      []idp.Factor `json:"authenticationFactors,omitempty"`
	ChallengeID                string       `json:"challengeId,omitempty"`
}

func success() Result {
	return Result{Success: true}
}

func failure(code Code) Result {
	return Result{Success: false, Error: code}
}
