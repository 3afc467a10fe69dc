package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a login-attempt failure. Every failure surfaced by the
// orchestration layer carries exactly one kind.
type Kind string

const (
	// KindInvalidState covers missing or expired redirect state and PKCE
	// material, and state-parameter mismatches. Terminal for the attempt.
	KindInvalidState Kind = "invalid_state"
	// KindUpstreamAuth means the provider rejected the code or the client
	// credentials (400/401/access_denied). Terminal for the attempt.
	KindUpstreamAuth Kind = "upstream_auth"
	// KindNetwork is a transient transport failure; the whole attempt may be
	// restarted but a consumed code or verifier is never resubmitted.
	KindNetwork Kind = "network"
	// KindMalformedIdentity means the provider's identity payload is missing
	// required fields. A data-contract violation, logged, never stored.
	KindMalformedIdentity Kind = "malformed_identity"
	// KindSessionDecode marks a tampered or corrupt session token. Treated as
	// "no session", never as an assumed identity.
	KindSessionDecode Kind = "session_decode"
	// KindAdminDenied means the character authenticated fine but is not
	// eligible for admin. Distinct from "not logged in".
	KindAdminDenied Kind = "admin_denied"
)

// FlowError is a classified failure of one login attempt.
type FlowError struct {
	Kind        Kind
	Description string
	Status      int // upstream HTTP status, when one was observed
	Err         error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

func (e *FlowError) Unwrap() error { return e.Err }

func NewInvalidState(description string) *FlowError {
	return &FlowError{Kind: KindInvalidState, Description: description}
}

func NewUpstreamAuth(status int, description string) *FlowError {
	return &FlowError{Kind: KindUpstreamAuth, Status: status, Description: description}
}

func NewNetwork(description string, err error) *FlowError {
	return &FlowError{Kind: KindNetwork, Description: description, Err: err}
}

func NewMalformedIdentity(description string) *FlowError {
	return &FlowError{Kind: KindMalformedIdentity, Description: description}
}

func NewSessionDecode(err error) *FlowError {
	return &FlowError{Kind: KindSessionDecode, Description: "session token rejected", Err: err}
}

func NewAdminDenied(description string) *FlowError {
	return &FlowError{Kind: KindAdminDenied, Description: description}
}

// KindOf extracts the failure kind from an error chain. Unclassified errors
// report an empty kind.
func KindOf(err error) Kind {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether the error chain carries a FlowError of the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
