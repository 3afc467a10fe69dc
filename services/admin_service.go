package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/skyhook-logistics/portal/domain"
	flowerrors "github.com/skyhook-logistics/portal/errors"
)

// GrantState is the admin gate's validation state machine:
// Unset -> PendingValidation -> Granted | Denied.
type GrantState string

const (
	GrantUnset   GrantState = "unset"
	GrantPending GrantState = "pending_validation"
	GrantGranted GrantState = "granted"
	GrantDenied  GrantState = "denied"
)

type adminClaims struct {
	jwt.RegisteredClaims
}

// AdminGateService issues and checks short-lived admin-eligibility tokens. A
// token is only ever issued after a server-side check that the character's
// namespace belongs to an application with CanGrantAdmin; a client-supplied
// token alone is never sufficient, callers re-derive eligibility on every
// admin-gated operation.
type AdminGateService struct {
	registry *domain.Registry
	key      []byte
	ttl      time.Duration
}

// NewAdminGateService derives the gate's signing key from the master secret.
func NewAdminGateService(registry *domain.Registry, masterSecret []byte, ttl time.Duration) (*AdminGateService, error) {
	key, err := deriveKey(masterSecret, adminGateKeyInfo)
	if err != nil {
		return nil, err
	}
	return &AdminGateService{registry: registry, key: key, ttl: ttl}, nil
}

// TTL returns the gate token lifetime, used to bound the admin cookie.
func (s *AdminGateService) TTL() time.Duration { return s.ttl }

// RequestGrant validates that the namespace may confer admin privilege and,
// if so, issues a token bound to the character. The returned state is Denied
// with an AdminDenied error when the namespace's application cannot grant
// admin; the character stays authenticated either way.
func (s *AdminGateService) RequestGrant(_ context.Context, namespace string, characterID int64) (string, GrantState, error) {
	app, err := s.registry.AppForNamespace(namespace)
	if err != nil {
		return "", GrantDenied, flowerrors.NewAdminDenied(fmt.Sprintf("no application for namespace %q", namespace))
	}
	if !app.CanGrantAdmin {
		log.Info().
			Str("namespace", namespace).
			Msg("admin grant denied, application is not admin-capable")
		return "", GrantDenied, flowerrors.NewAdminDenied("application cannot grant admin privilege")
	}

	now := time.Now()
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   strconv.FormatInt(characterID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", GrantDenied, fmt.Errorf("failed to sign admin gate token: %w", err)
	}
	return token, GrantGranted, nil
}

// Check reports whether the token is a live grant bound to the expected
// character. It validates signature and expiry only; the caller supplies
// expectedCharacterID from the session's current character in an
// admin-capable namespace, which is the server-side half of the check.
func (s *AdminGateService) Check(token string, expectedCharacterID int64) bool {
	if token == "" || expectedCharacterID == 0 {
		return false
	}

	var claims adminClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithIssuer(sessionIssuer))
	if err != nil || !parsed.Valid {
		return false
	}

	subject, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return false
	}
	return subject == expectedCharacterID
}
