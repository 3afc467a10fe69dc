package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/skyhook-logistics/portal/domain"
)

const sessionIssuer = "skyhook-portal"

type sessionClaims struct {
	Namespaces map[string]*domain.NamespaceSession `json:"ns,omitempty"`
	jwt.RegisteredClaims
}

// SessionService serializes the multi-namespace character session into one
// compact, tamper-evident token and back. All mutations are pure transforms:
// decode, mutate a request-owned copy, re-encode. No lock is needed because
// no two requests share a session value.
type SessionService struct {
	key []byte
	ttl time.Duration
}

// NewSessionService derives the session signing key from the master secret.
func NewSessionService(masterSecret []byte, ttl time.Duration) (*SessionService, error) {
	key, err := deriveKey(masterSecret, sessionKeyInfo)
	if err != nil {
		return nil, err
	}
	return &SessionService{key: key, ttl: ttl}, nil
}

// Decode parses a session token. Any invalid, expired, or tampered token
// yields an empty session: the portal fails open to logged-out, never to an
// assumed identity.
func (s *SessionService) Decode(token string) *domain.CharacterSession {
	session := domain.NewCharacterSession()
	if token == "" {
		return session
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithIssuer(sessionIssuer))
	if err != nil || !parsed.Valid {
		log.Debug().Err(err).Msg("session token rejected, treating as logged out")
		return session
	}

	for ns, nsSession := range claims.Namespaces {
		if nsSession != nil {
			session.Namespaces[ns] = nsSession
		}
	}
	return session
}

// Encode signs the session into a compact token.
func (s *SessionService) Encode(session *domain.CharacterSession) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Namespaces: session.Namespaces,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Upsert adds or replaces the character in its app namespace and returns the
// re-encoded token. Other namespaces are untouched.
func (s *SessionService) Upsert(token, namespace string, ch domain.Character) (string, error) {
	session := s.Decode(token)
	session.Upsert(namespace, ch)
	return s.Encode(session)
}

// Current returns the namespace's current character from the token.
func (s *SessionService) Current(token, namespace string) (domain.Character, bool) {
	return s.Decode(token).Current(namespace)
}

// SetCurrent switches the namespace's current character and returns the
// re-encoded token. domain.ErrCharacterNotFound when the character is not in
// the namespace.
func (s *SessionService) SetCurrent(token, namespace string, characterID int64) (string, error) {
	session := s.Decode(token)
	if err := session.SetCurrent(namespace, characterID); err != nil {
		return "", err
	}
	return s.Encode(session)
}

// Remove drops one character from the namespace and returns the re-encoded
// token.
func (s *SessionService) Remove(token, namespace string, characterID int64) (string, error) {
	session := s.Decode(token)
	session.Remove(namespace, characterID)
	return s.Encode(session)
}

// ClearNamespace logs out one namespace, leaving the others intact.
func (s *SessionService) ClearNamespace(token, namespace string) (string, error) {
	session := s.Decode(token)
	session.Clear(namespace)
	return s.Encode(session)
}
