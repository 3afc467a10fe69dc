package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skyhook-logistics/portal/cache"
)

// verifierBytes is the entropy of a PKCE verifier. 32 random bytes encode to
// 43 URL-safe characters, the RFC 7636 minimum.
const verifierBytes = 32

const pkceKeyPrefix = "pkce:"

// expiryGrace keeps an entry in the store slightly past its logical expiry so
// a late consume can be reported as Expired rather than NotFound.
const expiryGrace = time.Minute

var (
	ErrChallengeNotFound = errors.New("pkce challenge not found")
	ErrChallengeExpired  = errors.New("pkce challenge expired")
	ErrVerifierMismatch  = errors.New("pkce verifier does not match issued challenge")
)

type storedChallenge struct {
	Verifier  string    `json:"verifier"`
	Challenge string    `json:"challenge"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChallengeService generates PKCE verifier/challenge pairs and keeps the
// verifier for the duration of one login attempt. Entries are keyed by the
// attempt's opaque state id and are strictly single-use.
type ChallengeService struct {
	store cache.FlowStore
	ttl   time.Duration
}

// NewChallengeService creates a new challenge service over the given flow store.
func NewChallengeService(store cache.FlowStore, ttl time.Duration) *ChallengeService {
	return &ChallengeService{store: store, ttl: ttl}
}

// Begin issues a fresh verifier/challenge pair for the attempt and persists
// the verifier until the provider redirects back.
func (s *ChallengeService) Begin(ctx context.Context, attemptID string) (verifier, challenge string, err error) {
	verifier, err = GenerateVerifier()
	if err != nil {
		return "", "", err
	}
	challenge = ChallengeFromVerifier(verifier)

	payload, err := json.Marshal(storedChallenge{
		Verifier:  verifier,
		Challenge: challenge,
		ExpiresAt: time.Now().Add(s.ttl),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal pkce challenge: %w", err)
	}
	if err := s.store.Set(ctx, pkceKeyPrefix+attemptID, payload, s.ttl+expiryGrace); err != nil {
		return "", "", fmt.Errorf("failed to persist pkce challenge: %w", err)
	}
	return verifier, challenge, nil
}

// Consume returns the stored verifier for the attempt. The entry is deleted
// unconditionally, even when the attempt fails downstream, so a verifier can
// never be replayed.
func (s *ChallengeService) Consume(ctx context.Context, attemptID string) (string, error) {
	payload, err := s.store.Consume(ctx, pkceKeyPrefix+attemptID)
	if err != nil {
		if errors.Is(err, cache.ErrEntryNotFound) {
			return "", ErrChallengeNotFound
		}
		return "", fmt.Errorf("failed to load pkce challenge: %w", err)
	}

	var stored storedChallenge
	if err := json.Unmarshal(payload, &stored); err != nil {
		return "", fmt.Errorf("failed to decode pkce challenge: %w", err)
	}
	if time.Now().After(stored.ExpiresAt) {
		return "", ErrChallengeExpired
	}
	if ChallengeFromVerifier(stored.Verifier) != stored.Challenge {
		log.Error().Str("attempt_id", attemptID).Msg("stored pkce verifier does not hash to its challenge")
		return "", ErrVerifierMismatch
	}
	return stored.Verifier, nil
}

// GenerateVerifier produces a cryptographically random, URL-safe verifier.
func GenerateVerifier() (string, error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate pkce verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ChallengeFromVerifier derives the S256 challenge: base64url(SHA-256(verifier)),
// no padding.
func ChallengeFromVerifier(verifier string) string {
	h := sha256.New()
	h.Write([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
