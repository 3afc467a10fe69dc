package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skyhook-logistics/portal/domain"
	flowerrors "github.com/skyhook-logistics/portal/errors"
)

// IdentityService resolves the authenticated principal's canonical identity
// from an access token: the provider's verify endpoint yields character id
// and name, the affiliation endpoint yields corporation and alliance.
// Affiliation is re-resolved on every login rather than trusted from a
// previous session.
type IdentityService struct {
	verifyURL      string
	affiliationURL string
	httpClient     *http.Client
	timeout        time.Duration
}

// NewIdentityService creates the resolver against the given provider endpoints.
func NewIdentityService(verifyURL, affiliationURL string, timeout time.Duration) *IdentityService {
	return &IdentityService{
		verifyURL:      verifyURL,
		affiliationURL: affiliationURL,
		httpClient:     &http.Client{Timeout: timeout},
		timeout:        timeout,
	}
}

type verifyResponse struct {
	CharacterID   int64  `json:"CharacterID"`
	CharacterName string `json:"CharacterName"`
}

type affiliationEntry struct {
	CharacterID   int64 `json:"character_id"`
	CorporationID int64 `json:"corporation_id"`
	AllianceID    int64 `json:"alliance_id"`
}

// Resolve fetches the identity behind the token set. A transport failure and
// a malformed payload are distinct errors; both are terminal for the attempt
// and no partial Character is ever returned.
func (s *IdentityService) Resolve(ctx context.Context, tokens *domain.TokenSet) (*domain.Character, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	identity, err := s.verify(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	affiliation, err := s.affiliation(ctx, identity.CharacterID)
	if err != nil {
		return nil, err
	}

	return &domain.Character{
		CharacterID:   identity.CharacterID,
		Name:          identity.CharacterName,
		CorporationID: affiliation.CorporationID,
		AllianceID:    affiliation.AllianceID,
		RefreshToken:  tokens.RefreshToken,
	}, nil
}

func (s *IdentityService) verify(ctx context.Context, accessToken string) (*verifyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.verifyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, flowerrors.NewNetwork("identity fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, upstreamBodyLimit))
		return nil, flowerrors.NewNetwork(
			fmt.Sprintf("verify endpoint returned status %d: %s", resp.StatusCode, body), nil)
	}

	var identity verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, flowerrors.NewMalformedIdentity(fmt.Sprintf("undecodable identity payload: %v", err))
	}
	if identity.CharacterID == 0 {
		return nil, flowerrors.NewMalformedIdentity("identity payload missing character id")
	}
	return &identity, nil
}

func (s *IdentityService) affiliation(ctx context.Context, characterID int64) (*affiliationEntry, error) {
	payload, err := json.Marshal([]int64{characterID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal affiliation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.affiliationURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build affiliation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, flowerrors.NewNetwork("affiliation fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, flowerrors.NewNetwork(
			fmt.Sprintf("affiliation endpoint returned status %d", resp.StatusCode), nil)
	}

	var entries []affiliationEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, flowerrors.NewMalformedIdentity(fmt.Sprintf("undecodable affiliation payload: %v", err))
	}
	for _, e := range entries {
		if e.CharacterID == characterID {
			if e.CorporationID == 0 {
				return nil, flowerrors.NewMalformedIdentity("affiliation payload missing corporation id")
			}
			return &e, nil
		}
	}
	return nil, flowerrors.NewMalformedIdentity("affiliation payload missing requested character")
}
