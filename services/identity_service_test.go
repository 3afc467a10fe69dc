package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyhook-logistics/portal/domain"
	flowerrors "github.com/skyhook-logistics/portal/errors"
)

// fakeIdentityProvider serves verify and affiliation endpoints for tests.
func fakeIdentityProvider(t *testing.T, verifyStatus int, verifyBody string, affiliations []affiliationEntry) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/verify", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(verifyStatus)
		w.Write([]byte(verifyBody))
	})
	mux.HandleFunc("/affiliation", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(affiliations)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestResolveIdentity(t *testing.T) {
	provider := fakeIdentityProvider(t, http.StatusOK,
		`{"CharacterID":101,"CharacterName":"Avi Sadis"}`,
		[]affiliationEntry{{CharacterID: 101, CorporationID: 2001, AllianceID: 9001}})

	svc := NewIdentityService(provider.URL+"/verify", provider.URL+"/affiliation", 5*time.Second)

	character, err := svc.Resolve(context.Background(), &domain.TokenSet{AccessToken: "at-1", RefreshToken: "rt-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(101), character.CharacterID)
	assert.Equal(t, "Avi Sadis", character.Name)
	assert.Equal(t, int64(2001), character.CorporationID)
	assert.Equal(t, int64(9001), character.AllianceID)
	assert.Equal(t, "rt-1", character.RefreshToken)
}

func TestResolveMissingCharacterIDIsMalformed(t *testing.T) {
	provider := fakeIdentityProvider(t, http.StatusOK,
		`{"CharacterName":"No ID"}`, nil)

	svc := NewIdentityService(provider.URL+"/verify", provider.URL+"/affiliation", 5*time.Second)

	_, err := svc.Resolve(context.Background(), &domain.TokenSet{AccessToken: "at-1"})
	assert.True(t, flowerrors.IsKind(err, flowerrors.KindMalformedIdentity))
}

func TestResolveVerifyFailureIsNetwork(t *testing.T) {
	provider := fakeIdentityProvider(t, http.StatusServiceUnavailable, `{}`, nil)

	svc := NewIdentityService(provider.URL+"/verify", provider.URL+"/affiliation", 5*time.Second)

	_, err := svc.Resolve(context.Background(), &domain.TokenSet{AccessToken: "at-1"})
	assert.True(t, flowerrors.IsKind(err, flowerrors.KindNetwork))
}

func TestResolveAffiliationMissingCharacterIsMalformed(t *testing.T) {
	provider := fakeIdentityProvider(t, http.StatusOK,
		`{"CharacterID":101,"CharacterName":"Avi Sadis"}`,
		[]affiliationEntry{{CharacterID: 999, CorporationID: 2001}})

	svc := NewIdentityService(provider.URL+"/verify", provider.URL+"/affiliation", 5*time.Second)

	_, err := svc.Resolve(context.Background(), &domain.TokenSet{AccessToken: "at-1"})
	assert.True(t, flowerrors.IsKind(err, flowerrors.KindMalformedIdentity))
}

func TestResolveUnreachableProviderIsNetwork(t *testing.T) {
	svc := NewIdentityService("http://127.0.0.1:1/verify", "http://127.0.0.1:1/affiliation", time.Second)

	_, err := svc.Resolve(context.Background(), &domain.TokenSet{AccessToken: "at-1"})
	assert.True(t, flowerrors.IsKind(err, flowerrors.KindNetwork))
}
