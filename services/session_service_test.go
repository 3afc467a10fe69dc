package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyhook-logistics/portal/domain"
)

func newTestSessionService(t *testing.T) *SessionService {
	t.Helper()
	svc, err := NewSessionService([]byte("test-master-secret"), time.Hour)
	require.NoError(t, err)
	return svc
}

func TestSessionEncodeDecodeRoundTrip(t *testing.T) {
	svc := newTestSessionService(t)

	session := domain.NewCharacterSession()
	session.Upsert("login", domain.Character{CharacterID: 101, Name: "Avi Sadis", CorporationID: 2001, RefreshToken: "rt-1"})
	session.Upsert("login", domain.Character{CharacterID: 102, Name: "Jita Trader", CorporationID: 2002, AllianceID: 9001, RefreshToken: "rt-2"})
	session.Upsert("corp", domain.Character{CharacterID: 201, Name: "Director Bob", CorporationID: 2001, RefreshToken: "rt-3"})

	token, err := svc.Encode(session)
	require.NoError(t, err)

	decoded := svc.Decode(token)
	require.Len(t, decoded.Namespaces, 2)
	assert.Equal(t, session.Namespaces["login"].Characters, decoded.Namespaces["login"].Characters)
	assert.Equal(t, session.Namespaces["login"].CurrentID, decoded.Namespaces["login"].CurrentID)
	assert.Equal(t, session.Namespaces["corp"].Characters, decoded.Namespaces["corp"].Characters)
}

func TestSessionDecodeEmptyToken(t *testing.T) {
	svc := newTestSessionService(t)
	session := svc.Decode("")
	assert.True(t, session.IsEmpty())
}

func TestSessionDecodeTamperedToken(t *testing.T) {
	svc := newTestSessionService(t)

	token, err := svc.Upsert("", "login", domain.Character{CharacterID: 101, Name: "Avi", CorporationID: 1})
	require.NoError(t, err)

	// Flip a character in the payload segment.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	payload[len(payload)/2] ^= 0x01
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	session := svc.Decode(tampered)
	assert.True(t, session.IsEmpty(), "tampered token must decode to an empty session")
}

func TestSessionDecodeWrongKey(t *testing.T) {
	svc := newTestSessionService(t)
	other, err := NewSessionService([]byte("a-different-secret"), time.Hour)
	require.NoError(t, err)

	token, err := svc.Upsert("", "login", domain.Character{CharacterID: 101, Name: "Avi", CorporationID: 1})
	require.NoError(t, err)

	assert.True(t, other.Decode(token).IsEmpty())
}

func TestSessionUpsertIdempotentByCharacterID(t *testing.T) {
	svc := newTestSessionService(t)

	token, err := svc.Upsert("", "login", domain.Character{CharacterID: 101, Name: "Avi", CorporationID: 1, RefreshToken: "old"})
	require.NoError(t, err)
	token, err = svc.Upsert(token, "login", domain.Character{CharacterID: 102, Name: "Bea", CorporationID: 1, RefreshToken: "rt-b"})
	require.NoError(t, err)

	// Re-authenticate the first character with a new refresh token.
	token, err = svc.Upsert(token, "login", domain.Character{CharacterID: 101, Name: "Avi", CorporationID: 1, RefreshToken: "new"})
	require.NoError(t, err)

	session := svc.Decode(token)
	ns := session.Namespaces["login"]
	require.Len(t, ns.Characters, 2, "re-authentication must not duplicate the character")
	assert.Equal(t, int64(101), ns.Characters[0].CharacterID, "re-authentication keeps list position")
	assert.Equal(t, "new", ns.Characters[0].RefreshToken)
	assert.Equal(t, int64(101), ns.CurrentID, "re-authentication promotes to current")
}

func TestSessionNamespaceIsolation(t *testing.T) {
	svc := newTestSessionService(t)

	token, err := svc.Upsert("", "login", domain.Character{CharacterID: 101, Name: "Avi", CorporationID: 1})
	require.NoError(t, err)
	token, err = svc.Upsert(token, "corp", domain.Character{CharacterID: 201, Name: "Bob", CorporationID: 1})
	require.NoError(t, err)

	// Clearing one namespace leaves the other intact.
	token, err = svc.ClearNamespace(token, "corp")
	require.NoError(t, err)

	session := svc.Decode(token)
	_, hasCorp := session.Namespaces["corp"]
	assert.False(t, hasCorp)
	current, ok := session.Current("login")
	require.True(t, ok)
	assert.Equal(t, int64(101), current.CharacterID)
}

func TestSessionSetCurrent(t *testing.T) {
	svc := newTestSessionService(t)

	token, err := svc.Upsert("", "login", domain.Character{CharacterID: 101, Name: "Avi", CorporationID: 1})
	require.NoError(t, err)
	token, err = svc.Upsert(token, "login", domain.Character{CharacterID: 102, Name: "Bea", CorporationID: 1})
	require.NoError(t, err)

	token, err = svc.SetCurrent(token, "login", 101)
	require.NoError(t, err)
	current, ok := svc.Current(token, "login")
	require.True(t, ok)
	assert.Equal(t, int64(101), current.CharacterID)

	_, err = svc.SetCurrent(token, "login", 999)
	assert.ErrorIs(t, err, domain.ErrCharacterNotFound)

	_, err = svc.SetCurrent(token, "unknown-ns", 101)
	assert.ErrorIs(t, err, domain.ErrCharacterNotFound)
}

func TestSessionRemove(t *testing.T) {
	svc := newTestSessionService(t)

	token, err := svc.Upsert("", "login", domain.Character{CharacterID: 101, Name: "Avi", CorporationID: 1})
	require.NoError(t, err)
	token, err = svc.Upsert(token, "login", domain.Character{CharacterID: 102, Name: "Bea", CorporationID: 1})
	require.NoError(t, err)

	// Removing the current character moves the pointer to the remaining one.
	token, err = svc.Remove(token, "login", 102)
	require.NoError(t, err)
	current, ok := svc.Current(token, "login")
	require.True(t, ok)
	assert.Equal(t, int64(101), current.CharacterID)

	// Removing the last character drops the namespace.
	token, err = svc.Remove(token, "login", 101)
	require.NoError(t, err)
	assert.True(t, svc.Decode(token).IsEmpty())
}
