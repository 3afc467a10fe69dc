package services

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key derivation labels. Session and admin-gate tokens must never share a
// signing key; a session token must not validate as an admin grant.
const (
	sessionKeyInfo   = "portal/session-token"
	adminGateKeyInfo = "portal/admin-gate"
)

// deriveKey expands the configured master secret into a 32-byte per-purpose
// signing key via HKDF-SHA256.
func deriveKey(masterSecret []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, masterSecret, nil, []byte(info))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %w", info, err)
	}
	return key, nil
}
