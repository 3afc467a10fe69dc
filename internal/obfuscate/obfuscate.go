// Package obfuscate maps numeric character ids to opaque, non-reversible
// identifiers for analytics and log correlation, so raw ids never leave the
// process.
package obfuscate

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// NoCharacter is the published sentinel for "no character": the transform of
// the zero id.
const NoCharacter = "5feceb66ffc86f38d952786c6d696c79c2dbc239dd4e91b46729d73a27fb57e9"

// CharacterHash deterministically maps a character id to an opaque hex string.
// The hash covers the lowercase hexadecimal string form of the id, not its
// raw bytes; existing obfuscated values depend on that exact transform.
func CharacterHash(id int64) string {
	hasher := sha256.New()
	hasher.Write([]byte(strconv.FormatInt(id, 16)))
	return hex.EncodeToString(hasher.Sum(nil))
}
