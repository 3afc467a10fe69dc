package obfuscate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCharacterHashIsDeterministic(t *testing.T) {
	for _, id := range []int64{1, 101, 90000001, 2117053828} {
		assert.Equal(t, CharacterHash(id), CharacterHash(id))
	}
}

func TestCharacterHashZeroIsSentinel(t *testing.T) {
	assert.Equal(t, NoCharacter, CharacterHash(0))
}

func TestCharacterHashCoversHexStringForm(t *testing.T) {
	// 255 hashes as "ff", not as the decimal string or raw bytes.
	assert.Equal(t,
		"05a9bf223fedf80a9d0da5f73f5c191a665bf4a0a4a3e608f2f9e7d5ff23959c",
		CharacterHash(255))
}

func TestCharacterHashDistinguishesIds(t *testing.T) {
	assert.NotEqual(t, CharacterHash(1), CharacterHash(2))
	assert.NotEqual(t, CharacterHash(1), NoCharacter)
}
