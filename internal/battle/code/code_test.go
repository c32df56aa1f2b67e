package code

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	c := Generate()
	assert.Len(t, c, Length)
	assert.True(t, Valid(c), c)
}

func TestGenerate_MostlyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		seen[Generate()] = true
	}
	// 24 bits of randomness; a couple of collisions in 200 draws is possible
	// but extremely unlikely to exceed a handful.
	assert.Greater(t, len(seen), 195)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("A1B2C3"))
	assert.False(t, Valid("a1b2c3"))
	assert.False(t, Valid("A1B2C"))
	assert.False(t, Valid("A1B2CG"))
}
