//go:build unit

package hash

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSingleHashAlgorithm_HashKey(t *testing.T) {
	t.Run("hashes a key deterministically", func(t *testing.T) {
		// Prepare
		alg := NewSingleHashAlgorithm()
		key := []byte("a key to hash")

		// Execute
		hash1 := alg.HashKey(key)
		hash2 := alg.HashKey(key)

		// Check
		assert.Equal(t, hash1, hash2, "same key gives same hash value")
		assert.Equal(t, crc32.ChecksumIEEE(key), hash1, "hash value follows crc32 IEEE")
		assert.NotEqual(t, hash1, alg.HashKey([]byte("another key")), "different keys give different hash values")

		// Clean up
	})
}
