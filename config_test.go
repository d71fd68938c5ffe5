//go:build unit

package extendiblemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("loads config from yaml file", func(t *testing.T) {
		// Prepare
		yamlData := `name: lookup
keyLength: 16
valueLength: 10
cacheFrames: 32
bucketCapacity: 64
`
		fileName := filepath.Join(t.TempDir(), "config.yaml")
		err := os.WriteFile(fileName, []byte(yamlData), 0644)
		assert.NoError(t, err, "writes config file")

		// Execute
		config, err := LoadConfig(fileName)

		// Check
		assert.NoError(t, err, "loads config file")
		assert.Equal(t, "lookup", config.Name, "name parsed")
		assert.Equal(t, int64(16), config.KeyLength, "key length parsed")
		assert.Equal(t, int64(10), config.ValueLength, "value length parsed")
		assert.Equal(t, 32, config.CacheFrames, "cache frames parsed")
		assert.Equal(t, int64(64), config.BucketCapacity, "bucket capacity parsed")

		// Clean up
	})

	t.Run("gets error on missing or broken file", func(t *testing.T) {
		// Prepare
		fileName := filepath.Join(t.TempDir(), "config.yaml")

		// Execute
		_, err := LoadConfig(fileName)

		// Check
		assert.Error(t, err, "gets error on missing file")

		// Prepare
		err = os.WriteFile(fileName, []byte("name: [broken"), 0644)
		assert.NoError(t, err, "writes broken config file")

		// Execute
		_, err = LoadConfig(fileName)

		// Check
		assert.Error(t, err, "gets error on broken file")

		// Clean up
	})
}
