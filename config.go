package extendiblemap

import (
	"fmt"
	"log/slog"
	"os"

	hashfunc "github.com/gostonefire/extendiblemap/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// DefaultCacheFrames - Number of cache resident blocks used when Config doesn't say otherwise
const DefaultCacheFrames int = 16

// Config - Configuration for creating or opening an extendible hash map.
//   - Name is the name of the hash map and will be used to form the map file name
//   - KeyLength is the fixed length of the key part in an entry
//   - ValueLength is the fixed length of the value part in an entry
//   - CacheFrames is the number of blocks kept cache resident, zero selects DefaultCacheFrames
//   - BucketCapacity is the number of entries per bucket block, zero derives the largest capacity that fits one block
//   - HashAlgorithm is an optional custom hash algorithm following the hashfunc.HashAlgorithm interface
//   - Logger is an optional structured logger, structural changes are logged at debug level
//   - Registerer is an optional prometheus registerer, when nil the map registers its metrics with an own registry exposed through Gatherer
//
// KeyLength, ValueLength and BucketCapacity only apply when creating a new map, an existing
// map carries them in its file header.
type Config struct {
	Name           string `yaml:"name"`
	KeyLength      int64  `yaml:"keyLength"`
	ValueLength    int64  `yaml:"valueLength"`
	CacheFrames    int    `yaml:"cacheFrames"`
	BucketCapacity int64  `yaml:"bucketCapacity"`

	HashAlgorithm hashfunc.HashAlgorithm `yaml:"-"`
	Logger        *slog.Logger           `yaml:"-"`
	Registerer    prometheus.Registerer  `yaml:"-"`
}

// LoadConfig - Reads a Config struct from a YAML file
//   - fileName is the name of the YAML file to read
//
// It returns:
//   - config is the parsed Config struct
//   - err is a standard Go type of error
func LoadConfig(fileName string) (config Config, err error) {
	buf, err := os.ReadFile(fileName)
	if err != nil {
		err = fmt.Errorf("unable to read config file: %s", err)
		return
	}

	err = yaml.Unmarshal(buf, &config)
	if err != nil {
		err = fmt.Errorf("unable to parse config file: %s", err)
	}

	return
}
