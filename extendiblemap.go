package extendiblemap

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	hashfunc "github.com/gostonefire/extendiblemap/interfaces"
	"github.com/gostonefire/extendiblemap/internal/blockcache"
	"github.com/gostonefire/extendiblemap/internal/bucket"
	"github.com/gostonefire/extendiblemap/internal/directory"
	"github.com/gostonefire/extendiblemap/internal/hash"
	"github.com/gostonefire/extendiblemap/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// MapInfo - Information structure containing some information about the hash map created or opened
//   - BucketCapacity is the number of entries each bucket block holds room for
//   - GlobalDepth is the current global depth of the directory
//   - NumberOfBuckets is the current number of distinct bucket blocks
//   - FileSize is the total size of the map file
type MapInfo struct {
	BucketCapacity  int64
	GlobalDepth     uint8
	NumberOfBuckets int64
	FileSize        int64
}

// MapStat - Statistics on the overall usage and distribution over buckets
//   - Entries is the total number of entries stored
//   - Buckets is the number of distinct bucket blocks
//   - GlobalDepth is the current global depth of the directory
//   - BucketDistribution is the number of entries stored in each distinct bucket
type MapStat struct {
	Entries            int64
	Buckets            int64
	GlobalDepth        uint8
	BucketDistribution []int64
}

// ExtendibleMap - The main implementation struct. It maps fixed length keys to one or more
// fixed length values with amortized O(1) lookup/insert/remove, growing and shrinking its
// directory and bucket blocks on demand through extendible hashing.
//
// A single map wide latch serializes every data operation, hence the struct is safe for
// concurrent use but doesn't offer reader/reader concurrency for data operations.
type ExtendibleMap struct {
	cache          *blockcache.Cache
	directoryBlock model.BlockID
	hashAlgorithm  hashfunc.HashAlgorithm
	name           string
	keyLength      int64
	valueLength    int64
	bucketCapacity int64
	latch          sync.RWMutex
	logger         *slog.Logger
	metrics        *mapMetrics

	// CloseFile - Flushes and closes the map file. Use this preferably in a "defer" directly
	// after a NewExtendibleMap or NewFromExistingFile.
	CloseFile func()
	// RemoveFile - Removes the map file if it exists.
	// The function first internally tries to close it using CloseFile.
	RemoveFile func() error
}

// NewExtendibleMap - Returns a new map file prepared with an empty directory at global depth 0
// addressing one single empty bucket. The map grows and shrinks with usage, so there is no
// initial sizing to get right.
//   - config is a Config struct providing configuration affecting file creation and processing
//
// It returns:
//   - extMap is a pointer to an ExtendibleMap struct
//   - mapInfo is a MapInfo struct containing some data regarding the hash map created
//   - err is a normal Go error which should be nil if everything went ok
func NewExtendibleMap(config Config) (extMap *ExtendibleMap, mapInfo MapInfo, err error) {
	// Check if name is empty
	if config.Name == "" {
		err = fmt.Errorf("name can not be empty, it will be used to name the physical file")
		return
	}

	// Check if the key length is valid
	if config.KeyLength <= 0 {
		err = fmt.Errorf("key length must be a positive value higher than 0 (zero)")
		return
	}

	// Check if the value length is valid
	if config.ValueLength <= 0 {
		err = fmt.Errorf("value length must be a positive value higher than 0 (zero)")
		return
	}

	maxCapacity := bucket.MaxCapacity(config.KeyLength, config.ValueLength)
	if maxCapacity < 1 {
		err = fmt.Errorf("key and value lengths too large, not even one entry fits a bucket block")
		return
	}

	bucketCapacity := config.BucketCapacity
	if bucketCapacity == 0 {
		bucketCapacity = maxCapacity
	} else if bucketCapacity < 0 || bucketCapacity > maxCapacity {
		err = fmt.Errorf("bucket capacity must be between 1 and %d for the given key and value lengths", maxCapacity)
		return
	}

	// If no HashAlgorithm was given then use the default internal
	hashAlgorithm := config.HashAlgorithm
	internalAlg := false
	if hashAlgorithm == nil {
		hashAlgorithm = hash.NewSingleHashAlgorithm()
		internalAlg = true
	}

	header := blockcache.Header{
		InternalAlg:    internalAlg,
		KeyLength:      config.KeyLength,
		ValueLength:    config.ValueLength,
		BucketCapacity: bucketCapacity,
	}

	diskManager, err := blockcache.NewDiskManager(mapFileName(config.Name), header)
	if err != nil {
		return
	}

	cacheFrames, err := checkCacheFrames(config.CacheFrames)
	if err != nil {
		_ = diskManager.RemoveFile()
		return
	}

	cache := blockcache.NewCache(diskManager, cacheFrames)

	extMap = &ExtendibleMap{
		cache:          cache,
		hashAlgorithm:  hashAlgorithm,
		name:           config.Name,
		keyLength:      config.KeyLength,
		valueLength:    config.ValueLength,
		bucketCapacity: bucketCapacity,
		logger:         newLogger(config.Logger),
		metrics:        newMapMetrics(config.Registerer, cache),
		CloseFile: func() {
			_ = cache.CloseFile()
		},
		RemoveFile: func() error {
			return cache.RemoveFile()
		},
	}

	err = extMap.createDirectory(diskManager)
	if err != nil {
		_ = cache.RemoveFile()
		extMap = nil
		return
	}

	mapInfo = MapInfo{
		BucketCapacity:  bucketCapacity,
		GlobalDepth:     0,
		NumberOfBuckets: 1,
		FileSize:        diskManager.GetHeader().FileSize,
	}

	return
}

// NewFromExistingFile - Opens an existing file containing a hash map. The file must have a
// valid header, and if the file was created and used together with a custom hash algorithm,
// also that same algorithm has to be supplied through the Config struct. KeyLength,
// ValueLength and BucketCapacity from the Config are ignored, the file header rules.
//   - config is a Config struct, only Name, CacheFrames, HashAlgorithm, Logger and Registerer apply
//
// It returns:
//   - extMap is a pointer to an ExtendibleMap struct
//   - mapInfo is a MapInfo struct containing some data regarding the hash map opened
//   - err is a normal Go error which should be nil if everything went ok
func NewFromExistingFile(config Config) (extMap *ExtendibleMap, mapInfo MapInfo, err error) {
	if config.Name == "" {
		err = fmt.Errorf("name can not be empty, it identifies the physical file")
		return
	}

	diskManager, err := blockcache.NewDiskManagerFromExistingFile(mapFileName(config.Name))
	if err != nil {
		return
	}

	header := diskManager.GetHeader()

	if header.InternalAlg && config.HashAlgorithm != nil {
		diskManager.CloseFile()
		err = fmt.Errorf("seems the map file was used with the internal hash algorithm but an external was given")
		return
	}
	if !header.InternalAlg && config.HashAlgorithm == nil {
		diskManager.CloseFile()
		err = fmt.Errorf("the map file was created with an external hash algorithm which has to be supplied")
		return
	}

	hashAlgorithm := config.HashAlgorithm
	if hashAlgorithm == nil {
		hashAlgorithm = hash.NewSingleHashAlgorithm()
	}

	cacheFrames, err := checkCacheFrames(config.CacheFrames)
	if err != nil {
		diskManager.CloseFile()
		return
	}

	cache := blockcache.NewCache(diskManager, cacheFrames)

	extMap = &ExtendibleMap{
		cache:          cache,
		directoryBlock: header.DirectoryBlock,
		hashAlgorithm:  hashAlgorithm,
		name:           config.Name,
		keyLength:      header.KeyLength,
		valueLength:    header.ValueLength,
		bucketCapacity: header.BucketCapacity,
		logger:         newLogger(config.Logger),
		metrics:        newMapMetrics(config.Registerer, cache),
		CloseFile: func() {
			_ = cache.CloseFile()
		},
		RemoveFile: func() error {
			return cache.RemoveFile()
		},
	}

	stat, err := extMap.Stat(false)
	if err != nil {
		extMap.CloseFile()
		extMap = nil
		return
	}

	extMap.metrics.globalDepth.Set(float64(stat.GlobalDepth))

	mapInfo = MapInfo{
		BucketCapacity:  header.BucketCapacity,
		GlobalDepth:     stat.GlobalDepth,
		NumberOfBuckets: stat.Buckets,
		FileSize:        header.FileSize,
	}

	return
}

// Gatherer - Returns the prometheus gatherer for the map's own metrics registry, or nil when
// an external registerer was supplied through the Config struct
func (E *ExtendibleMap) Gatherer() prometheus.Gatherer {
	return E.metrics.gatherer
}

// createDirectory - Allocates and initializes the directory block and the first bucket block
func (E *ExtendibleMap) createDirectory(diskManager *blockcache.DiskManager) (err error) {
	dirID, dirBuf, err := E.cache.NewBlock()
	if err != nil {
		err = fmt.Errorf("error while allocating directory block: %s", err)
		return
	}

	bktID, bktBuf, err := E.cache.NewBlock()
	if err != nil {
		E.mustUnpin(dirID, false)
		err = fmt.Errorf("error while allocating first bucket block: %s", err)
		return
	}

	dir := directory.NewDirectory()
	dir.SetBucketBlockID(0, bktID)
	dir.SetLocalDepth(0, 0)
	directory.ToBytes(dir, dirBuf)
	bucket.ToBytes(bucket.NewBucket(E.keyLength, E.valueLength, E.bucketCapacity), bktBuf)

	E.mustUnpin(bktID, true)
	E.mustUnpin(dirID, true)

	err = diskManager.SetDirectoryBlock(dirID)
	if err != nil {
		return
	}

	E.directoryBlock = dirID

	return
}

// mapFileName - Returns the file name used for the map with the given name
func mapFileName(name string) string {
	return fmt.Sprintf("%s-map.bin", name)
}

// checkCacheFrames - Applies the default on a zero cache frames setting and checks the result
// is enough for the deepest pin chain (directory, bucket and split image at once)
func checkCacheFrames(cacheFrames int) (frames int, err error) {
	frames = cacheFrames
	if frames == 0 {
		frames = DefaultCacheFrames
	}
	if frames < 3 {
		err = fmt.Errorf("cache frames must be at least 3 to hold directory, bucket and split image at once")
	}

	return
}

// newLogger - Returns the given logger, or a default text logger to stderr when nil
func newLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
