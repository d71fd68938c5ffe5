package hash

import "hash/crc32"

// SingleHashAlgorithm - The internally used hash algorithm is implemented using crc32.ChecksumIEEE to
// create a 32 bit hash value over the key. The map then applies bucket = hash & (1<<depth - 1) to get
// the directory slot, where depth is the current global depth of the directory.
type SingleHashAlgorithm struct{}

// NewSingleHashAlgorithm - Returns a pointer to a new SingleHashAlgorithm instance
func NewSingleHashAlgorithm() *SingleHashAlgorithm {
	return &SingleHashAlgorithm{}
}

// HashKey - Given key it generates a 32 bit hash value
func (B *SingleHashAlgorithm) HashKey(key []byte) uint32 {
	return crc32.ChecksumIEEE(key)
}
