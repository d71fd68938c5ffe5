package hashfunc

// HashAlgorithm - Interface that permits an implementation using the ExtendibleMap to supply a custom
// hash algorithm suited for its particular distribution of keys.
type HashAlgorithm interface {
	// HashKey - Given key it generates a 32 bit hash value.
	// The map addresses its directory with the low global depth bits of the returned value, and a bucket
	// with the low local depth bits, hence a custom implementation must spread keys well in the low bits.
	HashKey(key []byte) uint32
}
