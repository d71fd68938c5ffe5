package bucket

import (
	"github.com/gostonefire/extendiblemap/internal/conf"
	"github.com/gostonefire/extendiblemap/internal/model"
	"github.com/gostonefire/extendiblemap/internal/utils"
)

// Bucket - A fixed capacity container of key/value entries backed by one block.
// Slot occupancy is tracked in a readable bitmap, removing an entry just clears its bit.
// A bucket knows nothing about the directory addressing it, it is purely keyed storage,
// and it does no locking of its own.
type Bucket struct {
	keyLength   int64
	valueLength int64
	capacity    int64
	numEntries  int64
	readable    []byte
	entries     []model.Entry
}

// MaxCapacity - Returns the largest number of entries of the given lengths for which the
// readable bitmap plus the entry records still fit in one block
func MaxCapacity(keyLength, valueLength int64) (capacity int64) {
	entryLength := keyLength + valueLength
	capacity = (conf.BlockSize*8 - 7) / (entryLength*8 + 1)
	for bitmapLength(capacity+1)+(capacity+1)*entryLength <= conf.BlockSize {
		capacity++
	}

	return
}

// NewBucket - Returns a pointer to a new empty Bucket instance
//   - keyLength is the fixed length of keys in entries
//   - valueLength is the fixed length of values in entries
//   - capacity is the number of entry slots
func NewBucket(keyLength, valueLength, capacity int64) *Bucket {
	return &Bucket{
		keyLength:   keyLength,
		valueLength: valueLength,
		capacity:    capacity,
		readable:    make([]byte, bitmapLength(capacity)),
		entries:     make([]model.Entry, capacity),
	}
}

// GetValue - Returns the values of every live entry matching the given key
func (B *Bucket) GetValue(key []byte) (values [][]byte) {
	for i := int64(0); i < B.capacity; i++ {
		if B.isReadable(i) && utils.IsEqual(key, B.entries[i].Key) {
			values = append(values, B.entries[i].Value)
		}
	}

	return
}

// Contains - Returns true if the exact key/value pair is a live entry in the bucket
func (B *Bucket) Contains(key, value []byte) bool {
	for i := int64(0); i < B.capacity; i++ {
		if B.isReadable(i) && utils.IsEqual(key, B.entries[i].Key) && utils.IsEqual(value, B.entries[i].Value) {
			return true
		}
	}

	return false
}

// Insert - Inserts the key/value pair in the first free slot.
// It returns false if the exact pair is already present or if the bucket is full, fullness
// is expected to already have been checked by the caller.
func (B *Bucket) Insert(key, value []byte) (ok bool) {
	if B.Contains(key, value) {
		return
	}

	for i := int64(0); i < B.capacity; i++ {
		if !B.isReadable(i) {
			k := make([]byte, len(key))
			v := make([]byte, len(value))
			copy(k, key)
			copy(v, value)

			B.entries[i] = model.Entry{Key: k, Value: v}
			B.setReadable(i)
			B.numEntries++
			ok = true
			return
		}
	}

	return
}

// Remove - Removes the live entry matching the exact key/value pair.
// It returns false if no such entry exists.
func (B *Bucket) Remove(key, value []byte) (ok bool) {
	for i := int64(0); i < B.capacity; i++ {
		if B.isReadable(i) && utils.IsEqual(key, B.entries[i].Key) && utils.IsEqual(value, B.entries[i].Value) {
			B.clearReadable(i)
			B.entries[i] = model.Entry{}
			B.numEntries--
			ok = true
			return
		}
	}

	return
}

// IsFull - Returns true if every slot holds a live entry
func (B *Bucket) IsFull() bool {
	return B.numEntries == B.capacity
}

// IsEmpty - Returns true if no slot holds a live entry
func (B *Bucket) IsEmpty() bool {
	return B.numEntries == 0
}

// NumEntries - Returns the number of live entries
func (B *Bucket) NumEntries() int64 {
	return B.numEntries
}

// GetEntries - Returns every live entry, used to redistribute entries during a split
func (B *Bucket) GetEntries() (entries []model.Entry) {
	entries = make([]model.Entry, 0, B.numEntries)
	for i := int64(0); i < B.capacity; i++ {
		if B.isReadable(i) {
			entries = append(entries, B.entries[i])
		}
	}

	return
}

// Reset - Clears all entries, used to rebuild the bucket after its contents have been
// redistributed during a split
func (B *Bucket) Reset() {
	clear(B.readable)
	clear(B.entries)
	B.numEntries = 0
}

// isReadable - Returns true if slot i holds a live entry
func (B *Bucket) isReadable(i int64) bool {
	return B.readable[i/8]&(1<<(i%8)) != 0
}

// setReadable - Marks slot i as holding a live entry
func (B *Bucket) setReadable(i int64) {
	B.readable[i/8] |= 1 << (i % 8)
}

// clearReadable - Marks slot i as free
func (B *Bucket) clearReadable(i int64) {
	B.readable[i/8] &^= 1 << (i % 8)
}

// bitmapLength - Returns the number of bytes needed for a readable bitmap over capacity slots
func bitmapLength(capacity int64) int64 {
	return (capacity + 7) / 8
}
