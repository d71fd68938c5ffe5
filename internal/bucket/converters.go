package bucket

import (
	"fmt"

	"github.com/gostonefire/extendiblemap/internal/conf"
	"github.com/gostonefire/extendiblemap/internal/model"
)

// FromBytes - Converts bucket block raw data to a Bucket struct
func FromBytes(buf []byte, keyLength, valueLength, capacity int64) (bucket *Bucket, err error) {
	entryLength := keyLength + valueLength
	bmLength := bitmapLength(capacity)
	expected := bmLength + capacity*entryLength

	if expected > int64(len(buf)) {
		err = fmt.Errorf("length of data in buf (%d) less than bucket size (%d)", len(buf), expected)
		return
	}

	bucket = NewBucket(keyLength, valueLength, capacity)
	copy(bucket.readable, buf[:bmLength])

	entryStart := bmLength
	for i := int64(0); i < capacity; i++ {
		if bucket.isReadable(i) {
			key := make([]byte, keyLength)
			value := make([]byte, valueLength)
			copy(key, buf[entryStart:entryStart+keyLength])
			copy(value, buf[entryStart+keyLength:entryStart+entryLength])

			bucket.entries[i] = model.Entry{Key: key, Value: value}
			bucket.numEntries++
		}
		entryStart += entryLength
	}

	return
}

// ToBytes - Converts a Bucket struct to bucket block raw data, written in place into buf
func ToBytes(bucket *Bucket, buf []byte) {
	clear(buf[:conf.BlockSize])
	copy(buf, bucket.readable)

	entryStart := bitmapLength(bucket.capacity)
	entryLength := bucket.keyLength + bucket.valueLength
	for i := int64(0); i < bucket.capacity; i++ {
		if bucket.isReadable(i) {
			copy(buf[entryStart:], bucket.entries[i].Key)
			copy(buf[entryStart+bucket.keyLength:], bucket.entries[i].Value)
		}
		entryStart += entryLength
	}
}
