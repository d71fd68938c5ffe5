package extendiblemap

import (
	"fmt"

	"github.com/gostonefire/extendiblemap/internal/bucket"
	"github.com/gostonefire/extendiblemap/internal/conf"
	"github.com/gostonefire/extendiblemap/internal/directory"
	"github.com/gostonefire/extendiblemap/internal/model"
)

// GetValue - Gets every value stored under the given key.
//   - key is the identifier of an entry, it has to be of same length as given in call to NewExtendibleMap
//
// It returns:
//   - values are the values of all matching entries, if none an error of type NoEntryFound is also returned
//   - err is either of type NoEntryFound or a standard error, if something went wrong
func (E *ExtendibleMap) GetValue(key []byte) (values [][]byte, err error) {
	// Check validity of the key
	if int64(len(key)) != E.keyLength {
		err = fmt.Errorf("wrong length of key, should be %d", E.keyLength)
		return
	}

	E.latch.Lock()
	defer E.latch.Unlock()

	dir, _, err := E.fetchDirectory()
	if err != nil {
		return
	}

	idx := E.directoryIndex(key, dir)
	bktID := dir.GetBucketBlockID(idx)
	bkt, _, err := E.fetchBucket(bktID)
	if err != nil {
		E.mustUnpin(E.directoryBlock, false)
		return
	}

	values = bkt.GetValue(key)

	E.mustUnpin(bktID, false)
	E.mustUnpin(E.directoryBlock, false)

	if len(values) == 0 {
		err = NoEntryFound{}
	}

	return
}

// Insert - Inserts a new key/value entry. The same key may be stored with any number of
// distinct values, but inserting an exact key/value pair twice fails with an error of type
// DuplicateEntry. A full bucket is split, growing the directory when needed, before the
// insert is retried.
//   - key is the identifier of an entry, it has to be of same length as given in call to NewExtendibleMap
//   - value is the bytes to be stored along with the key, it has to be of same length as given in call to NewExtendibleMap
//
// It returns:
//   - err is either of type DuplicateEntry, of type TableFull when keys collide in their low
//     hash bits beyond what the deepest directory can separate, or a standard error
func (E *ExtendibleMap) Insert(key []byte, value []byte) (err error) {
	// Check validity of the key
	if int64(len(key)) != E.keyLength {
		err = fmt.Errorf("wrong length of key, should be %d", E.keyLength)
		return
	}
	// Check validity of the value
	if int64(len(value)) != E.valueLength {
		err = fmt.Errorf("wrong length of value, should be %d", E.valueLength)
		return
	}

	E.latch.Lock()
	defer E.latch.Unlock()

	// Attempt insert, on overflow split once and retry. Every split raises the target
	// bucket's local depth by one, so MaxDepth bounds the number of retries.
	var split bool
	for attempt := uint8(0); attempt <= conf.MaxDepth; attempt++ {
		split, err = E.insertOnce(key, value)
		if !split {
			return
		}
	}

	err = TableFull{}
	return
}

// Remove - Removes the entry matching the exact key/value pair. A bucket left empty is merged
// with its sibling when both are at the same local depth, after which the directory shrinks
// as far as the remaining buckets allow.
//   - key is the identifier of an entry, it has to be of same length as given in call to NewExtendibleMap
//   - value is the stored value, it has to be of same length as given in call to NewExtendibleMap
//
// It returns:
//   - err is either of type NoEntryFound or a standard error, if something went wrong
func (E *ExtendibleMap) Remove(key []byte, value []byte) (err error) {
	// Check validity of the key
	if int64(len(key)) != E.keyLength {
		err = fmt.Errorf("wrong length of key, should be %d", E.keyLength)
		return
	}
	// Check validity of the value
	if int64(len(value)) != E.valueLength {
		err = fmt.Errorf("wrong length of value, should be %d", E.valueLength)
		return
	}

	E.latch.Lock()
	defer E.latch.Unlock()

	dir, dirBuf, err := E.fetchDirectory()
	if err != nil {
		return
	}

	idx := E.directoryIndex(key, dir)
	bktID := dir.GetBucketBlockID(idx)
	bkt, bktBuf, err := E.fetchBucket(bktID)
	if err != nil {
		E.mustUnpin(E.directoryBlock, false)
		return
	}

	if !bkt.Remove(key, value) {
		E.mustUnpin(bktID, false)
		E.mustUnpin(E.directoryBlock, false)
		err = NoEntryFound{}
		return
	}

	bucket.ToBytes(bkt, bktBuf)

	if !bkt.IsEmpty() {
		E.mustUnpin(bktID, true)
		E.mustUnpin(E.directoryBlock, false)
		return
	}

	// Merging must be attempted when a bucket becomes empty
	err = E.mergeBucket(dir, dirBuf, idx, bktID)

	return
}

// GetGlobalDepth - Returns the current global depth of the directory
func (E *ExtendibleMap) GetGlobalDepth() (globalDepth uint8, err error) {
	E.latch.RLock()
	defer E.latch.RUnlock()

	dir, _, err := E.fetchDirectory()
	if err != nil {
		return
	}

	globalDepth = dir.GetGlobalDepth()
	E.mustUnpin(E.directoryBlock, false)

	return
}

// VerifyIntegrity - Asserts the structural invariants of the directory and its buckets: depth
// bookkeeping is consistent, slots sharing a bucket form exactly the class of equal low local
// depth bits, and every stored key hashes to its bucket's slot class. A violated invariant is
// a programming error and results in a panic, the returned error only covers trouble reading
// blocks.
func (E *ExtendibleMap) VerifyIntegrity() (err error) {
	E.latch.RLock()
	defer E.latch.RUnlock()

	dir, _, err := E.fetchDirectory()
	if err != nil {
		return
	}

	dir.VerifyIntegrity()

	verified := make(map[model.BlockID]bool)
	for i := uint32(0); i < dir.Size(); i++ {
		bktID := dir.GetBucketBlockID(i)
		if verified[bktID] {
			continue
		}
		verified[bktID] = true

		var bkt *bucket.Bucket
		bkt, _, err = E.fetchBucket(bktID)
		if err != nil {
			E.mustUnpin(E.directoryBlock, false)
			return
		}

		mask := dir.GetLocalDepthMask(i)
		for _, entry := range bkt.GetEntries() {
			if E.hashAlgorithm.HashKey(entry.Key)&mask != i&mask {
				panic(fmt.Sprintf("entry in bucket block %d doesn't hash to its slot class (slot %d, mask %#x)",
					bktID, i, mask))
			}
		}

		E.mustUnpin(bktID, false)
	}

	E.mustUnpin(E.directoryBlock, false)

	return
}

// Stat - Walks through the entire directory and produces a MapStat struct with information.
//   - includeDistribution set to true will include a slice with number of entries per distinct bucket, false will set MapStat.BucketDistribution to nil
func (E *ExtendibleMap) Stat(includeDistribution bool) (mapStat *MapStat, err error) {
	E.latch.RLock()
	defer E.latch.RUnlock()

	dir, _, err := E.fetchDirectory()
	if err != nil {
		return
	}

	var ms MapStat
	ms.GlobalDepth = dir.GetGlobalDepth()

	counted := make(map[model.BlockID]bool)
	for i := uint32(0); i < dir.Size(); i++ {
		bktID := dir.GetBucketBlockID(i)
		if counted[bktID] {
			continue
		}
		counted[bktID] = true

		var bkt *bucket.Bucket
		bkt, _, err = E.fetchBucket(bktID)
		if err != nil {
			E.mustUnpin(E.directoryBlock, false)
			return
		}

		ms.Buckets++
		ms.Entries += bkt.NumEntries()
		if includeDistribution {
			ms.BucketDistribution = append(ms.BucketDistribution, bkt.NumEntries())
		}

		E.mustUnpin(bktID, false)
	}

	E.mustUnpin(E.directoryBlock, false)
	mapStat = &ms

	return
}

// insertOnce - Makes one insert attempt. When the target bucket is full it is split instead
// and split comes back true, telling the caller to retry. A nil err together with split false
// means the entry went in.
func (E *ExtendibleMap) insertOnce(key []byte, value []byte) (split bool, err error) {
	dir, dirBuf, err := E.fetchDirectory()
	if err != nil {
		return
	}

	idx := E.directoryIndex(key, dir)
	bktID := dir.GetBucketBlockID(idx)
	bkt, bktBuf, err := E.fetchBucket(bktID)
	if err != nil {
		E.mustUnpin(E.directoryBlock, false)
		return
	}

	if bkt.Contains(key, value) {
		E.mustUnpin(bktID, false)
		E.mustUnpin(E.directoryBlock, false)
		err = DuplicateEntry{}
		return
	}

	if !bkt.IsFull() {
		bkt.Insert(key, value)
		bucket.ToBytes(bkt, bktBuf)
		E.mustUnpin(bktID, true)
		E.mustUnpin(E.directoryBlock, false)
		return
	}

	if dir.GetLocalDepth(idx) == conf.MaxDepth {
		E.mustUnpin(bktID, false)
		E.mustUnpin(E.directoryBlock, false)
		err = TableFull{}
		return
	}

	err = E.splitBucket(dir, dirBuf, idx, bktID, bkt, bktBuf)
	split = err == nil

	return
}

// splitBucket - Splits the overflowing bucket at slot idx. Its local depth is raised by one,
// growing the directory first when the bucket already uses all global depth bits, a fresh
// image bucket is allocated at the split image slot and every entry is redistributed between
// the two by rehashing against the new local depth mask.
//
// The image block is allocated before any structure is mutated, so a failed allocation leaves
// directory and bucket exactly as they were.
func (E *ExtendibleMap) splitBucket(
	dir *directory.Directory,
	dirBuf []byte,
	idx uint32,
	bktID model.BlockID,
	bkt *bucket.Bucket,
	bktBuf []byte,
) (err error) {

	imgID, imgBuf, err := E.cache.NewBlock()
	if err != nil {
		E.mustUnpin(bktID, false)
		E.mustUnpin(E.directoryBlock, false)
		err = fmt.Errorf("error while allocating split image bucket block: %s", err)
		return
	}
	if imgID == bktID {
		panic("block cache handed out a block id still referenced by the directory")
	}

	oldDepth := dir.GetLocalDepth(idx)
	newDepth := oldDepth + 1
	if newDepth > dir.GetGlobalDepth() {
		dir.IncrGlobalDepth()
		E.metrics.grows.Inc()
		E.logger.Debug("directory grown", "name", E.name, "globalDepth", dir.GetGlobalDepth())
	}

	imgIdx := dir.GetSplitImageIndex(idx)
	mask := uint32(1)<<newDepth - 1

	// Re-point every slot that aliased the overflowing bucket. Slots matching the image's
	// address bits move to the image bucket, and all of them carry the new local depth.
	for i := uint32(0); i < dir.Size(); i++ {
		if dir.GetBucketBlockID(i) != bktID {
			continue
		}
		if i&mask == imgIdx&mask {
			dir.SetBucketBlockID(i, imgID)
		}
		dir.SetLocalDepth(i, newDepth)
	}

	// Rehashing against the new mask lands every entry in either the original bucket or the
	// image bucket, never a third location
	imgBkt := bucket.NewBucket(E.keyLength, E.valueLength, E.bucketCapacity)
	entries := bkt.GetEntries()
	bkt.Reset()
	for _, entry := range entries {
		if E.hashAlgorithm.HashKey(entry.Key)&mask == imgIdx&mask {
			imgBkt.Insert(entry.Key, entry.Value)
		} else {
			bkt.Insert(entry.Key, entry.Value)
		}
	}

	bucket.ToBytes(bkt, bktBuf)
	bucket.ToBytes(imgBkt, imgBuf)
	directory.ToBytes(dir, dirBuf)

	E.mustUnpin(imgID, true)
	E.mustUnpin(bktID, true)
	E.mustUnpin(E.directoryBlock, true)

	E.metrics.splits.Inc()
	E.metrics.globalDepth.Set(float64(dir.GetGlobalDepth()))
	E.logger.Debug("bucket split", "name", E.name, "slot", idx, "imageSlot", imgIdx, "localDepth", newDepth)

	return
}

// mergeBucket - Attempts to merge the empty bucket at slot idx back into its merge image.
// Merging requires a local depth above 0 and the image at the same local depth, otherwise the
// empty bucket is simply left in place. After a merge the directory shrinks for as long as no
// bucket needs all global depth bits, one merge can make several depth levels redundant at
// once. The caller still holds the pins on both the directory block and the bucket block.
func (E *ExtendibleMap) mergeBucket(dir *directory.Directory, dirBuf []byte, idx uint32, bktID model.BlockID) (err error) {
	localDepth := dir.GetLocalDepth(idx)
	if localDepth == 0 {
		E.mustUnpin(bktID, true)
		E.mustUnpin(E.directoryBlock, false)
		return
	}

	imgIdx := dir.GetMergeImageIndex(idx)
	if dir.GetLocalDepth(imgIdx) != localDepth {
		// Siblings must be peers before merging
		E.mustUnpin(bktID, true)
		E.mustUnpin(E.directoryBlock, false)
		return
	}

	// Drop the empty bucket block, its contents need not reach the file
	E.mustUnpin(bktID, false)
	err = E.cache.DeleteBlock(bktID)
	if err != nil {
		E.mustUnpin(E.directoryBlock, false)
		err = fmt.Errorf("error while deleting merged bucket block: %s", err)
		return
	}

	imgID := dir.GetBucketBlockID(imgIdx)
	newDepth := localDepth - 1

	// Re-point every slot that referenced the dropped bucket to the image bucket, then lower
	// the local depth across the combined slot range
	for i := uint32(0); i < dir.Size(); i++ {
		if dir.GetBucketBlockID(i) == bktID {
			dir.SetBucketBlockID(i, imgID)
		}
	}
	for i := uint32(0); i < dir.Size(); i++ {
		if dir.GetBucketBlockID(i) == imgID {
			dir.SetLocalDepth(i, newDepth)
		}
	}

	for dir.CanShrink() {
		dir.DecrGlobalDepth()
		E.metrics.shrinks.Inc()
		E.logger.Debug("directory shrunk", "name", E.name, "globalDepth", dir.GetGlobalDepth())
	}

	directory.ToBytes(dir, dirBuf)
	E.mustUnpin(E.directoryBlock, true)

	E.metrics.merges.Inc()
	E.metrics.globalDepth.Set(float64(dir.GetGlobalDepth()))
	E.logger.Debug("buckets merged", "name", E.name, "slot", idx, "imageSlot", imgIdx, "localDepth", newDepth)

	return
}

// fetchDirectory - Pins the directory block and decodes it. The returned buf is the cache
// resident storage of the block, valid for as long as the pin is held, and is where a mutated
// directory must be encoded back before release.
func (E *ExtendibleMap) fetchDirectory() (dir *directory.Directory, buf []byte, err error) {
	buf, err = E.cache.FetchBlock(E.directoryBlock)
	if err != nil {
		err = fmt.Errorf("error while fetching directory block: %s", err)
		return
	}

	dir, err = directory.FromBytes(buf)
	if err != nil {
		E.mustUnpin(E.directoryBlock, false)
	}

	return
}

// fetchBucket - Pins the given bucket block and decodes it, see fetchDirectory regarding buf
func (E *ExtendibleMap) fetchBucket(blockID model.BlockID) (bkt *bucket.Bucket, buf []byte, err error) {
	buf, err = E.cache.FetchBlock(blockID)
	if err != nil {
		err = fmt.Errorf("error while fetching bucket block %d: %s", blockID, err)
		return
	}

	bkt, err = bucket.FromBytes(buf, E.keyLength, E.valueLength, E.bucketCapacity)
	if err != nil {
		E.mustUnpin(blockID, false)
	}

	return
}

// directoryIndex - Returns the directory slot the key hashes to, the low global depth bits
// of the key's hash value
func (E *ExtendibleMap) directoryIndex(key []byte, dir *directory.Directory) uint32 {
	return E.hashAlgorithm.HashKey(key) & dir.GetGlobalDepthMask()
}

// mustUnpin - Releases one pin on the given block. A failing unpin means the pin pairing
// discipline is broken, which the structure has no recovery from.
func (E *ExtendibleMap) mustUnpin(blockID model.BlockID, isDirty bool) {
	if err := E.cache.UnpinBlock(blockID, isDirty); err != nil {
		panic(fmt.Sprintf("unpin of block %d failed: %s", blockID, err))
	}
}
