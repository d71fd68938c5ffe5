package directory

import (
	"fmt"

	"github.com/gostonefire/extendiblemap/internal/conf"
	"github.com/gostonefire/extendiblemap/internal/model"
)

// Directory - The directory block of the hash map. It maps the low global depth bits of a key
// hash to the bucket block responsible for that slot, and tracks per slot how many low bits
// uniquely identify the bucket (the local depth). Several slots may share one bucket as long
// as the bucket's local depth is lower than the global depth.
//
// The slot tables are fixed size arrays covering the deepest supported directory, only the
// first 2^globalDepth slots are in use at any instant. All concurrency control is external.
type Directory struct {
	globalDepth uint8
	blockIDs    [conf.DirectorySlots]model.BlockID
	localDepths [conf.DirectorySlots]uint8
}

// NewDirectory - Returns a pointer to a new Directory instance with global depth 0 and its
// single slot not yet referencing any bucket block
func NewDirectory() (directory *Directory) {
	directory = &Directory{}
	for i := range directory.blockIDs {
		directory.blockIDs[i] = model.NoBlock
	}

	return
}

// Size - Returns the number of slots currently addressed, 2 to the power of the global depth
func (D *Directory) Size() uint32 {
	return 1 << D.globalDepth
}

// GetGlobalDepth - Returns the number of low hash bits currently used to address the directory
func (D *Directory) GetGlobalDepth() uint8 {
	return D.globalDepth
}

// GetGlobalDepthMask - Returns a mask of global depth low bits
func (D *Directory) GetGlobalDepthMask() uint32 {
	return 1<<D.globalDepth - 1
}

// GetBucketBlockID - Returns the id of the bucket block responsible for slot i
func (D *Directory) GetBucketBlockID(i uint32) model.BlockID {
	return D.blockIDs[i]
}

// SetBucketBlockID - Sets the id of the bucket block responsible for slot i
func (D *Directory) SetBucketBlockID(i uint32, blockID model.BlockID) {
	D.blockIDs[i] = blockID
}

// GetLocalDepth - Returns the local depth of the bucket at slot i
func (D *Directory) GetLocalDepth(i uint32) uint8 {
	return D.localDepths[i]
}

// SetLocalDepth - Sets the local depth of the bucket at slot i
func (D *Directory) SetLocalDepth(i uint32, depth uint8) {
	D.localDepths[i] = depth
}

// GetLocalDepthMask - Returns a mask of local depth low bits for slot i
func (D *Directory) GetLocalDepthMask(i uint32) uint32 {
	return 1<<D.localDepths[i] - 1
}

// IncrLocalDepth - Increments the local depth of the bucket at slot i
func (D *Directory) IncrLocalDepth(i uint32) {
	D.localDepths[i]++
}

// DecrLocalDepth - Decrements the local depth of the bucket at slot i
func (D *Directory) DecrLocalDepth(i uint32) {
	D.localDepths[i]--
}

// IncrGlobalDepth - Doubles the directory. Every slot in the new upper half is initialized to
// mirror the bucket block and local depth of the slot it shadows in the old half.
func (D *Directory) IncrGlobalDepth() {
	if D.globalDepth == conf.MaxDepth {
		panic("directory already at max depth")
	}

	size := D.Size()
	for i := uint32(0); i < size; i++ {
		D.blockIDs[size+i] = D.blockIDs[i]
		D.localDepths[size+i] = D.localDepths[i]
	}

	D.globalDepth++
}

// DecrGlobalDepth - Halves the directory, discarding the upper half which by construction
// mirrors the lower half. Legal only while CanShrink holds.
func (D *Directory) DecrGlobalDepth() {
	if !D.CanShrink() {
		panic("directory can not shrink, some bucket uses all global depth bits")
	}

	D.globalDepth--
}

// CanShrink - Returns true if no bucket needs all global depth bits, i.e. the directory can halve
func (D *Directory) CanShrink() bool {
	if D.globalDepth == 0 {
		return false
	}

	for i := uint32(0); i < D.Size(); i++ {
		if D.localDepths[i] == D.globalDepth {
			return false
		}
	}

	return true
}

// GetSplitImageIndex - Returns the slot that, after a split of the bucket at slot i, addresses
// the new sibling bucket. The returned slot differs from i exactly in the bit the split brings
// into play, hence this is computed before the local depth is incremented.
func (D *Directory) GetSplitImageIndex(i uint32) uint32 {
	return i ^ 1<<D.localDepths[i]
}

// GetMergeImageIndex - Returns the slot addressing the sibling the bucket at slot i would merge
// back into, the one differing exactly in the bucket's current highest addressing bit.
// Legal only for buckets with local depth above 0.
func (D *Directory) GetMergeImageIndex(i uint32) uint32 {
	if D.localDepths[i] == 0 {
		panic("bucket at local depth 0 has no merge image")
	}

	return i ^ 1<<(D.localDepths[i]-1)
}

// VerifyIntegrity - Checks the structural invariants of the directory and panics on violation:
// every local depth is at most the global depth, all slots sharing a bucket block agree on the
// local depth, and the slots sharing a bucket are exactly the 2^(globalDepth-localDepth) slots
// whose low local depth bits coincide.
func (D *Directory) VerifyIntegrity() {
	type bucketClass struct {
		count      uint32
		localDepth uint8
		anchor     uint32
	}

	classes := make(map[model.BlockID]*bucketClass)

	for i := uint32(0); i < D.Size(); i++ {
		blockID := D.blockIDs[i]
		localDepth := D.localDepths[i]

		if blockID == model.NoBlock {
			panic(fmt.Sprintf("directory slot %d references no bucket block", i))
		}
		if localDepth > D.globalDepth {
			panic(fmt.Sprintf("local depth %d at slot %d exceeds global depth %d", localDepth, i, D.globalDepth))
		}

		class, ok := classes[blockID]
		if !ok {
			classes[blockID] = &bucketClass{count: 1, localDepth: localDepth, anchor: i}
			continue
		}

		if class.localDepth != localDepth {
			panic(fmt.Sprintf("slots %d and %d share bucket block %d but disagree on local depth (%d vs %d)",
				class.anchor, i, blockID, class.localDepth, localDepth))
		}
		if i&(1<<localDepth-1) != class.anchor&(1<<localDepth-1) {
			panic(fmt.Sprintf("slots %d and %d share bucket block %d but differ in their low %d bits",
				class.anchor, i, blockID, localDepth))
		}
		class.count++
	}

	for blockID, class := range classes {
		expected := uint32(1) << (D.globalDepth - class.localDepth)
		if class.count != expected {
			panic(fmt.Sprintf("bucket block %d at local depth %d is referenced by %d slots, expected %d",
				blockID, class.localDepth, class.count, expected))
		}
	}
}
