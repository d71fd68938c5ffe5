//go:build unit

package directory

import (
	"testing"

	"github.com/gostonefire/extendiblemap/internal/conf"
	"github.com/gostonefire/extendiblemap/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestNewDirectory(t *testing.T) {
	t.Run("creates a new directory at global depth 0", func(t *testing.T) {
		// Prepare

		// Execute
		dir := NewDirectory()

		// Check
		assert.Equal(t, uint8(0), dir.GetGlobalDepth(), "starts at global depth 0")
		assert.Equal(t, uint32(1), dir.Size(), "one slot addressed")
		assert.Equal(t, uint32(0), dir.GetGlobalDepthMask(), "empty mask at depth 0")
		assert.Equal(t, model.NoBlock, dir.GetBucketBlockID(0), "no bucket block referenced yet")

		// Clean up
	})
}

func TestDirectory_IncrGlobalDepth(t *testing.T) {
	t.Run("mirrors lower half into upper half", func(t *testing.T) {
		// Prepare
		dir := NewDirectory()
		dir.SetBucketBlockID(0, 7)
		dir.SetLocalDepth(0, 0)

		// Execute
		dir.IncrGlobalDepth()

		// Check
		assert.Equal(t, uint8(1), dir.GetGlobalDepth(), "global depth incremented")
		assert.Equal(t, uint32(2), dir.Size(), "two slots addressed")
		assert.Equal(t, uint32(1), dir.GetGlobalDepthMask(), "mask covers one bit")
		assert.Equal(t, model.BlockID(7), dir.GetBucketBlockID(1), "upper slot mirrors bucket block")
		assert.Equal(t, uint8(0), dir.GetLocalDepth(1), "upper slot mirrors local depth")

		// Clean up
	})

	t.Run("panics at max depth", func(t *testing.T) {
		// Prepare
		dir := NewDirectory()
		for i := uint8(0); i < conf.MaxDepth; i++ {
			dir.IncrGlobalDepth()
		}
		assert.Equal(t, conf.MaxDepth, dir.GetGlobalDepth(), "at max depth")

		// Execute and Check
		assert.Panics(t, func() { dir.IncrGlobalDepth() }, "panics on growth beyond max depth")

		// Clean up
	})
}

func TestDirectory_DecrGlobalDepth(t *testing.T) {
	t.Run("halves the directory", func(t *testing.T) {
		// Prepare
		dir := NewDirectory()
		dir.SetBucketBlockID(0, 7)
		dir.SetLocalDepth(0, 0)
		dir.IncrGlobalDepth()

		// Execute
		dir.DecrGlobalDepth()

		// Check
		assert.Equal(t, uint8(0), dir.GetGlobalDepth(), "back at global depth 0")
		assert.Equal(t, uint32(1), dir.Size(), "one slot addressed")

		// Clean up
	})

	t.Run("panics when a bucket uses all global depth bits", func(t *testing.T) {
		// Prepare
		dir := NewDirectory()
		dir.SetBucketBlockID(0, 7)
		dir.IncrGlobalDepth()
		dir.SetBucketBlockID(1, 8)
		dir.SetLocalDepth(0, 1)
		dir.SetLocalDepth(1, 1)

		// Execute and Check
		assert.False(t, dir.CanShrink(), "can not shrink with buckets at full depth")
		assert.Panics(t, func() { dir.DecrGlobalDepth() }, "panics on illegal shrink")
		assert.Panics(t, func() { NewDirectory().DecrGlobalDepth() }, "panics on shrink at depth 0")

		// Clean up
	})
}

func TestDirectory_CanShrink(t *testing.T) {
	t.Run("allows shrink when all local depths are below global", func(t *testing.T) {
		// Prepare
		dir := NewDirectory()
		dir.SetBucketBlockID(0, 7)
		dir.IncrGlobalDepth()
		dir.IncrGlobalDepth()
		for i := uint32(0); i < dir.Size(); i++ {
			dir.SetLocalDepth(i, 1)
		}
		dir.SetBucketBlockID(1, 8)
		dir.SetBucketBlockID(3, 8)

		// Execute and Check
		assert.True(t, dir.CanShrink(), "local depths below global depth")

		dir.DecrGlobalDepth()
		assert.False(t, dir.CanShrink(), "local depths now at global depth")

		// Clean up
	})
}

func TestDirectory_GetSplitImageIndex(t *testing.T) {
	t.Run("differs in the bit the split brings into play", func(t *testing.T) {
		// Prepare
		dir := NewDirectory()
		dir.IncrGlobalDepth()
		dir.IncrGlobalDepth()
		dir.SetLocalDepth(1, 1)

		// Execute and Check
		assert.Equal(t, uint32(3), dir.GetSplitImageIndex(1), "slot 1 at local depth 1 splits against slot 3")

		dir.SetLocalDepth(0, 0)
		assert.Equal(t, uint32(1), dir.GetSplitImageIndex(0), "slot 0 at local depth 0 splits against slot 1")

		// Clean up
	})
}

func TestDirectory_GetMergeImageIndex(t *testing.T) {
	t.Run("differs in the bucket's highest addressing bit", func(t *testing.T) {
		// Prepare
		dir := NewDirectory()
		dir.IncrGlobalDepth()
		dir.IncrGlobalDepth()
		dir.SetLocalDepth(3, 2)
		dir.SetLocalDepth(2, 1)

		// Execute and Check
		assert.Equal(t, uint32(1), dir.GetMergeImageIndex(3), "slot 3 at local depth 2 merges against slot 1")
		assert.Equal(t, uint32(3), dir.GetMergeImageIndex(2), "slot 2 at local depth 1 merges against slot 3")
		assert.Panics(t, func() { NewDirectory().GetMergeImageIndex(0) }, "panics at local depth 0")

		// Clean up
	})
}

func TestDirectory_VerifyIntegrity(t *testing.T) {
	t.Run("accepts a consistent directory", func(t *testing.T) {
		// Prepare
		dir := NewDirectory()
		dir.SetBucketBlockID(0, 7)
		dir.IncrGlobalDepth()
		dir.IncrGlobalDepth()
		dir.SetBucketBlockID(1, 8)
		dir.SetBucketBlockID(3, 9)
		dir.SetLocalDepth(0, 1)
		dir.SetLocalDepth(2, 1)
		dir.SetLocalDepth(1, 2)
		dir.SetLocalDepth(3, 2)

		// Execute and Check
		assert.NotPanics(t, func() { dir.VerifyIntegrity() }, "consistent directory passes")

		// Clean up
	})

	t.Run("panics on inconsistencies", func(t *testing.T) {
		// Prepare
		missing := NewDirectory()

		depthTooHigh := NewDirectory()
		depthTooHigh.SetBucketBlockID(0, 7)
		depthTooHigh.SetLocalDepth(0, 1)

		disagree := NewDirectory()
		disagree.SetBucketBlockID(0, 7)
		disagree.IncrGlobalDepth()
		disagree.SetLocalDepth(1, 1)

		wrongCount := NewDirectory()
		wrongCount.SetBucketBlockID(0, 7)
		wrongCount.IncrGlobalDepth()
		wrongCount.SetBucketBlockID(1, 8)
		wrongCount.SetLocalDepth(0, 0)
		wrongCount.SetLocalDepth(1, 0)

		// Execute and Check
		assert.Panics(t, func() { missing.VerifyIntegrity() }, "panics on slot without bucket block")
		assert.Panics(t, func() { depthTooHigh.VerifyIntegrity() }, "panics on local depth above global depth")
		assert.Panics(t, func() { disagree.VerifyIntegrity() }, "panics on local depth disagreement")
		assert.Panics(t, func() { wrongCount.VerifyIntegrity() }, "panics on wrong slot count per bucket")

		// Clean up
	})
}

func TestFromBytes(t *testing.T) {
	t.Run("converts directory block raw data to a Directory struct", func(t *testing.T) {
		// Prepare
		original := NewDirectory()
		original.SetBucketBlockID(0, 7)
		original.IncrGlobalDepth()
		original.SetBucketBlockID(1, 8)
		original.SetLocalDepth(0, 1)
		original.SetLocalDepth(1, 1)

		buf := make([]byte, conf.BlockSize)
		ToBytes(original, buf)

		// Execute
		dir, err := FromBytes(buf)

		// Check
		assert.NoError(t, err, "converts raw data")
		assert.Equal(t, original.GetGlobalDepth(), dir.GetGlobalDepth(), "global depth preserved")
		for i := uint32(0); i < original.Size(); i++ {
			assert.Equalf(t, original.GetBucketBlockID(i), dir.GetBucketBlockID(i), "bucket block of slot %d preserved", i)
			assert.Equalf(t, original.GetLocalDepth(i), dir.GetLocalDepth(i), "local depth of slot %d preserved", i)
		}

		// Clean up
	})

	t.Run("gets error on bad raw data", func(t *testing.T) {
		// Prepare
		short := make([]byte, 10)

		badDepth := make([]byte, conf.BlockSize)
		badDepth[conf.DirectoryGlobalDepthOffset] = conf.MaxDepth + 1

		// Execute
		_, errShort := FromBytes(short)
		_, errDepth := FromBytes(badDepth)

		// Check
		assert.Error(t, errShort, "gets error on too short buffer")
		assert.Error(t, errDepth, "gets error on global depth above max depth")

		// Clean up
	})
}
