//go:build unit

package blockcache

import (
	"os"
	"testing"

	"github.com/gostonefire/extendiblemap/internal/conf"
	"github.com/gostonefire/extendiblemap/internal/model"
	"github.com/stretchr/testify/assert"
)

const testFileName string = "test-map.bin"

func testHeader() Header {
	return Header{
		InternalAlg:    true,
		KeyLength:      16,
		ValueLength:    10,
		BucketCapacity: 32,
	}
}

func TestNewDiskManager(t *testing.T) {
	t.Run("creates a new map file with header", func(t *testing.T) {
		// Prepare

		// Execute
		diskManager, err := NewDiskManager(testFileName, testHeader())

		// Check
		assert.NoError(t, err, "create new DiskManager instance")

		header := diskManager.GetHeader()
		assert.True(t, header.InternalAlg, "internal algorithm flag preserved")
		assert.Equal(t, int64(16), header.KeyLength, "key length preserved")
		assert.Equal(t, int64(10), header.ValueLength, "value length preserved")
		assert.Equal(t, int64(32), header.BucketCapacity, "bucket capacity preserved")
		assert.Equal(t, uint32(0), header.BlockCount, "no blocks allocated yet")
		assert.Equal(t, model.NoBlock, header.FreeListHead, "free list empty")
		assert.Equal(t, int64(conf.MapFileHeaderLength), header.FileSize, "file is header only")

		stat, err := os.Stat(testFileName)
		assert.NoError(t, err, "map file exists")
		assert.Equal(t, header.FileSize, stat.Size(), "map file in correct size")

		// Clean up
		err = diskManager.RemoveFile()
		assert.NoError(t, err, "removes file")
	})
}

func TestNewDiskManagerFromExistingFile(t *testing.T) {
	t.Run("opens existing map file", func(t *testing.T) {
		// Prepare
		diskManagerInit, err := NewDiskManager(testFileName, testHeader())
		assert.NoError(t, err, "create new DiskManager instance")

		blockID, err := diskManagerInit.AllocateBlock()
		assert.NoError(t, err, "allocates a block")
		err = diskManagerInit.SetDirectoryBlock(blockID)
		assert.NoError(t, err, "records directory block")
		diskManagerInit.CloseFile()

		// Execute
		diskManager, err := NewDiskManagerFromExistingFile(testFileName)

		// Check
		assert.NoError(t, err, "opens existing file")

		header := diskManager.GetHeader()
		assert.Equal(t, int64(16), header.KeyLength, "key length preserved")
		assert.Equal(t, int64(10), header.ValueLength, "value length preserved")
		assert.Equal(t, blockID, header.DirectoryBlock, "directory block preserved")
		assert.Equal(t, uint32(1), header.BlockCount, "block count preserved")

		// Clean up
		err = diskManager.RemoveFile()
		assert.NoError(t, err, "removes file")
	})

	t.Run("gets error on missing, bogus or truncated file", func(t *testing.T) {
		// Prepare

		// Execute
		_, err := NewDiskManagerFromExistingFile(testFileName)

		// Check
		assert.Error(t, err, "gets error on missing file")

		// Prepare
		err = os.WriteFile(testFileName, make([]byte, conf.MapFileHeaderLength), 0644)
		assert.NoError(t, err, "creates a bogus file")

		// Execute
		_, err = NewDiskManagerFromExistingFile(testFileName)

		// Check
		assert.Error(t, err, "gets error on file without magic number")

		// Prepare
		diskManagerInit, err := NewDiskManager(testFileName, testHeader())
		assert.NoError(t, err, "create new DiskManager instance")
		_, err = diskManagerInit.AllocateBlock()
		assert.NoError(t, err, "allocates a block")
		diskManagerInit.CloseFile()

		err = os.Truncate(testFileName, conf.MapFileHeaderLength)
		assert.NoError(t, err, "truncates the file")

		// Execute
		_, err = NewDiskManagerFromExistingFile(testFileName)

		// Check
		assert.Error(t, err, "gets error on file size mismatch")

		// Clean up
		err = os.Remove(testFileName)
		assert.NoError(t, err, "removes file")
	})
}

func TestDiskManager_AllocateBlock(t *testing.T) {
	t.Run("extends file with sequential blocks", func(t *testing.T) {
		// Prepare
		diskManager, err := NewDiskManager(testFileName, testHeader())
		assert.NoError(t, err, "create new DiskManager instance")

		// Execute and Check
		for i := uint32(0); i < 3; i++ {
			blockID, err := diskManager.AllocateBlock()
			assert.NoErrorf(t, err, "allocates block #%d", i)
			assert.Equalf(t, model.BlockID(i), blockID, "block #%d gets sequential id", i)
		}

		header := diskManager.GetHeader()
		assert.Equal(t, uint32(3), header.BlockCount, "block count follows allocations")
		assert.Equal(t, int64(conf.MapFileHeaderLength+3*conf.BlockSize), header.FileSize, "file size follows allocations")

		stat, err := os.Stat(testFileName)
		assert.NoError(t, err, "map file exists")
		assert.Equal(t, header.FileSize, stat.Size(), "map file in correct size")

		// Clean up
		err = diskManager.RemoveFile()
		assert.NoError(t, err, "removes file")
	})

	t.Run("reuses freed blocks in reverse free order", func(t *testing.T) {
		// Prepare
		diskManager, err := NewDiskManager(testFileName, testHeader())
		assert.NoError(t, err, "create new DiskManager instance")

		for i := 0; i < 3; i++ {
			_, err = diskManager.AllocateBlock()
			assert.NoErrorf(t, err, "allocates block #%d", i)
		}

		err = diskManager.FreeBlock(1)
		assert.NoError(t, err, "frees block 1")
		err = diskManager.FreeBlock(2)
		assert.NoError(t, err, "frees block 2")

		// Execute
		first, err1 := diskManager.AllocateBlock()
		second, err2 := diskManager.AllocateBlock()
		third, err3 := diskManager.AllocateBlock()

		// Check
		assert.NoError(t, err1, "allocates first block")
		assert.NoError(t, err2, "allocates second block")
		assert.NoError(t, err3, "allocates third block")
		assert.Equal(t, model.BlockID(2), first, "last freed block reused first")
		assert.Equal(t, model.BlockID(1), second, "first freed block reused second")
		assert.Equal(t, model.BlockID(3), third, "file extended when free list exhausted")

		// Clean up
		err = diskManager.RemoveFile()
		assert.NoError(t, err, "removes file")
	})

	t.Run("free list survives reopen", func(t *testing.T) {
		// Prepare
		diskManagerInit, err := NewDiskManager(testFileName, testHeader())
		assert.NoError(t, err, "create new DiskManager instance")

		for i := 0; i < 2; i++ {
			_, err = diskManagerInit.AllocateBlock()
			assert.NoErrorf(t, err, "allocates block #%d", i)
		}
		err = diskManagerInit.FreeBlock(0)
		assert.NoError(t, err, "frees block 0")
		diskManagerInit.CloseFile()

		diskManager, err := NewDiskManagerFromExistingFile(testFileName)
		assert.NoError(t, err, "opens existing file")

		// Execute
		blockID, err := diskManager.AllocateBlock()

		// Check
		assert.NoError(t, err, "allocates a block")
		assert.Equal(t, model.BlockID(0), blockID, "freed block reused after reopen")

		// Clean up
		err = diskManager.RemoveFile()
		assert.NoError(t, err, "removes file")
	})
}

func TestDiskManager_WriteBlock(t *testing.T) {
	t.Run("round trips block contents", func(t *testing.T) {
		// Prepare
		diskManager, err := NewDiskManager(testFileName, testHeader())
		assert.NoError(t, err, "create new DiskManager instance")

		blockID, err := diskManager.AllocateBlock()
		assert.NoError(t, err, "allocates a block")

		buf := make([]byte, conf.BlockSize)
		for i := range buf {
			buf[i] = byte(i)
		}

		// Execute
		err = diskManager.WriteBlock(blockID, buf)

		// Check
		assert.NoError(t, err, "writes block")

		readBuf := make([]byte, conf.BlockSize)
		err = diskManager.ReadBlock(blockID, readBuf)
		assert.NoError(t, err, "reads block")
		assert.Equal(t, buf, readBuf, "block contents preserved")

		// Clean up
		err = diskManager.RemoveFile()
		assert.NoError(t, err, "removes file")
	})
}
