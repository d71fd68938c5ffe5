package conf

// BlockSize - Size in bytes of one block, both on disk and cache resident
const BlockSize int64 = 4096

// MapFileHeaderLength - Length of the map file header preceding the first block
const MapFileHeaderLength int64 = 1024

// MaxDepth - The highest global (and hence local) depth the directory supports.
// It is the largest depth for which the full directory slot table still fits in one block.
const MaxDepth uint8 = 9

// DirectorySlots - Number of slots the directory block holds room for (2 to the power of MaxDepth)
const DirectorySlots uint32 = 1 << MaxDepth

// DirectoryGlobalDepthOffset - Directory block offset to the global depth - 1 byte
const DirectoryGlobalDepthOffset int64 = 0

// DirectorySlotTableOffset - Directory block offset to the first slot entry
const DirectorySlotTableOffset int64 = 1

// DirectorySlotLength - Length of one slot entry, a 4 byte bucket block id followed by a 1 byte local depth
const DirectorySlotLength int64 = 5

// MapFileMagic - Magic number identifying a map file created by this package
const MapFileMagic uint64 = 0x6578746d61703031

// MagicOffset - Header offset to the magic number - 8 bytes
const MagicOffset int64 = 0

// HashAlgorithmOffset - Header offset to whether using internal (1) or external (0) hash algorithm - 1 byte
const HashAlgorithmOffset int64 = 8

// KeyLengthOffset - Header offset to the key length in bucket entries - 4 bytes
const KeyLengthOffset int64 = 9

// ValueLengthOffset - Header offset to the value length in bucket entries - 4 bytes
const ValueLengthOffset int64 = 13

// BucketCapacityOffset - Header offset to number of entries per bucket block - 2 bytes
const BucketCapacityOffset int64 = 17

// DirectoryBlockOffset - Header offset to the block id of the directory block - 4 bytes
const DirectoryBlockOffset int64 = 19

// BlockCountOffset - Header offset to the number of blocks ever allocated in the file - 4 bytes
const BlockCountOffset int64 = 23

// FreeListHeadOffset - Header offset to the block id heading the free list chain - 4 bytes
const FreeListHeadOffset int64 = 27

// FileSizeOffset - Header offset to the file size (should of course reflect true file size) - 8 bytes
const FileSizeOffset int64 = 31
