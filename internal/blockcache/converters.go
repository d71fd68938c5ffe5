package blockcache

import (
	"encoding/binary"

	"github.com/gostonefire/extendiblemap/internal/conf"
	"github.com/gostonefire/extendiblemap/internal/model"
)

// Header - Represents the map file header data
type Header struct {
	InternalAlg    bool
	KeyLength      int64
	ValueLength    int64
	BucketCapacity int64
	DirectoryBlock model.BlockID
	BlockCount     uint32
	FreeListHead   model.BlockID
	FileSize       int64
}

// bytesToHeader - Converts a slice of bytes to a Header struct
func bytesToHeader(buf []byte) (header Header) {
	header = Header{
		InternalAlg:    buf[conf.HashAlgorithmOffset] == 1,
		KeyLength:      int64(binary.LittleEndian.Uint32(buf[conf.KeyLengthOffset:])),
		ValueLength:    int64(binary.LittleEndian.Uint32(buf[conf.ValueLengthOffset:])),
		BucketCapacity: int64(binary.LittleEndian.Uint16(buf[conf.BucketCapacityOffset:])),
		DirectoryBlock: model.BlockID(binary.LittleEndian.Uint32(buf[conf.DirectoryBlockOffset:])),
		BlockCount:     binary.LittleEndian.Uint32(buf[conf.BlockCountOffset:]),
		FreeListHead:   model.BlockID(binary.LittleEndian.Uint32(buf[conf.FreeListHeadOffset:])),
		FileSize:       int64(binary.LittleEndian.Uint64(buf[conf.FileSizeOffset:])),
	}

	return
}

// headerToBytes - Converts a Header struct to a slice of bytes
func headerToBytes(header Header) (buf []byte) {
	// Create byte buffer
	buf = make([]byte, conf.MapFileHeaderLength)

	binary.LittleEndian.PutUint64(buf[conf.MagicOffset:], conf.MapFileMagic)

	if header.InternalAlg {
		buf[conf.HashAlgorithmOffset] = 1
	}

	binary.LittleEndian.PutUint32(buf[conf.KeyLengthOffset:], uint32(header.KeyLength))
	binary.LittleEndian.PutUint32(buf[conf.ValueLengthOffset:], uint32(header.ValueLength))
	binary.LittleEndian.PutUint16(buf[conf.BucketCapacityOffset:], uint16(header.BucketCapacity))
	binary.LittleEndian.PutUint32(buf[conf.DirectoryBlockOffset:], uint32(header.DirectoryBlock))
	binary.LittleEndian.PutUint32(buf[conf.BlockCountOffset:], header.BlockCount)
	binary.LittleEndian.PutUint32(buf[conf.FreeListHeadOffset:], uint32(header.FreeListHead))
	binary.LittleEndian.PutUint64(buf[conf.FileSizeOffset:], uint64(header.FileSize))

	return
}
