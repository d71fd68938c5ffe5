package directory

import (
	"encoding/binary"
	"fmt"

	"github.com/gostonefire/extendiblemap/internal/conf"
	"github.com/gostonefire/extendiblemap/internal/model"
)

// FromBytes - Converts directory block raw data to a Directory struct
func FromBytes(buf []byte) (directory *Directory, err error) {
	expected := conf.DirectorySlotTableOffset + int64(conf.DirectorySlots)*conf.DirectorySlotLength
	if expected > int64(len(buf)) {
		err = fmt.Errorf("length of data in buf (%d) less than directory size (%d)", len(buf), expected)
		return
	}

	globalDepth := buf[conf.DirectoryGlobalDepthOffset]
	if globalDepth > conf.MaxDepth {
		err = fmt.Errorf("global depth %d in directory block exceeds max depth %d", globalDepth, conf.MaxDepth)
		return
	}

	directory = &Directory{globalDepth: globalDepth}

	offset := conf.DirectorySlotTableOffset
	for i := uint32(0); i < conf.DirectorySlots; i++ {
		directory.blockIDs[i] = model.BlockID(binary.LittleEndian.Uint32(buf[offset:]))
		directory.localDepths[i] = buf[offset+4]
		offset += conf.DirectorySlotLength
	}

	return
}

// ToBytes - Converts a Directory struct to directory block raw data, written in place into buf
func ToBytes(directory *Directory, buf []byte) {
	buf[conf.DirectoryGlobalDepthOffset] = directory.globalDepth

	offset := conf.DirectorySlotTableOffset
	for i := uint32(0); i < conf.DirectorySlots; i++ {
		binary.LittleEndian.PutUint32(buf[offset:], uint32(directory.blockIDs[i]))
		buf[offset+4] = directory.localDepths[i]
		offset += conf.DirectorySlotLength
	}
}
