package blockcache

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/gostonefire/extendiblemap/internal/conf"
	"github.com/gostonefire/extendiblemap/internal/model"
)

// DiskManager - Manages the map file as an array of fixed size blocks following a fixed size header.
// Freed blocks are kept in a free list chained through the first four bytes of each freed block,
// with the head of the chain recorded in the header. A block being split off from the chain is hence
// never handed out while still referenced by live data, which is a precondition the hash map engine
// relies upon when allocating split image buckets.
type DiskManager struct {
	fileName string
	file     *os.File
	header   Header
}

// NewDiskManager - Returns a pointer to a new DiskManager instance over a new map file.
// It always creates a new file (or opens and truncates an existing file).
//   - fileName is the name of the map file to create
//   - header is a Header struct with the map parameters to persist in the file header
//
// It returns:
//   - diskManager which is a pointer to the created instance
//   - err which is a standard Go type of error
func NewDiskManager(fileName string, header Header) (diskManager *DiskManager, err error) {
	file, err := os.OpenFile(fileName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		err = fmt.Errorf("error while creating map file: %s", err)
		return
	}

	header.BlockCount = 0
	header.FreeListHead = model.NoBlock
	header.FileSize = conf.MapFileHeaderLength

	diskManager = &DiskManager{
		fileName: fileName,
		file:     file,
		header:   header,
	}

	err = diskManager.writeHeader()
	if err != nil {
		_ = file.Close()
		diskManager = nil
		return
	}

	return
}

// NewDiskManagerFromExistingFile - Returns a pointer to a new DiskManager instance over an existing
// map file. If the file doesn't exist, doesn't have a valid header or if its file size doesn't conform
// with the size from the header it fails with error.
//   - fileName is the name of an existing map file
//
// It returns:
//   - diskManager which is a pointer to the created instance
//   - err which is a standard Go type of error
func NewDiskManagerFromExistingFile(fileName string) (diskManager *DiskManager, err error) {
	stat, ok := os.Stat(fileName)
	if ok != nil {
		err = fmt.Errorf("map file not found")
		return
	}

	file, err := os.OpenFile(fileName, os.O_RDWR, 0644)
	if err != nil {
		err = fmt.Errorf("unable to open existing map file: %s", err)
		return
	}

	buf := make([]byte, conf.MapFileHeaderLength)
	_, err = file.ReadAt(buf, 0)
	if err != nil {
		_ = file.Close()
		err = fmt.Errorf("unable to read header from map file: %s", err)
		return
	}

	if binary.LittleEndian.Uint64(buf[conf.MagicOffset:]) != conf.MapFileMagic {
		_ = file.Close()
		err = fmt.Errorf("map file is not an extendiblemap file")
		return
	}

	header := bytesToHeader(buf)
	if stat.Size() != header.FileSize {
		_ = file.Close()
		err = fmt.Errorf("actual file size doesn't conform with header indicated file size")
		return
	}

	diskManager = &DiskManager{
		fileName: fileName,
		file:     file,
		header:   header,
	}

	return
}

// GetHeader - Returns a copy of the current file header
func (D *DiskManager) GetHeader() (header Header) {
	return D.header
}

// SetDirectoryBlock - Records the block id of the directory block in the file header
func (D *DiskManager) SetDirectoryBlock(blockID model.BlockID) (err error) {
	D.header.DirectoryBlock = blockID
	err = D.writeHeader()

	return
}

// ReadBlock - Reads the contents of the given block from file into buf.
//   - blockID is the block to read
//   - buf is the destination, it must be of length conf.BlockSize
func (D *DiskManager) ReadBlock(blockID model.BlockID, buf []byte) (err error) {
	_, err = D.file.ReadAt(buf, D.blockAddress(blockID))
	if err != nil {
		err = fmt.Errorf("error while reading block %d from map file: %s", blockID, err)
	}

	return
}

// WriteBlock - Writes buf to the given block in file.
//   - blockID is the block to write
//   - buf is the source, it must be of length conf.BlockSize
func (D *DiskManager) WriteBlock(blockID model.BlockID, buf []byte) (err error) {
	_, err = D.file.WriteAt(buf, D.blockAddress(blockID))
	if err != nil {
		err = fmt.Errorf("error while writing block %d to map file: %s", blockID, err)
	}

	return
}

// AllocateBlock - Returns the id of a fresh block. A block from the free list is reused if
// available, otherwise the file is extended by one zeroed block.
func (D *DiskManager) AllocateBlock() (blockID model.BlockID, err error) {
	if D.header.FreeListHead != model.NoBlock {
		blockID = D.header.FreeListHead

		// The first four bytes of a freed block link to the next block in the free list
		link := make([]byte, 4)
		_, err = D.file.ReadAt(link, D.blockAddress(blockID))
		if err != nil {
			err = fmt.Errorf("error while reading free list link from block %d: %s", blockID, err)
			return
		}

		D.header.FreeListHead = model.BlockID(binary.LittleEndian.Uint32(link))
		err = D.writeHeader()
		return
	}

	blockID = model.BlockID(D.header.BlockCount)

	_, err = D.file.WriteAt(make([]byte, conf.BlockSize), D.blockAddress(blockID))
	if err != nil {
		err = fmt.Errorf("error while extending map file with block %d: %s", blockID, err)
		return
	}

	D.header.BlockCount++
	D.header.FileSize += conf.BlockSize
	err = D.writeHeader()

	return
}

// FreeBlock - Returns the given block to the free list
func (D *DiskManager) FreeBlock(blockID model.BlockID) (err error) {
	link := make([]byte, 4)
	binary.LittleEndian.PutUint32(link, uint32(D.header.FreeListHead))

	_, err = D.file.WriteAt(link, D.blockAddress(blockID))
	if err != nil {
		err = fmt.Errorf("error while writing free list link to block %d: %s", blockID, err)
		return
	}

	D.header.FreeListHead = blockID
	err = D.writeHeader()

	return
}

// CloseFile - Closes the map file
func (D *DiskManager) CloseFile() {
	if D.file != nil {
		_ = D.file.Sync()
		_ = D.file.Close()
		D.file = nil
	}
}

// RemoveFile - Removes the map file if it exists.
// The function first internally tries to close it using CloseFile.
func (D *DiskManager) RemoveFile() (err error) {
	D.CloseFile()

	if _, ok := os.Stat(D.fileName); ok == nil {
		err = os.Remove(D.fileName)
		if err != nil {
			err = fmt.Errorf("error while removing map file: %s", err)
			return
		}
	}

	return
}

// writeHeader - Writes the in memory header to file
func (D *DiskManager) writeHeader() (err error) {
	buf := headerToBytes(D.header)

	_, err = D.file.WriteAt(buf, 0)
	if err != nil {
		err = fmt.Errorf("error while writing header to map file: %s", err)
	}

	return
}

// blockAddress - Returns the file offset of the given block
func (D *DiskManager) blockAddress(blockID model.BlockID) (address int64) {
	return conf.MapFileHeaderLength + int64(blockID)*conf.BlockSize
}
