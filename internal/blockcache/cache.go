package blockcache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gostonefire/extendiblemap/crt"
	"github.com/gostonefire/extendiblemap/internal/conf"
	"github.com/gostonefire/extendiblemap/internal/model"
)

// CacheStats - Counters on the overall cache usage
//   - Hits is the number of fetches satisfied from a resident frame
//   - Misses is the number of fetches that had to read the block from file
//   - Evictions is the number of resident blocks reclaimed to make room for others
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache - A block cache holding a fixed number of fixed size blocks resident in memory.
// Blocks are handed out pinned and must be unpinned exactly once per NewBlock/FetchBlock,
// with a dirty marker when the caller has mutated the frame contents. Only unpinned blocks
// are eligible for eviction, least recently used first.
//
// The cache guards its own bookkeeping with an internal latch, so concurrent fetch/unpin of
// different blocks is safe. Consistency of the block contents is up to the caller.
type Cache struct {
	mu       sync.Mutex
	disk     *DiskManager
	frames   [][]byte
	frameIDs []model.BlockID
	pins     []int
	dirty    []bool
	table    map[model.BlockID]int
	free     []int
	replacer *lruReplacer

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewCache - Returns a pointer to a new Cache instance
//   - disk is the DiskManager managing the backing map file
//   - frameCount is the number of blocks the cache keeps resident
func NewCache(disk *DiskManager, frameCount int) *Cache {
	frames := make([][]byte, frameCount)
	free := make([]int, frameCount)
	for i := range frames {
		frames[i] = make([]byte, conf.BlockSize)
		free[i] = frameCount - 1 - i
	}

	return &Cache{
		disk:     disk,
		frames:   frames,
		frameIDs: make([]model.BlockID, frameCount),
		pins:     make([]int, frameCount),
		dirty:    make([]bool, frameCount),
		table:    make(map[model.BlockID]int),
		free:     free,
		replacer: newLRUReplacer(),
	}
}

// NewBlock - Allocates a fresh zeroed block, pins it and returns its id together with its
// cache resident storage. If every frame is pinned an error of type crt.CacheFull is returned
// and no block is allocated.
func (C *Cache) NewBlock() (blockID model.BlockID, buf []byte, err error) {
	C.mu.Lock()
	defer C.mu.Unlock()

	frame, err := C.acquireFrame()
	if err != nil {
		return
	}

	blockID, err = C.disk.AllocateBlock()
	if err != nil {
		C.free = append(C.free, frame)
		return
	}

	clear(C.frames[frame])
	C.frameIDs[frame] = blockID
	C.pins[frame] = 1
	C.dirty[frame] = true
	C.table[blockID] = frame
	buf = C.frames[frame]

	return
}

// FetchBlock - Pins an existing block and returns its cache resident storage, reading it from
// file if not already resident. If it isn't resident and every frame is pinned an error of
// type crt.CacheFull is returned.
func (C *Cache) FetchBlock(blockID model.BlockID) (buf []byte, err error) {
	C.mu.Lock()
	defer C.mu.Unlock()

	if frame, ok := C.table[blockID]; ok {
		C.hits.Add(1)
		C.pins[frame]++
		C.replacer.remove(blockID)
		buf = C.frames[frame]
		return
	}

	frame, err := C.acquireFrame()
	if err != nil {
		return
	}

	err = C.disk.ReadBlock(blockID, C.frames[frame])
	if err != nil {
		C.free = append(C.free, frame)
		return
	}

	C.misses.Add(1)
	C.frameIDs[frame] = blockID
	C.pins[frame] = 1
	C.dirty[frame] = false
	C.table[blockID] = frame
	buf = C.frames[frame]

	return
}

// UnpinBlock - Releases one pin on the given block, marking the frame dirty if the caller has
// mutated it. It is an error to unpin a block that isn't resident or isn't pinned.
func (C *Cache) UnpinBlock(blockID model.BlockID, isDirty bool) (err error) {
	C.mu.Lock()
	defer C.mu.Unlock()

	frame, ok := C.table[blockID]
	if !ok {
		err = fmt.Errorf("block %d is not resident in cache", blockID)
		return
	}
	if C.pins[frame] == 0 {
		err = fmt.Errorf("block %d is not pinned", blockID)
		return
	}

	C.pins[frame]--
	if isDirty {
		C.dirty[frame] = true
	}
	if C.pins[frame] == 0 {
		C.replacer.insert(blockID)
	}

	return
}

// DeleteBlock - Frees the given block permanently, returning it to the disk manager free list.
// The block must be unpinned.
func (C *Cache) DeleteBlock(blockID model.BlockID) (err error) {
	C.mu.Lock()
	defer C.mu.Unlock()

	if frame, ok := C.table[blockID]; ok {
		if C.pins[frame] > 0 {
			err = fmt.Errorf("block %d is still pinned and can not be deleted", blockID)
			return
		}

		C.replacer.remove(blockID)
		delete(C.table, blockID)
		C.dirty[frame] = false
		C.free = append(C.free, frame)
	}

	err = C.disk.FreeBlock(blockID)

	return
}

// FlushAll - Writes every dirty resident block to file
func (C *Cache) FlushAll() (err error) {
	C.mu.Lock()
	defer C.mu.Unlock()

	return C.flushAll()
}

// flushAll - Writes every dirty resident block to file, caller must hold the latch
func (C *Cache) flushAll() (err error) {
	for blockID, frame := range C.table {
		if !C.dirty[frame] {
			continue
		}
		err = C.disk.WriteBlock(blockID, C.frames[frame])
		if err != nil {
			return
		}
		C.dirty[frame] = false
	}

	return
}

// Stats - Returns counters on the overall cache usage
func (C *Cache) Stats() (stats CacheStats) {
	return CacheStats{
		Hits:      C.hits.Load(),
		Misses:    C.misses.Load(),
		Evictions: C.evictions.Load(),
	}
}

// CloseFile - Flushes all dirty blocks and closes the map file
func (C *Cache) CloseFile() (err error) {
	C.mu.Lock()
	defer C.mu.Unlock()

	err = C.flushAll()
	C.disk.CloseFile()

	return
}

// RemoveFile - Removes the map file if it exists.
// The function first internally tries to close it using CloseFile.
func (C *Cache) RemoveFile() (err error) {
	C.mu.Lock()
	defer C.mu.Unlock()

	C.disk.CloseFile()
	err = C.disk.RemoveFile()

	return
}

// acquireFrame - Returns a free frame, evicting the least recently used unpinned block if
// no frame is free. Returns an error of type crt.CacheFull if every frame is pinned.
func (C *Cache) acquireFrame() (frame int, err error) {
	if n := len(C.free); n > 0 {
		frame = C.free[n-1]
		C.free = C.free[:n-1]
		return
	}

	victimID, ok := C.replacer.victim()
	if !ok {
		err = crt.CacheFull{}
		return
	}

	frame = C.table[victimID]
	if C.dirty[frame] {
		err = C.disk.WriteBlock(victimID, C.frames[frame])
		if err != nil {
			// Leave the victim where it was, the frame is not reclaimed on a failed flush
			C.replacer.insert(victimID)
			return
		}
		C.dirty[frame] = false
	}

	C.evictions.Add(1)
	delete(C.table, victimID)

	return
}
