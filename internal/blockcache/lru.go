package blockcache

import (
	"container/list"

	"github.com/gostonefire/extendiblemap/internal/model"
)

// lruReplacer - Tracks the set of unpinned blocks resident in the cache and picks the least
// recently used one when a frame has to be reclaimed
type lruReplacer struct {
	items     map[model.BlockID]*list.Element
	evictList *list.List
}

// newLRUReplacer - Returns a pointer to a new lruReplacer instance
func newLRUReplacer() *lruReplacer {
	return &lruReplacer{
		items:     make(map[model.BlockID]*list.Element),
		evictList: list.New(),
	}
}

// insert - Makes the given block evictable, placing it as most recently used
func (L *lruReplacer) insert(blockID model.BlockID) {
	if element, ok := L.items[blockID]; ok {
		L.evictList.MoveToFront(element)
		return
	}

	L.items[blockID] = L.evictList.PushFront(blockID)
}

// remove - Takes the given block out of the evictable set, typically because it got pinned again
func (L *lruReplacer) remove(blockID model.BlockID) {
	if element, ok := L.items[blockID]; ok {
		L.evictList.Remove(element)
		delete(L.items, blockID)
	}
}

// victim - Returns the least recently used evictable block, or false if none is evictable
func (L *lruReplacer) victim() (blockID model.BlockID, ok bool) {
	element := L.evictList.Back()
	if element == nil {
		return
	}

	blockID = element.Value.(model.BlockID)
	L.evictList.Remove(element)
	delete(L.items, blockID)
	ok = true

	return
}
