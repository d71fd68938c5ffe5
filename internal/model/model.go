package model

// BlockID - Identifies one fixed size block in the map file
type BlockID uint32

// NoBlock - Marker for a block id that doesn't reference any block
const NoBlock BlockID = 0xffffffff

// Entry - Represents one key/value pair stored in a bucket
type Entry struct {
	Key   []byte
	Value []byte
}
