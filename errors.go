package extendiblemap

// NoEntryFound - Custom error to inform that no matching entry was found
type NoEntryFound struct {
	msg string
}

// Error - Used to notify that no entry was found
func (E NoEntryFound) Error() string {
	if E.msg == "" {
		return "no entry found"
	}
	return E.msg
}

// DuplicateEntry - Custom error to inform that the exact key/value pair is already stored
type DuplicateEntry struct {
	msg string
}

// Error - Used to notify that the entry is already stored
func (E DuplicateEntry) Error() string {
	if E.msg == "" {
		return "entry already stored"
	}
	return E.msg
}

// TableFull - Custom error to inform that the directory has reached its max depth and an
// overflowing bucket can not split any further
type TableFull struct {
	msg string
}

// Error - Used to notify that the hash map can't take more entries with colliding hashes
func (E TableFull) Error() string {
	if E.msg == "" {
		return "hash map directory at max depth, bucket can not split further"
	}
	return E.msg
}
