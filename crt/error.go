package crt

// CacheFull - Custom error to inform that every frame in the block cache is pinned and no block
// could be allocated or fetched
type CacheFull struct {
	msg string
}

// Error - Used to notify that the block cache is full
func (E CacheFull) Error() string {
	if E.msg == "" {
		return "block cache full"
	}
	return E.msg
}
