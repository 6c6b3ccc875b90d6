// Package blob abstracts the backing file the schedule document is persisted
// to. The persistence engine only ever sees the Handle interface; whether the
// bytes live in a real file or in memory is the caller's choice, which keeps
// the engine fully testable without a filesystem.
package blob

import "context"

// Handle is a single writable byte blob: the session's backing store.
//
// Read returns the current contents; a store that has never been written
// reports ErrNotExist. Write replaces the contents completely and must be
// atomic: after a failed Write, a subsequent Read still returns the previous
// contents.
type Handle interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}
