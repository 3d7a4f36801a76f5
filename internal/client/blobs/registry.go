// Package blobs keeps audio payloads of the current session addressable by
// opaque "blob:<uuid>" handles. Handles are never persisted.
package blobs

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const scheme = "blob:"

type Blob struct {
	Data        []byte
	ContentType string
}

type Registry struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

func NewRegistry() *Registry {
	return &Registry{blobs: make(map[string]Blob)}
}

// Mint stores data and returns a new handle for it.
func (r *Registry) Mint(data []byte, contentType string) string {
	handle := scheme + uuid.NewString()
	r.mu.Lock()
	r.blobs[handle] = Blob{Data: data, ContentType: contentType}
	r.mu.Unlock()
	return handle
}

func (r *Registry) Get(handle string) (Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[handle]
	return b, ok
}

// Revoke releases the payload of handle. Unknown handles are ignored.
func (r *Registry) Revoke(handle string) {
	if !IsHandle(handle) {
		return
	}
	r.mu.Lock()
	delete(r.blobs, handle)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}

// IsHandle reports whether s looks like a handle minted by a Registry.
func IsHandle(s string) bool {
	return strings.HasPrefix(s, scheme)
}
