package mcp

import (
	"sync"

	"github.com/sandevgo/kbqa/internal/core"
)

// DirectoryCache holds the responder list built from the connected servers.
// Connection changes invalidate it.
type DirectoryCache struct {
	mu         sync.RWMutex
	responders []core.Responder
	valid      bool
}

func NewDirectoryCache() *DirectoryCache {
	return &DirectoryCache{}
}

func (c *DirectoryCache) Get() ([]core.Responder, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid {
		return nil, false
	}
	out := make([]core.Responder, len(c.responders))
	copy(out, c.responders)
	return out, true
}

func (c *DirectoryCache) Update(responders []core.Responder) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = true
	c.responders = make([]core.Responder, len(responders))
	copy(c.responders, responders)
}

func (c *DirectoryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = false
	c.responders = nil
}
