package repository

import "sync"

// Memo stores loaded datasets by key. Implementations must be safe for
// concurrent use.
type Memo interface {
	Get(key string) (any, bool)
	Put(key string, v any)
	Clear()
}

// MapMemo is an unbounded in-process Memo.
type MapMemo struct {
	mu sync.RWMutex
	m  map[string]any
}

// NewMapMemo returns an empty MapMemo.
func NewMapMemo() *MapMemo {
	return &MapMemo{m: make(map[string]any)}
}

func (c *MapMemo) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *MapMemo) Put(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = v
}

func (c *MapMemo) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.m)
}

// Len returns the number of stored entries.
func (c *MapMemo) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
