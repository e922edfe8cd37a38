package discovery

import (
	"os"
	"strconv"
	"sync"
)

// Cache keeps file contents keyed by path, size and modification time, so a
// file referenced by several containers is read once and a changed file is
// read again.
type Cache struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewCache() *Cache {
	return &Cache{
		items: make(map[string][]byte),
	}
}

func (c *Cache) Get(path string, info os.FileInfo) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[makeCacheKey(path, info)]
	return val, ok
}

func (c *Cache) Set(path string, info os.FileInfo, content []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[makeCacheKey(path, info)] = content
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string][]byte)
}

func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func makeCacheKey(path string, info os.FileInfo) string {
	return path + "|" + strconv.FormatInt(info.Size(), 10) + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
}
