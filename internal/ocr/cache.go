package ocr

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache holds OCR results keyed by story id. Entries expire after ttl and the
// least recently used entry is dropped once size is exceeded. It is safe for
// concurrent use.
type Cache struct {
	lru *expirable.LRU[string, string]
}

func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 100
	}
	return &Cache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *Cache) Get(key string) (string, bool) {
	return c.lru.Get(key)
}

func (c *Cache) Add(key, text string) {
	c.lru.Add(key, text)
}

// Len counts entries, including expired ones not yet purged.
func (c *Cache) Len() int {
	return c.lru.Len()
}
