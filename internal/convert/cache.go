package convert

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
)

type cached struct {
	text string
	err  error
}

// Cache memoizes a Converter per path for the lifetime of one run.
// Concurrent requests for the same path share a single conversion, and
// failures are remembered like successes. Cancellations are not cached.
type Cache struct {
	conv  Converter
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]cached
}

// NewCache wraps conv.
func NewCache(conv Converter) *Cache {
	return &Cache{conv: conv, entries: make(map[string]cached)}
}

// Convert returns the memoized text of path, converting it on first use.
func (c *Cache) Convert(ctx context.Context, path string) (string, error) {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok {
		return e.text, e.err
	}

	v, err, _ := c.group.Do(path, func() (any, error) {
		c.mu.RLock()
		e, ok := c.entries[path]
		c.mu.RUnlock()
		if ok {
			return e.text, e.err
		}
		text, err := c.conv.Convert(ctx, path)
		if !apperrors.IsContextError(err) {
			c.mu.Lock()
			c.entries[path] = cached{text: text, err: err}
			c.mu.Unlock()
		}
		return text, err
	})
	text, _ := v.(string)
	return text, err
}

// Len returns the number of memoized paths.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every memoized entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]cached)
	c.mu.Unlock()
}

var _ Converter = (*Cache)(nil)
