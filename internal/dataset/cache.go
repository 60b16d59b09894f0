package dataset

import (
	"sync"
	"sync/atomic"

	"github.com/boddenberg/fintrack-go/internal/domain"
)

// Cache holds the process-wide dataset snapshot. It is written at most once;
// readers that observe nil treat it as "no dataset".
type Cache struct {
	once sync.Once
	ptr  atomic.Pointer[domain.DatasetPatterns]
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Load returns the snapshot or nil.
func (c *Cache) Load() *domain.DatasetPatterns {
	if c == nil {
		return nil
	}
	return c.ptr.Load()
}

// Set stores p if nothing was stored before and reports whether it did.
func (c *Cache) Set(p *domain.DatasetPatterns) bool {
	stored := false
	c.once.Do(func() {
		c.ptr.Store(p)
		stored = true
	})
	return stored
}
