package cache

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/inodb/oncokb-transcript/internal/genome"
)

// Kind names the entity type a cache entry holds.
type Kind int

const (
	// KindCanonicalTranscript entries hold the canonical *Transcript keyed by Entrez gene id.
	KindCanonicalTranscript Kind = iota
	// KindTranscript entries hold a *Transcript keyed by Ensembl transcript id.
	KindTranscript
	// KindSequence entries hold a ProteinSequence keyed by Ensembl protein id.
	KindSequence
	// KindCanonicalID entries hold a canonical transcript id string keyed by Hugo symbol.
	KindCanonicalID
)

func (k Kind) String() string {
	switch k {
	case KindCanonicalTranscript:
		return "canonical_transcript"
	case KindTranscript:
		return "transcript"
	case KindSequence:
		return "sequence"
	case KindCanonicalID:
		return "canonical_id"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Key identifies a cache entry.
type Key struct {
	Kind     Kind
	ID       string
	Assembly genome.Assembly
}

func (k Key) String() string {
	return k.Kind.String() + "/" + k.ID + "/" + string(k.Assembly)
}

// Cache is a concurrency-safe lookup cache keyed by (kind, id, assembly).
// Concurrent loads of the same key are collapsed into one call.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]any
	epoch   uint64 // bumped by every invalidation
	group   singleflight.Group
}

// New creates a new empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[Key]any),
	}
}

// Get returns the cached value for k.
func (c *Cache) Get(k Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[k]
	return v, ok
}

// Set stores v under k.
func (c *Cache) Set(k Key, v any) {
	c.mu.Lock()
	c.entries[k] = v
	c.mu.Unlock()
}

// GetOrLoad returns the cached value for k, calling load on a miss.
// A nil value returned by load is not cached so a later call retries. A
// value loaded while any entry was invalidated is returned but not cached,
// since it may predate the change that caused the invalidation.
func (c *Cache) GetOrLoad(k Key, load func() (any, error)) (any, error) {
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(k.String(), func() (any, error) {
		c.mu.RLock()
		v, ok := c.entries[k]
		epoch := c.epoch
		c.mu.RUnlock()
		if ok {
			return v, nil
		}

		v, err := load()
		if err != nil || v == nil {
			return nil, err
		}
		c.mu.Lock()
		if c.epoch == epoch {
			c.entries[k] = v
		}
		c.mu.Unlock()
		return v, nil
	})
	return v, err
}

// InvalidateKey drops a single entry.
func (c *Cache) InvalidateKey(k Key) {
	c.mu.Lock()
	delete(c.entries, k)
	c.epoch++
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
