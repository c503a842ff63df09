package mapinfo

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/unwindkit/unwindkit/objfile"
)

type cacheEntry struct {
	obj          objfile.Object
	memoryBacked bool
	// windowOffset marks an object that begins at file offset 0 but is
	// registered under a map's nonzero file offset: a whole-file object
	// seen through a mapping window. Adopting maps translate with their
	// own offset instead of the identity offset.
	windowOffset bool
}

// ObjectCache deduplicates parsed objects across maps that resolve to
// the same (file name, object start offset) identity. The lock is held
// by a resolving map across its whole lookup-build-register sequence,
// serializing construction per cache; entry eviction only drops the
// cache's reference, maps that adopted an object keep it alive.
type ObjectCache struct {
	mu  sync.Mutex
	lru *lru.Cache[uint64, cacheEntry]
}

func NewObjectCache(size int) (*ObjectCache, error) {
	l, err := lru.New[uint64, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &ObjectCache{lru: l}, nil
}

func identityKey(name string, startOffset uint64) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(name)
	var off [8]byte
	for i := 0; i < 8; i++ {
		off[i] = byte(startOffset >> (8 * i))
	}
	_, _ = d.Write(off[:])
	return d.Sum64()
}

func (c *ObjectCache) get(name string, startOffset uint64) (cacheEntry, bool) {
	return c.lru.Get(identityKey(name, startOffset))
}

func (c *ObjectCache) add(name string, startOffset uint64, e cacheEntry) {
	c.lru.Add(identityKey(name, startOffset), e)
}

func (c *ObjectCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
