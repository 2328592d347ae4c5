package server

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"sync/atomic"

	"github.com/chriscorrea/tally/internal/engine"

	lru "github.com/hashicorp/golang-lru/v2"
)

// resultCache keeps recent engine outputs. A nil cache never hits.
type resultCache struct {
	entries  *lru.Cache[string, engine.Output]
	capacity int
	hits     atomic.Int64
	misses   atomic.Int64
}

type cacheStats struct {
	Size     int   `json:"size"`
	Capacity int   `json:"capacity"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
}

// newResultCache returns nil when size is 0, which disables caching.
func newResultCache(size int) (*resultCache, error) {
	if size == 0 {
		return nil, nil
	}
	entries, err := lru.New[string, engine.Output](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &resultCache{entries: entries, capacity: size}, nil
}

func (c *resultCache) Get(key string) (engine.Output, bool) {
	if c == nil {
		return engine.Output{}, false
	}
	out, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return out, ok
}

func (c *resultCache) Add(key string, out engine.Output) {
	if c == nil {
		return
	}
	c.entries.Add(key, out)
}

func (c *resultCache) Stats() cacheStats {
	if c == nil {
		return cacheStats{}
	}
	return cacheStats{
		Size:     c.entries.Len(),
		Capacity: c.capacity,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
	}
}

// cacheKey digests the documents in order together with the configuration.
// Every field is length-prefixed so distinct inputs never share a byte stream.
func cacheKey(docs []engine.Document, cfg engine.Config) string {
	h := sha256.New()
	o := cfg.Options()
	for _, field := range []string{o.Scope, o.Order, o.Unit, o.Match} {
		writeField(h, field)
	}
	writeInt(h, int64(o.Limit))
	writeInt(h, int64(o.Keywords))
	if o.SkipNotices {
		writeInt(h, 1)
	} else {
		writeInt(h, 0)
	}

	writeInt(h, int64(len(docs)))
	for _, doc := range docs {
		writeField(h, doc.Name)
		writeField(h, doc.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	writeInt(h, int64(len(s)))
	h.Write([]byte(s))
}

func writeInt(h hash.Hash, n int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}
