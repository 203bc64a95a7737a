package btree

import (
	"github.com/dgraph-io/ristretto/v2"

	"bptreedb/internal/row"
)

// rowCache memoizes decoded rows above the pager. It sits strictly above
// the find/insert/split path: nothing in this package ever consults it to
// make a correctness decision, only to skip re-deserializing a row that
// select has already decoded once. It is wholesale invalidated on every
// successful insert, since a split can move any row to a different page.
type rowCache struct {
	c *ristretto.Cache[uint64, row.Row]
}

// cacheKey packs a (page number, row key) pair into the single integer
// key type the cache accepts.
func cacheKey(page, key uint32) uint64 {
	return uint64(page)<<32 | uint64(key)
}

func newRowCache() *rowCache {
	c, err := ristretto.NewCache(&ristretto.Config[uint64, row.Row]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		// A cache that fails to construct degrades to "always miss": it
		// is never load-bearing for correctness, so there is nothing to
		// propagate here except giving up memoization entirely.
		return &rowCache{c: nil}
	}
	return &rowCache{c: c}
}

func (rc *rowCache) Get(pageNum, key uint32) (row.Row, bool) {
	if rc.c == nil {
		return row.Row{}, false
	}
	return rc.c.Get(cacheKey(pageNum, key))
}

func (rc *rowCache) Put(pageNum, key uint32, r row.Row) {
	if rc.c == nil {
		return
	}
	rc.c.Set(cacheKey(pageNum, key), r, 1)
}

// Invalidate drops every cached row. Called after every Insert, since a
// leaf split can relocate rows to a page number the cache still has a
// (now-stale) entry for.
func (rc *rowCache) Invalidate() {
	if rc.c == nil {
		return
	}
	rc.c.Clear()
}

func (rc *rowCache) Close() {
	if rc.c == nil {
		return
	}
	rc.c.Close()
}
