package authz

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the MRU cache capacity spec section 4.5 suggests
// ("e.g. 4") when a caller doesn't override it.
const DefaultCacheSize = 4

// cacheKey identifies a filtered tree by the (user, repository) pair it was
// built for. user is carried as (string, bool) rather than *string because
// map/LRU keys must be comparable value types; hasUser distinguishes the
// anonymous principal (user == nil) from any literal user string,
// including the string "$anonymous" itself, per spec section 6.
type cacheKey struct {
	repository string
	user       string
	hasUser    bool
}

func newCacheKey(user *string, repository string) cacheKey {
	if user == nil {
		return cacheKey{repository: repository}
	}
	return cacheKey{repository: repository, user: *user, hasUser: true}
}

// treeCache is the per-(user,repo) MRU cache spec section 4.5 describes,
// backed by github.com/hashicorp/golang-lru/v2 instead of a hand-rolled
// fixed array. See SPEC_FULL.md section 1 for why: the library drops the
// displaced entry inside the same Add call that installs the new one, which
// sidesteps the "keep the old pool handle, overwrite the slot" ordering bug
// spec section 9 flags in the original source — no caller ever sees both
// trees in the cache at once. The eviction callback runs after that Add has
// finished.
type treeCache struct {
	lru *lru.Cache[cacheKey, *FilteredTree]
}

func newTreeCache(size int) *treeCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, _ := lru.NewWithEvict[cacheKey, *FilteredTree](size, func(cacheKey, *FilteredTree) {
		// Nothing to release explicitly: a FilteredTree owns no
		// resources beyond ordinary heap memory, so dropping the last
		// reference is enough for the garbage collector to reclaim the
		// whole arena in one step, matching spec section 5's
		// "eviction releases the entire arena in one step".
	})
	return &treeCache{lru: c}
}

// get returns the cached tree for (user, repository), moving it to the
// front of the MRU order on a hit.
func (c *treeCache) get(user *string, repository string) (*FilteredTree, bool) {
	return c.lru.Get(newCacheKey(user, repository))
}

// put installs tree at the front of the MRU order, evicting the oldest
// entry first if the cache is already at capacity.
func (c *treeCache) put(user *string, repository string, tree *FilteredTree) {
	c.lru.Add(newCacheKey(user, repository), tree)
}
