package dfa

import (
	"container/list"
	"sync"
)

// Cache is the bounded LRU state-set cache spec.md §4.4 calls sset: unlike
// the teacher's dfa/lazy.Cache (which clears the whole map on overflow and
// tracks a clear count toward an NFA-fallback threshold), this cache evicts
// its single least-recently-used entry to make room, so a scan with a
// working set smaller than maxStates never pays a full rebuild.
type Cache struct {
	mu sync.RWMutex

	entries map[StateKey]*list.Element // value: *cacheEntry
	order   *list.List                 // front = most recently used

	maxStates uint32
	nextID    StateID

	hits, misses, evictions uint64
}

type cacheEntry struct {
	key   StateKey
	state *State
}

// NewCache creates a cache holding at most maxStates live DFA states.
func NewCache(maxStates uint32) *Cache {
	return &Cache{
		entries:   make(map[StateKey]*list.Element, maxStates),
		order:     list.New(),
		maxStates: maxStates,
		nextID:    StartState + 1,
	}
}

// Get retrieves a state by key, marking it most-recently-used on a hit.
func (c *Cache) Get(key StateKey) (*State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).state, true
}

// GetOrInsert retrieves the cached state for key, or inserts state
// (assigning it an ID if it doesn't already have one) and evicts the
// least-recently-used entry first if the cache is full.
func (c *Cache) GetOrInsert(key StateKey, state *State) (*State, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.hits++
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).state, true, nil
	}
	c.misses++

	if uint32(len(c.entries)) >= c.maxStates {
		c.evictOldestLocked()
	}

	if state.id == InvalidState {
		state.id = c.nextID
		c.nextID++
	}
	el := c.order.PushFront(&cacheEntry{key: key, state: state})
	c.entries[key] = el
	return state, false, nil
}

func (c *Cache) evictOldestLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.order.Remove(back)
	c.evictions++
}

// Size reports the number of cached states.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit/miss/eviction counters for cache-sizing diagnostics.
func (c *Cache) Stats() (hits, misses, evictions uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, c.evictions
}

// Clear empties the cache and resets its statistics. Used between unrelated
// scans so one Exec call's state sets never leak into the next.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[StateKey]*list.Element, c.maxStates)
	c.order.Init()
	c.nextID = StartState + 1
	c.hits, c.misses, c.evictions = 0, 0, 0
}
