// Package cache is the JIT's code cache: a function-granularity store
// keyed by entry address, with LRU eviction bounding its size and
// page-indexed invalidation so a write into any compiled function's bytes
// (self-modifying code) is caught before a stale body runs again (§5).
package cache

import (
	"container/list"

	"sixtyfive/codegen"
)

// DefaultCapacity matches §5's "roughly 2000 compiled functions" sizing
// note — enough for a full NES/C64 program's hot set without unbounded
// growth across a long play session.
const DefaultCapacity = 2000

type entry struct {
	addr       uint16
	method     *codegen.Method
	pages      map[byte]struct{}
	instrAddrs map[uint16]struct{}
	elem       *list.Element
}

// Cache stores compiled Methods keyed by their 6502 entry address.
type Cache struct {
	capacity int
	entries  map[uint16]*entry
	pageIdx  map[byte]map[uint16]struct{} // page -> set of entry addrs occupying it
	lru      *list.List                   // front = most recently used

	// pendingPages is the §4.I deferred invalidation set: pages a guest
	// write has touched, staged here by MemoryChanged and only actually
	// evicted the next time Get drains it. Deferring the eviction itself
	// (rather than just the decision) is what keeps a write-heavy loop from
	// re-walking pageIdx and tearing down entries on every single byte.
	pendingPages map[byte]struct{}
}

// New returns an empty Cache. capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity:     capacity,
		entries:      make(map[uint16]*entry),
		pageIdx:      make(map[byte]map[uint16]struct{}),
		lru:          list.New(),
		pendingPages: make(map[byte]struct{}),
	}
}

// Add installs method for the function entered at addr, whose bytes occupy
// instrAddrs. Adding an address already present replaces it. Add evicts the
// least-recently-used entry first if the cache is at capacity.
func (c *Cache) Add(addr uint16, method *codegen.Method, instrAddrs map[uint16]struct{}) {
	if old, ok := c.entries[addr]; ok {
		c.remove(addr, old)
	}
	pages := make(map[byte]struct{})
	for a := range instrAddrs {
		page := byte(a >> 8)
		pages[page] = struct{}{}
		if c.pageIdx[page] == nil {
			c.pageIdx[page] = make(map[uint16]struct{})
		}
		c.pageIdx[page][addr] = struct{}{}
	}
	e := &entry{addr: addr, method: method, pages: pages, instrAddrs: instrAddrs}
	e.elem = c.lru.PushFront(addr)
	c.entries[addr] = e

	for c.lru.Len() > c.capacity {
		back := c.lru.Back()
		victim := back.Value.(uint16)
		c.remove(victim, c.entries[victim])
	}
}

// Get drains the pending invalidation set (§4.I), then returns the Method
// compiled for addr and whether it is present. A hit promotes addr to
// most-recently-used. Draining here rather than at write time means a body
// mid-execution is never yanked out from under itself, and a write-heavy
// loop pays for invalidation once per lookup rather than once per byte.
func (c *Cache) Get(addr uint16) (*codegen.Method, bool) {
	c.drainPending()
	e, ok := c.entries[addr]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(e.elem)
	return e.method, true
}

// drainPending drops every function touching a staged page from all three
// indexes (entries, pageIdx, lru), then clears the staged set.
func (c *Cache) drainPending() {
	for page := range c.pendingPages {
		var victims []uint16
		for addr := range c.pageIdx[page] {
			victims = append(victims, addr)
		}
		for _, addr := range victims {
			c.remove(addr, c.entries[addr])
		}
		delete(c.pendingPages, page)
	}
}

// MemoryChanged stages written's page for invalidation; it does not evict
// immediately. It is meant to be wired to mem.Bus.ObserveWrites — called
// synchronously on every guest write, but the actual cache surgery waits
// for the next Get (§4.I).
func (c *Cache) MemoryChanged(written uint16) {
	c.pendingPages[byte(written>>8)] = struct{}{}
}

// BulkMemoryChanged stages every page touched by written — used when a ROM
// bank swap or DMA transfer spans a wide address range at once rather than
// one byte at a time.
func (c *Cache) BulkMemoryChanged(written []uint16) {
	for _, w := range written {
		c.MemoryChanged(w)
	}
}

// Len reports how many (non-evicted) entries the cache currently holds.
// Pending invalidations are not drained first, so this can overcount until
// the next Get.
func (c *Cache) Len() int { return c.lru.Len() }

// Capacity reports the maximum number of entries the cache will hold
// before evicting, for occupancy displays such as debugtui's.
func (c *Cache) Capacity() int { return c.capacity }

// PendingInvalidation reports how many held entries a staged-but-undrained
// page write would evict on the next Get.
func (c *Cache) PendingInvalidation() int {
	n := 0
	for page := range c.pendingPages {
		n += len(c.pageIdx[page])
	}
	return n
}

// InstructionAddrs returns the instruction-byte set a cached entry was
// compiled from, the fourth field of §4.I's per-entry tuple -- useful for
// explaining an eviction (the debugtui can cross-reference it against an
// SMCTracker target) without having to re-decompose the function.
func (c *Cache) InstructionAddrs(addr uint16) (map[uint16]struct{}, bool) {
	e, ok := c.entries[addr]
	if !ok {
		return nil, false
	}
	return e.instrAddrs, true
}

func (c *Cache) remove(addr uint16, e *entry) {
	if e == nil {
		return
	}
	for page := range e.pages {
		delete(c.pageIdx[page], addr)
		if len(c.pageIdx[page]) == 0 {
			delete(c.pageIdx, page)
		}
	}
	if e.elem != nil {
		c.lru.Remove(e.elem)
	}
	delete(c.entries, addr)
}
