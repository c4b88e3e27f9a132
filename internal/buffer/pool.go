// Package buffer implements the engine's pinned LRU page cache (spec §4.3).
package buffer

import (
	"container/list"
	"fmt"
)

// Loader fetches a page's bytes from its backing store on a cache miss.
type Loader func(pageID string) ([]byte, error)

// Writer flushes a page's bytes to its backing store.
type Writer func(pageID string, data []byte) error

type frame struct {
	id        string
	data      []byte
	dirty     bool
	pinCount  int
}

// Pool is a pinned LRU page cache: page_id -> frame{data, dirty, pin_count},
// preserving access order for eviction.
type Pool struct {
	capacity int
	order    *list.List // front = most-recently-used
	elems    map[string]*list.Element

	hits, misses int
}

// New returns a pool that holds at most capacity pages.
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	return &Pool{
		capacity: capacity,
		order:    list.New(),
		elems:    make(map[string]*list.Element),
	}
}

// GetPage returns pageID's bytes, pinning the frame. On a miss it calls
// load, evicting an unpinned frame if the pool is full, and installs the
// result pinned once.
func (p *Pool) GetPage(pageID string, load Loader) ([]byte, error) {
	if el, ok := p.elems[pageID]; ok {
		p.hits++
		p.order.MoveToFront(el)
		fr := el.Value.(*frame)
		fr.pinCount++
		return fr.data, nil
	}

	p.misses++
	data, err := load(pageID)
	if err != nil {
		return nil, err
	}

	if len(p.elems) >= p.capacity {
		if err := p.evictOne(); err != nil {
			return nil, err
		}
	}

	fr := &frame{id: pageID, data: data, pinCount: 1}
	el := p.order.PushFront(fr)
	p.elems[pageID] = el
	return fr.data, nil
}

// PutPage upserts pageID's bytes, evicting if the insert grows the pool past
// capacity. Marking dirty flags the page for the next FlushPage/FlushAll.
func (p *Pool) PutPage(pageID string, data []byte, markDirty bool) error {
	if el, ok := p.elems[pageID]; ok {
		p.order.MoveToFront(el)
		fr := el.Value.(*frame)
		fr.data = data
		if markDirty {
			fr.dirty = true
		}
		return nil
	}

	if len(p.elems) >= p.capacity {
		if err := p.evictOne(); err != nil {
			return err
		}
	}

	fr := &frame{id: pageID, data: data, dirty: markDirty}
	el := p.order.PushFront(fr)
	p.elems[pageID] = el
	return nil
}

// UnpinPage decrements pageID's pin count. No-op if the page is not cached.
func (p *Pool) UnpinPage(pageID string) {
	el, ok := p.elems[pageID]
	if !ok {
		return
	}
	fr := el.Value.(*frame)
	if fr.pinCount > 0 {
		fr.pinCount--
	}
}

// FlushPage writes pageID through writer if dirty, clearing the dirty flag.
func (p *Pool) FlushPage(pageID string, writer Writer) error {
	el, ok := p.elems[pageID]
	if !ok {
		return nil
	}
	fr := el.Value.(*frame)
	if !fr.dirty {
		return nil
	}
	if err := writer(pageID, fr.data); err != nil {
		return err
	}
	fr.dirty = false
	return nil
}

// FlushAll flushes every dirty frame.
func (p *Pool) FlushAll(writer Writer) error {
	for el := p.order.Front(); el != nil; el = el.Next() {
		fr := el.Value.(*frame)
		if fr.dirty {
			if err := writer(fr.id, fr.data); err != nil {
				return err
			}
			fr.dirty = false
		}
	}
	return nil
}

// evictOne removes the least-recently-used unpinned frame. It fails if
// every cached frame is currently pinned.
func (p *Pool) evictOne() error {
	for el := p.order.Back(); el != nil; el = el.Prev() {
		fr := el.Value.(*frame)
		if fr.pinCount == 0 {
			p.order.Remove(el)
			delete(p.elems, fr.id)
			return nil
		}
	}
	return fmt.Errorf("no unpinned page available")
}

// Stats reports hit/miss counters, the derived hit rate, and the current
// dirty-frame count.
type Stats struct {
	Hits    int
	Misses  int
	HitRate float64
	Dirty   int
}

// Stats returns the pool's current statistics.
func (p *Pool) Stats() Stats {
	dirty := 0
	for el := p.order.Front(); el != nil; el = el.Next() {
		if el.Value.(*frame).dirty {
			dirty++
		}
	}
	total := p.hits + p.misses
	rate := 0.0
	if total > 0 {
		rate = float64(p.hits) / float64(total)
	}
	return Stats{Hits: p.hits, Misses: p.misses, HitRate: rate, Dirty: dirty}
}

// Len returns the number of pages currently cached.
func (p *Pool) Len() int { return len(p.elems) }
