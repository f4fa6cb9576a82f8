package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key    string
	marked time.Time
}

// Cache remembers recently archived document IDs so redelivered analysis
// events are not indexed twice. Entries expire after ttl; when the cache is
// full the least recently marked entry is evicted.
type Cache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// IsSeen reports whether key was marked inside the ttl window. It does not mark it.
func (c *Cache) IsSeen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	if c.now().Sub(el.Value.(*entry).marked) > c.ttl {
		c.remove(el)
		return false
	}
	return true
}

// MarkSeen records key as archived, refreshing its position if present.
func (c *Cache) MarkSeen(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.items[key]; ok {
		el.Value.(*entry).marked = now
		c.order.MoveToBack(el)
	} else {
		c.items[key] = c.order.PushBack(&entry{key: key, marked: now})
	}

	cutoff := now.Add(-c.ttl)
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		if len(c.items) <= c.capacity && !front.Value.(*entry).marked.Before(cutoff) {
			break
		}
		c.remove(front)
	}
}

// Len returns the number of tracked keys, expired ones included until compaction.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
