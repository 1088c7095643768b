package app

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"respax_booking/internal/adapters/observability"
)

// PriceCache memoizes per-(host, tour, date, extra) unit prices. Entries
// expire after the TTL and the table is bounded: when full, the least
// recently used entry is evicted. A miss is never an error; callers fetch
// live on miss.
type PriceCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	order   *list.List // front = most recently used
	entries map[string]*list.Element

	now func() time.Time // test hook
}

type priceEntry struct {
	key     string
	price   float64
	expires time.Time
}

func NewPriceCache(ttl time.Duration, max int) *PriceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if max <= 0 {
		max = 500
	}
	return &PriceCache{
		ttl:     ttl,
		max:     max,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
}

// PriceKey serializes the cache key tuple.
func PriceKey(hostID, tourCode, date string, extraID int) string {
	return fmt.Sprintf("price:%s:%s:%s:%d", hostID, tourCode, date, extraID)
}

func (c *PriceCache) Get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		observability.ObserveCache("price", "miss")
		return 0, false
	}
	ent := el.Value.(*priceEntry)
	if c.now().After(ent.expires) {
		// expired entries are treated as absent
		c.order.Remove(el)
		delete(c.entries, key)
		observability.ObserveCache("price", "miss")
		return 0, false
	}
	c.order.MoveToFront(el)
	observability.ObserveCache("price", "hit")
	return ent.price, true
}

func (c *PriceCache) Set(key string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*priceEntry)
		ent.price = price
		ent.expires = c.now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}
	if len(c.entries) >= c.max {
		if back := c.order.Back(); back != nil {
			c.order.Remove(back)
			delete(c.entries, back.Value.(*priceEntry).key)
		}
	}
	el := c.order.PushFront(&priceEntry{key: key, price: price, expires: c.now().Add(c.ttl)})
	c.entries[key] = el
	observability.ObserveCache("price", "set")
}

func (c *PriceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
