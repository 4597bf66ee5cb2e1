// Package seen suppresses duplicate processing of mesh messages.
//
// On an undirected broadcast medium every flood is re-heard several times;
// each node therefore tracks, per source address, the highest sequence number
// it has already acted on. A frame whose (source, sequence) pair is not newer
// than that record is dropped before it causes any side effect, which bounds
// flood storms and makes delivery idempotent per node.
package seen

import (
	"sync"
	"time"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
)

// Cache records the last sequence number witnessed per source address.
// Entry count is bounded; the least recently touched source is evicted
// when a new source arrives at capacity.
type Cache struct {
	mu      sync.Mutex
	cap     int
	entries map[protocol.HWAddr]*record
}

type record struct {
	seq     uint16
	touched time.Time
}

// New returns a cache tracking at most capacity sources.
func New(capacity int) *Cache {
	return &Cache{cap: capacity, entries: make(map[protocol.HWAddr]*record, capacity)}
}

// Witness reports whether (src, seq) is new traffic and records it if so.
// The first frame from a source is always new; after that a sequence number
// counts as newer under serial-number arithmetic, so the 16-bit counter may
// wrap without freezing the source out.
func (c *Cache) Witness(src protocol.HWAddr, seq uint16, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.entries[src]; ok {
		if !newer(seq, r.seq) {
			return false
		}
		r.seq = seq
		r.touched = now
		return true
	}
	if len(c.entries) >= c.cap {
		c.evictOldest()
	}
	c.entries[src] = &record{seq: seq, touched: now}
	return true
}

// Forget drops the record for src, if any.
func (c *Cache) Forget(src protocol.HWAddr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, src)
}

// Len returns the number of tracked sources.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldest() {
	var victim protocol.HWAddr
	var oldest time.Time
	first := true
	for src, r := range c.entries {
		if first || r.touched.Before(oldest) {
			victim, oldest, first = src, r.touched, false
		}
	}
	if !first {
		delete(c.entries, victim)
	}
}

// newer implements serial-number comparison for uint16 sequence counters:
// a is newer than b when 0 < (a-b) mod 2^16 < 2^15.
func newer(a, b uint16) bool {
	d := a - b
	return d != 0 && d < 1<<15
}
