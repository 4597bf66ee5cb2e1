// Package routes keeps shortest-hop next-hop routes with lazy repair.
//
// Routes are never expired by a timer; they are overwritten by strictly
// better information or dropped when their next hop stops being an active
// peer. That keeps bookkeeping cheap and stays correct for a shallow mesh
// bounded by the maximum hop count.
package routes

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
)

// Entry maps a destination to the neighbor that forwards toward it.
type Entry struct {
	Dest    protocol.HWAddr
	NextHop protocol.HWAddr
	Hops    uint8
	Updated time.Time
}

// ActiveFunc reports whether a next-hop address is still an active peer.
type ActiveFunc func(protocol.HWAddr) bool

// Table is a fixed-capacity destination -> next-hop map.
type Table struct {
	mu      sync.RWMutex
	cap     int
	entries []Entry
}

// New returns an empty route table with the given capacity.
func New(capacity int) *Table {
	return &Table{cap: capacity}
}

// Resolve returns the route for dest, if known.
func (t *Table) Resolve(dest protocol.HWAddr) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.index(dest); i >= 0 {
		return t.entries[i], true
	}
	return Entry{}, false
}

// Update records a route to dest via nextHop. An existing route is replaced
// only when hops is strictly lower or its next hop is no longer active; the
// recorded hop count for a destination never grows while its next hop stays
// healthy. Returns whether the table changed.
func (t *Table) Update(dest, nextHop protocol.HWAddr, hops uint8, now time.Time, active ActiveFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i := t.index(dest); i >= 0 {
		e := &t.entries[i]
		if hops < e.Hops || (active != nil && !active(e.NextHop)) {
			e.NextHop = nextHop
			e.Hops = hops
			e.Updated = now
			zap.L().Debug("route replaced",
				zap.String("dest", dest.String()),
				zap.String("next_hop", nextHop.String()),
				zap.Uint8("hops", hops))
			return true
		}
		e.Updated = now
		return false
	}
	if len(t.entries) >= t.cap {
		// over-capacity route info is simply not recorded
		return false
	}
	t.entries = append(t.entries, Entry{Dest: dest, NextHop: nextHop, Hops: hops, Updated: now})
	zap.L().Debug("route learned",
		zap.String("dest", dest.String()),
		zap.String("next_hop", nextHop.String()),
		zap.Uint8("hops", hops))
	return true
}

// Repair drops every route whose next hop is no longer an active peer and
// returns how many were removed. Run from the maintenance tick.
func (t *Table) Repair(active ActiveFunc) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.entries[:0]
	removed := 0
	for _, e := range t.entries {
		if !active(e.NextHop) {
			removed++
			zap.L().Info("route dropped, next hop lost",
				zap.String("dest", e.Dest.String()),
				zap.String("next_hop", e.NextHop.String()))
			continue
		}
		kept = append(kept, e)
	}
	t.entries = kept
	return removed
}

// Count returns the number of known routes.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Table) index(dest protocol.HWAddr) int {
	for i := range t.entries {
		if t.entries[i].Dest == dest {
			return i
		}
	}
	return -1
}
