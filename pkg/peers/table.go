// Package peers holds the bounded neighbor/forwarder table for one mesh node.
package peers

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
)

// ErrTableFull is returned when a new peer cannot be admitted: the table is at
// capacity and no entry is stale enough to evict.
var ErrTableFull = errors.New("peers: table full")

// Peer is one known neighbor or multi-hop forwarder.
type Peer struct {
	Addr     protocol.HWAddr
	Signal   int8 // link-quality proxy, dBm-style (more positive is stronger)
	LastSeen time.Time
	Hops     uint8
	Gateway  bool
	Active   bool
}

// Table is a fixed-capacity peer table. There is no dynamic growth; admission
// beyond capacity first sweeps timed-out entries and otherwise rejects.
//
// Mutations happen on the mesh's single logical writer; the mutex exists so
// read-only introspection (Count, NearestGateway) is safe from collaborators.
type Table struct {
	mu      sync.RWMutex
	cap     int
	timeout time.Duration
	entries []Peer // insertion order preserved; compacted on removal
}

// New returns an empty table. Peers older than timeout are eviction-eligible
// when the table is full and are removed by SweepStale.
func New(capacity int, timeout time.Duration) *Table {
	return &Table{cap: capacity, timeout: timeout}
}

// Upsert inserts or refreshes the entry for addr and returns its new state.
// A full table is swept before rejecting with ErrTableFull.
func (t *Table) Upsert(addr protocol.HWAddr, signal int8, hops uint8, gateway bool, now time.Time) (Peer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i := t.index(addr); i >= 0 {
		p := &t.entries[i]
		p.Signal = signal
		p.Hops = hops
		p.Gateway = gateway
		p.LastSeen = now
		p.Active = true
		return *p, nil
	}
	if len(t.entries) >= t.cap {
		t.sweepLocked(now)
		if len(t.entries) >= t.cap {
			return Peer{}, ErrTableFull
		}
	}
	p := Peer{Addr: addr, Signal: signal, Hops: hops, Gateway: gateway, LastSeen: now, Active: true}
	t.entries = append(t.entries, p)
	zap.L().Debug("peer added",
		zap.String("addr", addr.String()),
		zap.Uint8("hops", hops),
		zap.Bool("gateway", gateway))
	return p, nil
}

// Find returns the entry for addr, if any. No side effects.
func (t *Table) Find(addr protocol.HWAddr) (Peer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.index(addr); i >= 0 {
		return t.entries[i], true
	}
	return Peer{}, false
}

// Active reports whether addr is present and active. Used by the route table
// for lazy repair decisions.
func (t *Table) Active(addr protocol.HWAddr) bool {
	p, ok := t.Find(addr)
	return ok && p.Active
}

// SweepStale removes every peer whose last-seen age exceeds the timeout and
// returns their addresses, so callers can retire per-peer state along with
// the entry.
func (t *Table) SweepStale(now time.Time) []protocol.HWAddr {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sweepLocked(now)
}

func (t *Table) sweepLocked(now time.Time) []protocol.HWAddr {
	kept := t.entries[:0]
	var removed []protocol.HWAddr
	for _, p := range t.entries {
		if now.Sub(p.LastSeen) > t.timeout {
			removed = append(removed, p.Addr)
			zap.L().Info("stale peer removed", zap.String("addr", p.Addr.String()))
			continue
		}
		kept = append(kept, p)
	}
	t.entries = kept
	return removed
}

// NearestGateway returns the active gateway peer with the lowest hop count.
// Ties break on strongest signal, then insertion order, so selection is
// deterministic for a given table state.
func (t *Table) NearestGateway() (Peer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	best := -1
	for i, p := range t.entries {
		if !p.Gateway || !p.Active {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := t.entries[best]
		if p.Hops < b.Hops || (p.Hops == b.Hops && p.Signal > b.Signal) {
			best = i
		}
	}
	if best < 0 {
		return Peer{}, false
	}
	return t.entries[best], true
}

// Count returns the number of known peers.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// List returns a snapshot of all entries in insertion order.
func (t *Table) List() []Peer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Peer(nil), t.entries...)
}

func (t *Table) index(addr protocol.HWAddr) int {
	for i := range t.entries {
		if t.entries[i].Addr == addr {
			return i
		}
	}
	return -1
}
