// Package readings keeps the latest telemetry sample per device at a
// gateway, with a TTL so devices that stop reporting age out of view.
package readings

import (
	"sort"
	"sync"
	"time"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/telemetry"
)

// Record pairs a reading with where and when it arrived.
type Record struct {
	Reading  telemetry.Reading
	Source   protocol.HWAddr
	Received time.Time
}

// Metrics counts store activity since start.
type Metrics struct {
	Stored  uint64
	Expired uint64
	Devices int
}

// Store is a TTL-bounded latest-value store keyed by device name.
type Store struct {
	mu      sync.RWMutex
	ttl     time.Duration
	records map[string]Record
	stored  uint64
	expired uint64
}

// New creates a store whose entries expire ttl after their last update.
func New(ttl time.Duration) *Store {
	return &Store{ttl: ttl, records: make(map[string]Record)}
}

// Put stores the latest reading for its device.
func (s *Store) Put(r telemetry.Reading, src protocol.HWAddr, now time.Time) {
	s.mu.Lock()
	s.records[r.Device] = Record{Reading: r, Source: src, Received: now}
	s.stored++
	s.mu.Unlock()
}

// Get returns the current record for a device, treating expired entries as
// absent.
func (s *Store) Get(device string, now time.Time) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[device]
	if !ok || now.Sub(rec.Received) > s.ttl {
		return Record{}, false
	}
	return rec, true
}

// Sweep removes expired records and returns how many were dropped.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for device, rec := range s.records {
		if now.Sub(rec.Received) > s.ttl {
			delete(s.records, device)
			s.expired++
			n++
		}
	}
	return n
}

// Devices lists devices with live records, sorted for stable output.
func (s *Store) Devices(now time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for device, rec := range s.records {
		if now.Sub(rec.Received) <= s.ttl {
			out = append(out, device)
		}
	}
	sort.Strings(out)
	return out
}

// Stats returns a snapshot of store counters.
func (s *Store) Stats() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Metrics{Stored: s.stored, Expired: s.expired, Devices: len(s.records)}
}
