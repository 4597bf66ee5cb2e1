// Package mem is an in-process radio medium for tests and simulations.
//
// A Bus holds attached stations and an explicit reachability graph: only
// linked stations hear each other, which is how multi-hop topologies are
// built without sockets.
package mem

import (
	"errors"
	"sync"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/transport"
)

// Bus is the shared medium. Zero stations are linked until Link is called.
type Bus struct {
	mu       sync.Mutex
	stations map[protocol.HWAddr]*Station
	links    map[link]struct{}
}

type link struct{ a, b protocol.HWAddr }

func norm(a, b protocol.HWAddr) link {
	for i := 0; i < protocol.AddrLen; i++ {
		if a[i] < b[i] {
			return link{a, b}
		}
		if a[i] > b[i] {
			return link{b, a}
		}
	}
	return link{a, b}
}

// NewBus creates an empty medium.
func NewBus() *Bus {
	return &Bus{stations: make(map[protocol.HWAddr]*Station), links: make(map[link]struct{})}
}

// Attach adds a station with the given address and returns its transport.
func (b *Bus) Attach(addr protocol.HWAddr) *Station {
	s := &Station{bus: b, addr: addr, rx: make(chan []byte, 64), done: make(chan struct{})}
	go s.pump()
	b.mu.Lock()
	b.stations[addr] = s
	b.mu.Unlock()
	return s
}

// Link makes a and b mutually reachable.
func (b *Bus) Link(x, y protocol.HWAddr) {
	b.mu.Lock()
	b.links[norm(x, y)] = struct{}{}
	b.mu.Unlock()
}

// Unlink severs reachability between x and y, simulating a node moving out
// of radio range.
func (b *Bus) Unlink(x, y protocol.HWAddr) {
	b.mu.Lock()
	delete(b.links, norm(x, y))
	b.mu.Unlock()
}

func (b *Bus) linked(x, y protocol.HWAddr) bool {
	_, ok := b.links[norm(x, y)]
	return ok
}

// Station implements transport.Transport on the bus. Frames are delivered
// through a bounded per-station queue on a dedicated goroutine; the queue
// drops when full, like any radio under load.
type Station struct {
	bus  *Bus
	addr protocol.HWAddr
	mu   sync.Mutex
	recv transport.Receiver
	rx   chan []byte
	done chan struct{}
	once sync.Once
}

// Addr returns the station's hardware address.
func (s *Station) Addr() protocol.HWAddr { return s.addr }

func (s *Station) SetReceiver(fn transport.Receiver) {
	s.mu.Lock()
	s.recv = fn
	s.mu.Unlock()
}

func (s *Station) MTU() int { return protocol.MaxFrameSize }

func (s *Station) Send(dst protocol.HWAddr, frame []byte) error {
	if len(frame) > s.MTU() {
		return errors.New("mem: frame exceeds mtu")
	}
	cp := append([]byte(nil), frame...)
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	for addr, peer := range s.bus.stations {
		if addr == s.addr || !s.bus.linked(s.addr, addr) {
			continue
		}
		if !dst.IsBroadcast() && addr != dst {
			continue
		}
		select {
		case peer.rx <- cp:
		default: // receiver overrun, frame lost
		}
	}
	return nil
}

func (s *Station) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.bus.mu.Lock()
		delete(s.bus.stations, s.addr)
		s.bus.mu.Unlock()
	})
	return nil
}

func (s *Station) pump() {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.rx:
			s.mu.Lock()
			fn := s.recv
			s.mu.Unlock()
			if fn != nil {
				fn(frame)
			}
		}
	}
}
