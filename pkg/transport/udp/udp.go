// Package udp emulates the broadcast radio link over UDP datagrams.
//
// Each station binds one socket; the configured link list plays the role of
// radio range, so "broadcast" means one datagram to every linked station.
// A 6-byte link-level sender address prefixes every datagram, letting the
// adapter learn which UDP endpoint answers for which hardware address and
// unicast directly once a mapping is known. Unicast toward an unknown
// address degrades to broadcast, which is what a radio does anyway.
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/transport"
)

// Options configures a station.
type Options struct {
	// Self is the local hardware address prefixed onto outbound datagrams.
	Self protocol.HWAddr
	// Listen is the local UDP bind address, e.g. ":7777".
	Listen string
	// Links are the UDP addresses of stations in simulated radio range.
	Links []string
}

// Station is a UDP-backed transport.Transport.
type Station struct {
	self  protocol.HWAddr
	conn  *net.UDPConn
	links []*net.UDPAddr

	mu       sync.Mutex
	recv     transport.Receiver
	addrbook map[protocol.HWAddr]*net.UDPAddr

	closeOnce sync.Once
	closed    chan struct{}
}

// New binds the socket, resolves the link list and starts the read loop.
func New(opts Options) (*Station, error) {
	laddr, err := net.ResolveUDPAddr("udp", opts.Listen)
	if err != nil {
		return nil, fmt.Errorf("udp: listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("udp: bind: %w", err)
	}
	s := &Station{
		self:     opts.Self,
		conn:     conn,
		addrbook: make(map[protocol.HWAddr]*net.UDPAddr),
		closed:   make(chan struct{}),
	}
	for _, l := range opts.Links {
		raddr, err := net.ResolveUDPAddr("udp", l)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("udp: link addr %q: %w", l, err)
		}
		s.links = append(s.links, raddr)
	}
	go s.readLoop()
	zap.L().Info("udp station up",
		zap.String("addr", opts.Self.String()),
		zap.String("listen", conn.LocalAddr().String()),
		zap.Int("links", len(s.links)))
	return s, nil
}

func (s *Station) SetReceiver(fn transport.Receiver) {
	s.mu.Lock()
	s.recv = fn
	s.mu.Unlock()
}

func (s *Station) MTU() int { return protocol.MaxFrameSize }

func (s *Station) Send(dst protocol.HWAddr, frame []byte) error {
	if len(frame) > s.MTU() {
		return errors.New("udp: frame exceeds mtu")
	}
	pkt := make([]byte, protocol.AddrLen+len(frame))
	copy(pkt, s.self[:])
	copy(pkt[protocol.AddrLen:], frame)

	if !dst.IsBroadcast() {
		s.mu.Lock()
		raddr := s.addrbook[dst]
		s.mu.Unlock()
		if raddr != nil {
			_, err := s.conn.WriteToUDP(pkt, raddr)
			return err
		}
		// unknown station: fall through to radio-range broadcast
	}
	var firstErr error
	for _, raddr := range s.links {
		if _, err := s.conn.WriteToUDP(pkt, raddr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Station) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

func (s *Station) readLoop() {
	buf := make([]byte, 64*1024)
	for {
		n, raddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.closed:
			default:
				zap.L().Warn("udp read failed", zap.Error(err))
			}
			return
		}
		if n < protocol.AddrLen {
			continue // no room for the link-level sender
		}
		var sender protocol.HWAddr
		copy(sender[:], buf[:protocol.AddrLen])
		if sender == s.self {
			continue
		}
		frame := make([]byte, n-protocol.AddrLen)
		copy(frame, buf[protocol.AddrLen:n])

		s.mu.Lock()
		s.addrbook[sender] = raddr
		fn := s.recv
		s.mu.Unlock()
		if fn != nil {
			fn(frame)
		}
	}
}
