package mesh

import (
	"encoding/binary"
	"time"

	"go.uber.org/zap"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
)

// Heartbeat payload layout: [0] gateway flag, [1] advertised hops to the
// nearest gateway (0 for a gateway itself, 0xFF when none is known),
// [2] sender's peer count. Receivers consume only the flag; bytes 1 and 2
// are advertised for wire-level observers. Discovery payload: [0] gateway
// flag.

// handleRaw is the transport receive callback. Every receive-path failure is
// local and silent: malformed, duplicate, over-hop-limit and over-capacity
// frames are dropped and the mesh degrades instead of halting.
func (m *Mesh) handleRaw(raw []byte) {
	var f protocol.Frame
	if err := f.UnmarshalBinary(raw); err != nil {
		zap.L().Debug("frame dropped: malformed", zap.Int("len", len(raw)))
		return
	}
	m.processFrame(&f, time.Now())
}

// processFrame is the forwarding-plane dispatch. Duplicate suppression runs
// before any other side effect so each distinct (source, sequence) message
// is acted on at most once per node.
func (m *Mesh) processFrame(f *protocol.Frame, now time.Time) {
	if f.Src == m.cfg.Self {
		return // our own flood echoed back
	}
	// No compliant sender emits a hop count above the maximum, so anything
	// over it is corrupt or forged. Reject before any table is touched:
	// uint8 arithmetic on such a value would wrap and hand the frame a
	// fresh hop budget.
	if f.HopCount > m.cfg.MaxHops {
		zap.L().Debug("frame dropped: hop limit",
			zap.String("src", f.Src.String()), zap.Uint8("hops", f.HopCount))
		return
	}
	if !m.dedup.Witness(f.Src, f.Seq, now) {
		zap.L().Debug("frame dropped: duplicate",
			zap.String("src", f.Src.String()), zap.Uint16("seq", f.Seq))
		return
	}

	m.observeSender(f, now)

	switch f.Type {
	case protocol.TypeDiscovery:
		m.handleDiscovery(f, now)
	case protocol.TypeHeartbeat:
		// liveness and gateway info already absorbed by observeSender
	case protocol.TypeData:
		m.handleData(f)
	case protocol.TypeRouteRequest:
		m.handleRouteRequest(f, now)
	case protocol.TypeRouteReply:
		m.handleRouteReply(f, now)
	case protocol.TypeAck:
		m.handleAck(f, now)
	default:
		zap.L().Debug("frame dropped: unknown type", zap.Uint8("type", f.Type))
	}
}

// observeSender refreshes the peer table from any inbound frame. The hop
// count field describes the origin's distance travelled so far, so our
// distance to it is field+1 — a directly heard frame carries 0 and lands at
// exactly one hop.
func (m *Mesh) observeSender(f *protocol.Frame, now time.Time) {
	gateway := false
	switch f.Type {
	case protocol.TypeDiscovery:
		gateway = len(f.Payload) >= 1 && f.Payload[0] == 1
	case protocol.TypeHeartbeat:
		gateway = len(f.Payload) >= 1 && f.Payload[0] == 1
	default:
		if p, ok := m.peers.Find(f.Src); ok {
			gateway = p.Gateway // data frames carry no gateway bit; keep what we know
		}
	}
	if _, err := m.peers.Upsert(f.Src, defaultSignal, f.HopCount+1, gateway, now); err != nil {
		zap.L().Debug("peer not admitted", zap.String("addr", f.Src.String()), zap.Error(err))
		return
	}
	// A frame heard with hop count zero came straight off the sender's
	// radio, which pins a one-hop route to it. Relayed frames reveal no
	// usable next hop, so they teach us nothing about routing.
	if f.HopCount == 0 {
		m.routes.Update(f.Src, f.Src, 1, now, m.peers.Active)
	}
}

// handleDiscovery continues the hop-limited flood so the whole mesh learns
// of the origin. The dedup check has already run, so each node re-broadcasts
// a given announcement at most once.
func (m *Mesh) handleDiscovery(f *protocol.Frame, now time.Time) {
	if f.HopCount >= m.cfg.MaxHops-1 {
		return
	}
	fwd := *f
	fwd.HopCount++
	if err := m.broadcast(&fwd); err != nil {
		zap.L().Debug("discovery relay failed", zap.Error(err))
	}
}

func (m *Mesh) handleData(f *protocol.Frame) {
	if f.Dst == m.cfg.Self {
		m.deliver(f)
		m.sendAck(f)
		return
	}
	if f.Dst.IsBroadcast() {
		m.deliver(f)
		m.forward(f) // broadcast data keeps flooding within the hop bound
		return
	}
	m.forward(f)
}

// deliver hands the payload to the registered handler, the sole delivery
// path for locally destined data.
func (m *Mesh) deliver(f *protocol.Frame) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h == nil {
		zap.L().Debug("data dropped: no handler", zap.String("src", f.Src.String()))
		return
	}
	h.HandleData(f.Src, append([]byte(nil), f.Payload...))
}

// forward re-sends a frame toward its destination: unicast along a known
// route, otherwise a bounded flood. Frames whose budget is spent are dropped
// here, never re-sent, so a forwarded hop count cannot exceed the maximum.
func (m *Mesh) forward(f *protocol.Frame) {
	if f.HopCount >= m.cfg.MaxHops {
		zap.L().Debug("frame dropped: hop limit",
			zap.String("src", f.Src.String()), zap.String("dst", f.Dst.String()))
		return
	}
	fwd := *f
	fwd.HopCount++
	if err := m.sendToward(&fwd, fwd.Dst); err != nil {
		zap.L().Debug("forward failed",
			zap.String("dst", fwd.Dst.String()), zap.Error(err))
	}
}

// handleRouteRequest answers when this node is the target or knows a route
// to it; otherwise the request keeps flooding.
func (m *Mesh) handleRouteRequest(f *protocol.Frame, now time.Time) {
	if len(f.Payload) < protocol.AddrLen {
		zap.L().Debug("route request dropped: short payload")
		return
	}
	var target protocol.HWAddr
	copy(target[:], f.Payload[:protocol.AddrLen])

	var hops uint8
	known := false
	switch {
	case target == m.cfg.Self:
		hops, known = 0, true
	default:
		if r, ok := m.routes.Resolve(target); ok {
			hops, known = r.Hops, true
		}
	}
	if !known {
		m.forwardBroadcast(f)
		return
	}

	reply := protocol.Frame{
		Type:    protocol.TypeRouteReply,
		Src:     m.cfg.Self,
		Dst:     f.Src,
		Seq:     m.nextSeq(),
		Payload: append(append([]byte(nil), target[:]...), hops),
	}
	if err := m.sendToward(&reply, f.Src); err != nil {
		zap.L().Debug("route reply send failed", zap.Error(err))
	}
}

// handleRouteReply learns the advertised route and, when this node is only a
// relay, keeps moving the reply toward the original requester.
func (m *Mesh) handleRouteReply(f *protocol.Frame, now time.Time) {
	if len(f.Payload) < protocol.AddrLen+1 {
		zap.L().Debug("route reply dropped: short payload")
		return
	}
	var target protocol.HWAddr
	copy(target[:], f.Payload[:protocol.AddrLen])
	advertised := f.Payload[protocol.AddrLen]

	// The replier vouches for the target at `advertised` hops from itself;
	// from here the path runs through the replier.
	if target != m.cfg.Self {
		m.routes.Update(target, f.Src, advertised+1, now, m.peers.Active)
	}
	if f.Dst != m.cfg.Self {
		m.forward(f)
	}
}

func (m *Mesh) handleAck(f *protocol.Frame, now time.Time) {
	if f.Dst != m.cfg.Self {
		m.forward(f)
		return
	}
	if len(f.Payload) < 2 {
		return
	}
	ackedSeq := binary.BigEndian.Uint16(f.Payload[:2])
	if rtt, ok := m.pending.settle(f.Src, ackedSeq, now); ok {
		zap.L().Debug("data acked",
			zap.String("peer", f.Src.String()),
			zap.Uint16("seq", ackedSeq),
			zap.Duration("rtt", rtt))
	}
}

// sendAck confirms locally delivered unicast data back to its origin.
func (m *Mesh) sendAck(f *protocol.Frame) {
	var seqBuf [2]byte
	binary.BigEndian.PutUint16(seqBuf[:], f.Seq)
	ack := protocol.Frame{
		Type:    protocol.TypeAck,
		Src:     m.cfg.Self,
		Dst:     f.Src,
		Seq:     m.nextSeq(),
		Payload: seqBuf[:],
	}
	if err := m.sendToward(&ack, f.Src); err != nil {
		zap.L().Debug("ack send failed", zap.Error(err))
	}
}

// forwardBroadcast re-broadcasts a flood frame with its hop count bumped,
// respecting the hop budget.
func (m *Mesh) forwardBroadcast(f *protocol.Frame) {
	if f.HopCount >= m.cfg.MaxHops {
		zap.L().Debug("flood dropped: hop limit", zap.String("src", f.Src.String()))
		return
	}
	fwd := *f
	fwd.HopCount++
	if err := m.broadcast(&fwd); err != nil {
		zap.L().Debug("flood relay failed", zap.Error(err))
	}
}
