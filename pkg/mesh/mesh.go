// Package mesh implements the ad hoc multi-hop protocol core: discovery,
// heartbeat/liveness, shortest-hop forwarding with bounded floods, duplicate
// suppression and gateway selection.
package mesh

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/peers"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/routes"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/seen"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/transport"
)

// Protocol constants. These are build-time characteristics of the mesh, not
// runtime-negotiable knobs; Config lets tests shrink them.
const (
	DefaultMaxPeers          = 20
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultPeerTimeout       = 2 * time.Minute
	DefaultMaxHops           = 5
	DefaultAckTimeout        = 10 * time.Second

	// dedupCapacity bounds the number of sources tracked for duplicate
	// suppression; comfortably above the peer table so relayed origins
	// beyond it are still deduplicated.
	dedupCapacity = 64

	// defaultSignal stands in for a link-quality reading; the link layer
	// here reports no RSSI, matching radios whose receive path exposes none.
	defaultSignal = -50
)

// ErrNotRunning is returned by operations invoked before Init.
var ErrNotRunning = errors.New("mesh: not initialized")

// DataHandler receives application payloads addressed to this node.
type DataHandler interface {
	HandleData(src protocol.HWAddr, payload []byte)
}

// DataHandlerFunc adapts a function to DataHandler.
type DataHandlerFunc func(src protocol.HWAddr, payload []byte)

func (f DataHandlerFunc) HandleData(src protocol.HWAddr, payload []byte) { f(src, payload) }

// Config carries the per-node protocol parameters.
type Config struct {
	Self              protocol.HWAddr
	MaxPeers          int
	HeartbeatInterval time.Duration
	PeerTimeout       time.Duration
	MaxHops           uint8
	AckTimeout        time.Duration
	Gateway           bool
}

func (c *Config) fillDefaults() {
	if c.MaxPeers <= 0 {
		c.MaxPeers = DefaultMaxPeers
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.PeerTimeout <= 0 {
		c.PeerTimeout = DefaultPeerTimeout
	}
	if c.MaxHops == 0 {
		c.MaxHops = DefaultMaxHops
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = DefaultAckTimeout
	}
}

// Mesh is one node's protocol state. The transport delivers frames from a
// single goroutine and the maintenance tick is the only other mutator; the
// tables carry their own short-lived locks so read-only introspection is
// safe for collaborators on any goroutine.
type Mesh struct {
	cfg Config
	tr  transport.Transport

	peers   *peers.Table
	routes  *routes.Table
	dedup   *seen.Cache
	pending *ackTable

	mu            sync.Mutex
	seq           uint16
	gateway       bool
	handler       DataHandler
	lastHeartbeat time.Time
	inited        bool
}

// New assembles a mesh node over the given transport. Init must be called
// before any traffic flows.
func New(cfg Config, tr transport.Transport) *Mesh {
	cfg.fillDefaults()
	return &Mesh{
		cfg:     cfg,
		tr:      tr,
		peers:   peers.New(cfg.MaxPeers, cfg.PeerTimeout),
		routes:  routes.New(cfg.MaxPeers),
		dedup:   seen.New(dedupCapacity),
		pending: newAckTable(cfg.AckTimeout),
		gateway: cfg.Gateway,
	}
}

// Init hooks the transport receive path and announces this node with an
// initial discovery broadcast. It is a one-time call.
func (m *Mesh) Init() error {
	m.mu.Lock()
	if m.inited {
		m.mu.Unlock()
		return errors.New("mesh: already initialized")
	}
	m.inited = true
	m.mu.Unlock()

	m.tr.SetReceiver(m.handleRaw)
	zap.L().Info("mesh up",
		zap.String("addr", m.cfg.Self.String()),
		zap.Bool("gateway", m.GatewayMode()))
	return m.SendDiscovery()
}

// Run drives the maintenance tick until ctx is done. The tick fires well
// inside the heartbeat interval so heartbeats are never late by more than
// one tick.
func (m *Mesh) Run(ctx context.Context) {
	period := m.cfg.HeartbeatInterval / 4
	if period > time.Second {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Tick(now)
		}
	}
}

// Tick runs due maintenance: heartbeat broadcast, peer staleness sweep,
// route repair and pending-ack expiry. Hosts that drive the loop themselves
// call this at least as often as the heartbeat interval.
func (m *Mesh) Tick(now time.Time) {
	m.mu.Lock()
	due := now.Sub(m.lastHeartbeat) >= m.cfg.HeartbeatInterval
	if due {
		m.lastHeartbeat = now
	}
	m.mu.Unlock()
	if !due {
		return
	}

	m.sendHeartbeat()
	if removed := m.peers.SweepStale(now); len(removed) > 0 {
		// A swept peer may come back rebooted with its sequence counter
		// restarted; its dedup history has to go with it or everything it
		// sends would read as stale.
		for _, src := range removed {
			m.dedup.Forget(src)
		}
		zap.L().Info("peer sweep", zap.Int("removed", len(removed)))
	}
	if dropped := m.routes.Repair(m.peers.Active); dropped > 0 {
		zap.L().Info("route repair", zap.Int("dropped", dropped))
	}
	if expired := m.pending.expire(now); expired > 0 {
		zap.L().Warn("unacked data frames", zap.Int("count", expired))
	}
}

// SendDiscovery broadcasts a presence announcement with hop count zero.
func (m *Mesh) SendDiscovery() error {
	if !m.running() {
		return ErrNotRunning
	}
	f := protocol.Frame{
		Type:    protocol.TypeDiscovery,
		Src:     m.cfg.Self,
		Dst:     protocol.Broadcast,
		Seq:     m.nextSeq(),
		Payload: []byte{m.gatewayByte()},
	}
	return m.broadcast(&f)
}

func (m *Mesh) sendHeartbeat() {
	hops := byte(0xFF) // no gateway known
	if m.GatewayMode() {
		hops = 0
	} else if gw, ok := m.peers.NearestGateway(); ok {
		hops = gw.Hops
	}
	f := protocol.Frame{
		Type:    protocol.TypeHeartbeat,
		Src:     m.cfg.Self,
		Dst:     protocol.Broadcast,
		Seq:     m.nextSeq(),
		Payload: []byte{m.gatewayByte(), hops, byte(m.peers.Count())},
	}
	if err := m.broadcast(&f); err != nil {
		zap.L().Warn("heartbeat send failed", zap.Error(err))
	}
}

// SendData originates an application payload toward dst. A known route means
// unicast to the next hop; otherwise the frame goes out as a hop-bounded
// flood. Unicast sends are tracked until the destination acks or the record
// times out — there is no retry, loss tolerance is the application's job.
func (m *Mesh) SendData(dst protocol.HWAddr, payload []byte) error {
	if !m.running() {
		return ErrNotRunning
	}
	if len(payload) > protocol.MaxPayload {
		return protocol.ErrPayloadTooLarge
	}
	f := protocol.Frame{
		Type:    protocol.TypeData,
		Src:     m.cfg.Self,
		Dst:     dst,
		Seq:     m.nextSeq(),
		Payload: payload,
	}
	if !dst.IsBroadcast() {
		m.pending.track(dst, f.Seq, time.Now())
	}
	return m.sendToward(&f, dst)
}

// SetDataHandler registers the sole delivery path for locally destined data.
func (m *Mesh) SetDataHandler(h DataHandler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// SetGatewayMode flips whether this node advertises itself as a gateway in
// its own discovery and heartbeat frames. The uplink itself is a collaborator
// concern pushed in from outside the mesh core.
func (m *Mesh) SetGatewayMode(on bool) {
	m.mu.Lock()
	m.gateway = on
	m.mu.Unlock()
}

// GatewayMode reports whether this node advertises itself as a gateway.
func (m *Mesh) GatewayMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gateway
}

// PeerCount returns the number of known peers.
func (m *Mesh) PeerCount() int { return m.peers.Count() }

// NearestGateway returns the best-known gateway peer: lowest hop count,
// ties broken by signal then discovery order.
func (m *Mesh) NearestGateway() (peers.Peer, bool) { return m.peers.NearestGateway() }

// Peers returns a snapshot of the peer table for introspection.
func (m *Mesh) Peers() []peers.Peer { return m.peers.List() }

// PendingAcks returns how many unicast data frames still await an ack.
func (m *Mesh) PendingAcks() int { return m.pending.len() }

// Self returns this node's hardware address.
func (m *Mesh) Self() protocol.HWAddr { return m.cfg.Self }

func (m *Mesh) running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inited
}

func (m *Mesh) nextSeq() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq
}

func (m *Mesh) gatewayByte() byte {
	if m.GatewayMode() {
		return 1
	}
	return 0
}

func (m *Mesh) broadcast(f *protocol.Frame) error {
	raw, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	return m.tr.Send(protocol.Broadcast, raw)
}

// sendToward unicasts along a resolved route or falls back to broadcast.
func (m *Mesh) sendToward(f *protocol.Frame, dst protocol.HWAddr) error {
	raw, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	if dst.IsBroadcast() {
		return m.tr.Send(protocol.Broadcast, raw)
	}
	if r, ok := m.routes.Resolve(dst); ok {
		return m.tr.Send(r.NextHop, raw)
	}
	return m.tr.Send(protocol.Broadcast, raw)
}
