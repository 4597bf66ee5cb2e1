// Package transport defines the connectionless link layer under the mesh.
package transport

import (
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
)

// Receiver is invoked once per inbound frame. Implementations call it from a
// single goroutine per transport, so the mesh sees frames one at a time.
type Receiver func(frame []byte)

// Transport sends framed datagrams addressed by hardware address. Sending to
// protocol.Broadcast reaches every station in radio range; unicast reaches
// one. Delivery is fire-and-forget: there is no acknowledgment at this layer
// and loss is expected.
type Transport interface {
	// Send transmits one frame. Frames longer than MTU are rejected.
	Send(dst protocol.HWAddr, frame []byte) error
	// SetReceiver registers the inbound frame callback. Must be called
	// before traffic is expected; replacing the receiver mid-flight is not
	// supported.
	SetReceiver(fn Receiver)
	// MTU returns the largest frame Send accepts.
	MTU() int
	Close() error
}
