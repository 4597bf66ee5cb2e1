package mesh

import (
	"sync"
	"time"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
)

// ackTable tracks unicast data frames awaiting confirmation. There is no
// retransmission: a record either settles when the ack arrives or expires
// during maintenance, and the loss is the application's to tolerate.
type ackTable struct {
	mu      sync.Mutex
	timeout time.Duration
	pending map[ackKey]time.Time
}

type ackKey struct {
	peer protocol.HWAddr
	seq  uint16
}

func newAckTable(timeout time.Duration) *ackTable {
	return &ackTable{timeout: timeout, pending: make(map[ackKey]time.Time)}
}

func (a *ackTable) track(peer protocol.HWAddr, seq uint16, sentAt time.Time) {
	a.mu.Lock()
	a.pending[ackKey{peer, seq}] = sentAt
	a.mu.Unlock()
}

// settle clears the record for (peer, seq) and returns the round-trip time.
func (a *ackTable) settle(peer protocol.HWAddr, seq uint16, now time.Time) (time.Duration, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := ackKey{peer, seq}
	sentAt, ok := a.pending[k]
	if !ok {
		return 0, false
	}
	delete(a.pending, k)
	return now.Sub(sentAt), true
}

// expire drops records older than the timeout and returns how many.
func (a *ackTable) expire(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for k, sentAt := range a.pending {
		if now.Sub(sentAt) > a.timeout {
			delete(a.pending, k)
			n++
		}
	}
	return n
}

func (a *ackTable) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
