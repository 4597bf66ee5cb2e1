package seen

import (
	"testing"
	"time"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
)

var (
	srcA = protocol.HWAddr{1, 1, 1, 1, 1, 1}
	srcB = protocol.HWAddr{2, 2, 2, 2, 2, 2}
)

func TestWitnessFirstAndDuplicate(t *testing.T) {
	c := New(8)
	now := time.Now()
	if !c.Witness(srcA, 5, now) {
		t.Fatal("first frame from a source must be new")
	}
	if c.Witness(srcA, 5, now) {
		t.Fatal("same sequence must be a duplicate")
	}
	if c.Witness(srcA, 4, now) {
		t.Fatal("older sequence must be a duplicate")
	}
	if !c.Witness(srcA, 6, now) {
		t.Fatal("next sequence must be new")
	}
	// independent per source
	if !c.Witness(srcB, 5, now) {
		t.Fatal("other sources are tracked independently")
	}
}

func TestWitnessWraparound(t *testing.T) {
	c := New(8)
	now := time.Now()
	if !c.Witness(srcA, 0xFFFF, now) {
		t.Fatal("seed")
	}
	if !c.Witness(srcA, 0, now) {
		t.Fatal("0 follows 0xFFFF under serial arithmetic")
	}
	if c.Witness(srcA, 0xFFFF, now) {
		t.Fatal("0xFFFF is now stale")
	}
}

func TestCapacityEviction(t *testing.T) {
	c := New(2)
	base := time.Now()
	c.Witness(srcA, 1, base)
	c.Witness(srcB, 1, base.Add(time.Second))
	third := protocol.HWAddr{3, 3, 3, 3, 3, 3}
	c.Witness(third, 1, base.Add(2*time.Second))
	if c.Len() != 2 {
		t.Fatalf("cache grew past capacity: %d", c.Len())
	}
	// srcA was least recently touched, so its history is gone and a replayed
	// frame counts as new again. That is the accepted cost of bounding memory.
	if !c.Witness(srcA, 1, base.Add(3*time.Second)) {
		t.Fatal("evicted source should read as new")
	}
}

func TestForget(t *testing.T) {
	c := New(4)
	now := time.Now()
	c.Witness(srcA, 9, now)
	c.Forget(srcA)
	if !c.Witness(srcA, 9, now) {
		t.Fatal("forgotten source should read as new")
	}
}
