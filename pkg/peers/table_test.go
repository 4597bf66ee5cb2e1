package peers

import (
	"errors"
	"testing"
	"time"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
)

func addr(last byte) protocol.HWAddr {
	return protocol.HWAddr{0x02, 0, 0, 0, 0, last}
}

func TestUpsertInsertAndRefresh(t *testing.T) {
	now := time.Now()
	tbl := New(4, time.Minute)

	p, err := tbl.Upsert(addr(1), -60, 1, false, now)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if p.Hops != 1 || p.Gateway || !p.Active {
		t.Fatalf("unexpected entry: %+v", p)
	}
	if tbl.Count() != 1 {
		t.Fatalf("count = %d, want 1", tbl.Count())
	}

	later := now.Add(10 * time.Second)
	p, err = tbl.Upsert(addr(1), -40, 2, true, later)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if tbl.Count() != 1 {
		t.Fatalf("refresh added an entry, count = %d", tbl.Count())
	}
	if p.Signal != -40 || p.Hops != 2 || !p.Gateway || !p.LastSeen.Equal(later) {
		t.Fatalf("refresh did not overwrite: %+v", p)
	}
}

func TestUpsertFullTableSweepsThenRejects(t *testing.T) {
	now := time.Now()
	tbl := New(2, time.Minute)

	if _, err := tbl.Upsert(addr(1), -50, 1, false, now); err != nil {
		t.Fatalf("upsert 1: %v", err)
	}
	if _, err := tbl.Upsert(addr(2), -50, 1, false, now); err != nil {
		t.Fatalf("upsert 2: %v", err)
	}

	// both fresh, third must be rejected
	if _, err := tbl.Upsert(addr(3), -50, 1, false, now.Add(time.Second)); !errors.Is(err, ErrTableFull) {
		t.Fatalf("err = %v, want ErrTableFull", err)
	}

	// once the first entry ages out, admission sweeps it and succeeds
	stale := now.Add(2 * time.Minute)
	if _, err := tbl.Upsert(addr(2), -50, 1, false, stale); err != nil {
		t.Fatalf("keepalive: %v", err)
	}
	if _, err := tbl.Upsert(addr(3), -50, 1, false, stale.Add(time.Second)); err != nil {
		t.Fatalf("upsert after sweep: %v", err)
	}
	if _, ok := tbl.Find(addr(1)); ok {
		t.Fatal("stale peer survived admission sweep")
	}
}

func TestSweepStale(t *testing.T) {
	now := time.Now()
	tbl := New(4, time.Minute)
	tbl.Upsert(addr(1), -50, 1, false, now)
	tbl.Upsert(addr(2), -50, 1, false, now.Add(30*time.Second))

	if removed := tbl.SweepStale(now.Add(45 * time.Second)); len(removed) != 0 {
		t.Fatalf("premature sweep removed %v", removed)
	}
	removed := tbl.SweepStale(now.Add(70 * time.Second))
	if len(removed) != 1 || removed[0] != addr(1) {
		t.Fatalf("sweep removed %v, want [%s]", removed, addr(1))
	}
	if tbl.Active(addr(1)) {
		t.Fatal("swept peer still active")
	}
	if !tbl.Active(addr(2)) {
		t.Fatal("fresh peer lost")
	}
}

func TestNearestGatewayPrefersFewerHopsThenSignal(t *testing.T) {
	now := time.Now()
	tbl := New(8, time.Minute)
	tbl.Upsert(addr(1), -40, 1, false, now) // strong but not a gateway
	tbl.Upsert(addr(2), -60, 2, true, now)  // gateway, 2 hops, good signal
	tbl.Upsert(addr(3), -80, 1, true, now)  // gateway, 1 hop, weak signal

	gw, ok := tbl.NearestGateway()
	if !ok {
		t.Fatal("no gateway found")
	}
	if gw.Addr != addr(3) {
		t.Fatalf("nearest gateway = %s, want %s (fewest hops wins)", gw.Addr, addr(3))
	}

	// equal hops: stronger signal wins
	tbl.Upsert(addr(4), -55, 1, true, now)
	gw, _ = tbl.NearestGateway()
	if gw.Addr != addr(4) {
		t.Fatalf("nearest gateway = %s, want %s (signal tiebreak)", gw.Addr, addr(4))
	}
}

func TestNearestGatewayNoneKnown(t *testing.T) {
	tbl := New(4, time.Minute)
	tbl.Upsert(addr(1), -50, 1, false, time.Now())
	if _, ok := tbl.NearestGateway(); ok {
		t.Fatal("gateway reported from a gateway-free table")
	}
}

func TestListSnapshotIsIndependent(t *testing.T) {
	now := time.Now()
	tbl := New(4, time.Minute)
	tbl.Upsert(addr(1), -50, 1, false, now)

	snap := tbl.List()
	snap[0].Addr = addr(9)
	if p, ok := tbl.Find(addr(1)); !ok || p.Addr != addr(1) {
		t.Fatal("mutating the snapshot changed the table")
	}
}
