package telemetry

import (
	"math/rand"
	"sync"
	"time"
)

// Sampler produces readings for a device. Hardware-backed implementations
// live with the host; Simulated stands in where no sensor exists.
type Sampler interface {
	Sample() Reading
}

// Simulated drifts plausible sensor values around a baseline and drains a
// battery slowly, enough to exercise the reporting path end to end.
type Simulated struct {
	Device string

	mu      sync.Mutex
	seq     uint32
	started time.Time
	rng     *rand.Rand
}

// NewSimulated seeds a simulated sensor for the named device.
func NewSimulated(device string, seed int64) *Simulated {
	return &Simulated{
		Device:  device,
		started: time.Now(),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (s *Simulated) Sample() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	uptime := uint32(time.Since(s.started) / time.Second)
	return Reading{
		Device:      s.Device,
		Seq:         s.seq,
		Temperature: 21.0 + s.rng.Float32()*4 - 2,
		Humidity:    50.0 + s.rng.Float32()*10 - 5,
		Battery:     4.1 - float32(uptime)/86400*0.3, // ~0.3 V/day
		Uptime:      uptime,
	}
}
