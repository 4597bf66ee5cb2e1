package main

import (
	"context"
	"crypto/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/config"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/mesh"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/observability"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/readings"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/telemetry"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/transport/udp"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	zap.L().Info("meshnode started", zap.String("app", cfg.AppName))
	zap.L().Info("effective configuration", zap.Any("config", cfg))

	self, err := nodeAddr(cfg.NodeAddr)
	if err != nil {
		zap.L().Error("failed to init node address", zap.Error(err))
		return 1
	}
	zap.L().Info("node address", zap.String("addr", self.String()))

	if cfg.Transport.Kind != "udp" {
		zap.L().Error("transport kind is only usable in-process, daemon needs udp",
			zap.String("kind", cfg.Transport.Kind))
		return 1
	}
	station, err := udp.New(udp.Options{
		Self:   self,
		Listen: cfg.Transport.Listen,
		Links:  cfg.Transport.Links,
	})
	if err != nil {
		zap.L().Error("failed to start transport", zap.Error(err))
		return 1
	}
	defer func() { _ = station.Close() }()

	gateway := cfg.Mesh.Gateway || opts.Gateway
	node := mesh.New(mesh.Config{
		Self:              self,
		MaxPeers:          cfg.Mesh.MaxPeers,
		HeartbeatInterval: time.Duration(cfg.Mesh.HeartbeatMS) * time.Millisecond,
		PeerTimeout:       time.Duration(cfg.Mesh.PeerTimeoutMS) * time.Millisecond,
		MaxHops:           uint8(cfg.Mesh.MaxHops),
		AckTimeout:        time.Duration(cfg.Mesh.AckTimeoutMS) * time.Millisecond,
		Gateway:           gateway,
	}, station)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *readings.Store
	if gateway {
		store = readings.New(time.Duration(cfg.Telemetry.TTLMS) * time.Millisecond)
		node.SetDataHandler(gatewayHandler(store))
	} else {
		node.SetDataHandler(mesh.DataHandlerFunc(func(src protocol.HWAddr, payload []byte) {
			zap.L().Info("data received",
				zap.String("src", src.String()), zap.Int("len", len(payload)))
		}))
	}

	if err := node.Init(); err != nil {
		zap.L().Error("failed to init mesh", zap.Error(err))
		return 1
	}
	go node.Run(ctx)

	if cfg.Telemetry.Enable {
		device := cfg.Telemetry.Device
		if device == "" {
			device = cfg.AppName + "-" + self.String()[9:] // short suffix of the address
		}
		sampler := telemetry.NewSimulated(device, int64(self[4])<<8|int64(self[5]))
		go reportLoop(ctx, node, store, sampler,
			time.Duration(cfg.Telemetry.IntervalMS)*time.Millisecond)
	}

	zap.L().Info("node is running; press Ctrl+C to exit", zap.Bool("gateway", gateway))
	<-ctx.Done()
	return 0
}

// nodeAddr parses the configured address or derives a random locally
// administered one, the software analogue of reading the radio's burned-in
// address at boot.
func nodeAddr(s string) (protocol.HWAddr, error) {
	if s != "" {
		return protocol.ParseHWAddr(s)
	}
	var a protocol.HWAddr
	if _, err := rand.Read(a[:]); err != nil {
		return protocol.HWAddr{}, err
	}
	a[0] = 0x02 // locally administered, unicast
	return a, nil
}

// gatewayHandler absorbs telemetry readings into the store; payloads that are
// not readings are logged and dropped.
func gatewayHandler(store *readings.Store) mesh.DataHandler {
	return mesh.DataHandlerFunc(func(src protocol.HWAddr, payload []byte) {
		r, err := telemetry.Decode(payload)
		if err != nil {
			zap.L().Warn("undecodable payload at gateway",
				zap.String("src", src.String()), zap.Int("len", len(payload)))
			return
		}
		store.Put(r, src, time.Now())
		zap.L().Info("reading stored",
			zap.String("device", r.Device),
			zap.String("src", src.String()),
			zap.Float32("temp_c", r.Temperature),
			zap.Float32("humidity", r.Humidity),
			zap.Float32("battery_v", r.Battery))
	})
}

// reportLoop periodically samples the sensor and pushes the reading toward
// the nearest gateway. A gateway node keeps its own readings locally.
func reportLoop(ctx context.Context, node *mesh.Mesh, store *readings.Store, sampler telemetry.Sampler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		reading := sampler.Sample()
		payload, err := telemetry.Encode(reading)
		if err != nil {
			zap.L().Warn("reading not encodable", zap.Error(err))
			continue
		}

		if store != nil {
			// we are the gateway: record locally, nothing to forward
			store.Put(reading, node.Self(), time.Now())
			if n := store.Sweep(time.Now()); n > 0 {
				zap.L().Info("stale readings swept", zap.Int("count", n))
			}
			continue
		}

		gw, ok := node.NearestGateway()
		if !ok {
			zap.L().Debug("no gateway known, reading skipped",
				zap.String("device", reading.Device))
			continue
		}
		if err := node.SendData(gw.Addr, payload); err != nil {
			zap.L().Warn("reading send failed", zap.Error(err))
		}
	}
}
