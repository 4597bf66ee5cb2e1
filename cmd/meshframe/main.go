// Command meshframe generates sample binary frames for interoperability
// checks and decodes captured ones back to a readable form.
package main

import (
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/telemetry"
)

func main() {
	outDir := flag.String("out", "testdata/frame", "output directory for binary frames")
	decode := flag.String("decode", "", "decode a captured frame file instead of generating")
	flag.Parse()

	if *decode != "" {
		if err := decodeFile(*decode); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	src := mustAddr("02:aa:00:00:00:01")
	gw := mustAddr("02:aa:00:00:00:ff")

	// 1) Discovery broadcast, non-gateway
	writeOut(*outDir, "frame_discovery.bin", mustFrame(&protocol.Frame{
		Type:    protocol.TypeDiscovery,
		Src:     src,
		Dst:     protocol.Broadcast,
		Seq:     1,
		Payload: []byte{0},
	}))

	// 2) Heartbeat from a gateway: flag set, zero hops to itself, 3 peers
	writeOut(*outDir, "frame_heartbeat.bin", mustFrame(&protocol.Frame{
		Type:    protocol.TypeHeartbeat,
		Src:     gw,
		Dst:     protocol.Broadcast,
		Seq:     7,
		Payload: []byte{1, 0, 3},
	}))

	// 3) Data frame carrying an encoded telemetry reading
	reading, err := telemetry.Encode(telemetry.Reading{
		Device:      "bench-01",
		Seq:         42,
		Temperature: 21.5,
		Humidity:    48.0,
		Battery:     3.9,
		Uptime:      3600,
	})
	if err != nil {
		log.Fatal(err)
	}
	writeOut(*outDir, "frame_data_reading.bin", mustFrame(&protocol.Frame{
		Type:    protocol.TypeData,
		Src:     src,
		Dst:     gw,
		Seq:     42,
		Payload: reading,
	}))

	// 4) Route request for the gateway, already relayed twice
	writeOut(*outDir, "frame_rreq.bin", mustFrame(&protocol.Frame{
		Type:     protocol.TypeRouteRequest,
		Src:      src,
		Dst:      protocol.Broadcast,
		HopCount: 2,
		Seq:      9,
		Payload:  gw[:],
	}))

	// 5) Ack for the data frame above
	ack := make([]byte, 2)
	binary.BigEndian.PutUint16(ack, 42)
	writeOut(*outDir, "frame_ack.bin", mustFrame(&protocol.Frame{
		Type:    protocol.TypeAck,
		Src:     gw,
		Dst:     src,
		Seq:     8,
		Payload: ack,
	}))

	fmt.Println("Generated sample frames in", *outDir)
}

func decodeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f protocol.Frame
	if err := f.UnmarshalBinary(raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	fmt.Printf("type:     %s\n", protocol.TypeName(f.Type))
	fmt.Printf("src:      %s\n", f.Src)
	fmt.Printf("dst:      %s\n", f.Dst)
	fmt.Printf("hops:     %d\n", f.HopCount)
	fmt.Printf("seq:      %d\n", f.Seq)
	fmt.Printf("payload:  %d bytes  %s\n", len(f.Payload), shortHex(f.Payload, 64))
	if f.Type == protocol.TypeData {
		if r, err := telemetry.Decode(f.Payload); err == nil {
			fmt.Printf("reading:  %s #%d  %.1fC %.1f%% %.2fV up=%ds\n",
				r.Device, r.Seq, r.Temperature, r.Humidity, r.Battery, r.Uptime)
		}
	}
	return nil
}

func mustAddr(s string) protocol.HWAddr {
	a, err := protocol.ParseHWAddr(s)
	if err != nil {
		log.Fatal(err)
	}
	return a
}

func mustFrame(f *protocol.Frame) []byte {
	b, err := f.MarshalBinary()
	if err != nil {
		log.Fatal(err)
	}
	return b
}

func writeOut(dir, name string, b []byte) {
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%-24s %5d bytes  head: %s\n", name, len(b), shortHex(b, 64))
}

func shortHex(b []byte, n int) string {
	if len(b) == 0 {
		return ""
	}
	if n > len(b) {
		n = len(b)
	}
	enc := hex.EncodeToString(b[:n])
	if len(b) > n {
		enc += "..."
	}
	var out []string
	for i := 0; i < len(enc); i += 4 {
		j := i + 4
		if j > len(enc) {
			j = len(enc)
		}
		out = append(out, enc[i:j])
	}
	return strings.Join(out, " ")
}
