// Package telemetry encodes sensor readings carried as mesh data payloads.
//
// Readings travel over a medium with a 200-byte payload bound, so the codec
// is CBOR with short field keys and Encode enforces the bound instead of
// letting the frame layer reject the result later.
package telemetry

import (
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
)

// Reading is one sensor sample from a node.
type Reading struct {
	Device      string  `cbor:"d"`
	Seq         uint32  `cbor:"n"`
	Temperature float32 `cbor:"t"`
	Humidity    float32 `cbor:"h"`
	Battery     float32 `cbor:"b"` // volts
	Uptime      uint32  `cbor:"u"` // seconds since boot
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// deterministic encoding so identical readings produce identical bytes
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

// Encode marshals r and fails when the result would not fit a mesh payload.
func Encode(r Reading) ([]byte, error) {
	b, err := encMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("telemetry: encode: %w", err)
	}
	if len(b) > protocol.MaxPayload {
		return nil, fmt.Errorf("telemetry: reading is %d bytes, payload bound is %d: %w",
			len(b), protocol.MaxPayload, protocol.ErrPayloadTooLarge)
	}
	return b, nil
}

// Decode unmarshals a reading from a mesh payload.
func Decode(payload []byte) (Reading, error) {
	var r Reading
	if err := decMode.Unmarshal(payload, &r); err != nil {
		return Reading{}, fmt.Errorf("telemetry: decode: %w", err)
	}
	return r, nil
}
