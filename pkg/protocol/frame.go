package protocol

import (
	"encoding/binary"
	"errors"
)

// Fixed header layout (18 bytes) in network byte order.
//
//	0        Type    u8
//	1  ..6   Src     [6]byte
//	7  ..12  Dst     [6]byte
//	13       HopCount u8
//	14 ..15  Seq     u16
//	16 ..17  DataLen u16
//	18 ..    Payload (DataLen bytes, at most MaxPayload)
const (
	HeaderSize = 18
	MaxPayload = 200
	// MaxFrameSize is the largest encoded frame a transport must carry.
	MaxFrameSize = HeaderSize + MaxPayload
)

var (
	// ErrMalformedFrame marks a structurally invalid frame; the receive path
	// drops these silently.
	ErrMalformedFrame = errors.New("protocol: malformed frame")
	// ErrPayloadTooLarge is returned to senders whose payload exceeds MaxPayload.
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
)

// Frame is one mesh message. It is owned by whichever stage is processing it;
// nothing retains a Frame across dispatch.
type Frame struct {
	Type     uint8
	Src      HWAddr
	Dst      HWAddr
	HopCount uint8
	Seq      uint16
	Payload  []byte
}

// MarshalBinary encodes the frame. Fails with ErrPayloadTooLarge when the
// payload exceeds MaxPayload; has no side effects beyond buffer construction.
func (f *Frame) MarshalBinary() ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderSize+len(f.Payload))
	buf[0] = f.Type
	copy(buf[1:7], f.Src[:])
	copy(buf[7:13], f.Dst[:])
	buf[13] = f.HopCount
	binary.BigEndian.PutUint16(buf[14:16], f.Seq)
	binary.BigEndian.PutUint16(buf[16:18], uint16(len(f.Payload)))
	copy(buf[HeaderSize:], f.Payload)
	return buf, nil
}

// UnmarshalBinary decodes a frame, rejecting short buffers, over-bound
// declared lengths and truncated payloads with ErrMalformedFrame.
func (f *Frame) UnmarshalBinary(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrMalformedFrame
	}
	dataLen := int(binary.BigEndian.Uint16(buf[16:18]))
	if dataLen > MaxPayload || HeaderSize+dataLen > len(buf) {
		return ErrMalformedFrame
	}
	f.Type = buf[0]
	copy(f.Src[:], buf[1:7])
	copy(f.Dst[:], buf[7:13])
	f.HopCount = buf[13]
	f.Seq = binary.BigEndian.Uint16(buf[14:16])
	f.Payload = append(f.Payload[:0], buf[HeaderSize:HeaderSize+dataLen]...)
	return nil
}
