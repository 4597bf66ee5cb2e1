package protocol

// Frame types carried in the first header byte.
const (
	TypeUnknown      uint8 = iota
	TypeDiscovery          // presence announcement, hop-limited flood
	TypeHeartbeat          // periodic liveness + gateway advertisement
	TypeData               // application payload
	TypeRouteRequest       // on-demand route discovery
	TypeRouteReply         // answer to a route request
	TypeAck                // delivery confirmation for unicast data
)

// TypeName returns a short label for logging.
func TypeName(t uint8) string {
	switch t {
	case TypeDiscovery:
		return "discovery"
	case TypeHeartbeat:
		return "heartbeat"
	case TypeData:
		return "data"
	case TypeRouteRequest:
		return "route-request"
	case TypeRouteReply:
		return "route-reply"
	case TypeAck:
		return "ack"
	default:
		return "unknown"
	}
}
