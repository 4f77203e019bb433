package extract

// DefaultFields is the ordered list of dissector fields requested per packet.
var DefaultFields = []string{
	// frame
	"frame.time", "frame.time_delta", "frame.time_relative", "frame.len", "frame.protocols",
	// ethernet
	"eth.dst", "eth.src", "eth.type",
	// ip
	"ip.version", "ip.hdr_len", "ip.dsfield", "ip.dsfield.dscp", "ip.dsfield.ecn", "ip.len",
	"ip.flags", "ip.flags.df", "ip.flags.mf", "ip.ttl", "ip.proto", "ip.src", "ip.dst",
	// tcp
	"tcp.srcport", "tcp.dstport", "tcp.stream", "tcp.len", "tcp.hdr_len", "tcp.flags",
	"tcp.flags.cwr", "tcp.flags.urg", "tcp.flags.ack", "tcp.flags.push",
	"tcp.flags.reset", "tcp.flags.syn", "tcp.flags.fin", "tcp.flags.str",
	"tcp.window_size", "tcp.time_relative", "tcp.time_delta",
	"tcp.analysis.bytes_in_flight", "tcp.analysis.push_bytes_sent", "tcp.reassembled.length",
	// tls
	"tls.record.content_type", "tls.record.version", "tls.record.length",
	"tcp.payload",
	// udp
	"udp.srcport", "udp.dstport", "udp.length", "udp.stream",
	"data.len",
}

// payloadFields are cut to MaxPayloadLength characters.
var payloadFields = map[string]bool{
	"tcp.payload": true,
	"udp.payload": true,
}

const (
	// MaxPayloadLength is the number of payload characters kept per packet.
	MaxPayloadLength = 128

	// PacketMarker opens every packet block of a flow record.
	PacketMarker = "<pck>"

	// FeatureMarker opens the session statistics block of a flow record.
	FeatureMarker = "<feature>"
)
