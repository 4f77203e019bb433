// Package synth builds synthetic session captures laid out the way SplitCap
// writes them. It backs scripts/pcapgen and the package tests.
package synth

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"Go2FlowText/internal/model"
	"Go2FlowText/pkg/pcap"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dstMAC = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA}
)

// Packet serializes one Ethernet/IPv4 packet carrying TCP or UDP, depending on
// ft.Protocol.
func Packet(ft model.FiveTuple, payload []byte, ts time.Time) (model.Packet, error) {
	ethLayer := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ipLayer := &layers.IPv4{
		SrcIP:   net.IP(ft.SrcIP.AsSlice()),
		DstIP:   net.IP(ft.DstIP.AsSlice()),
		Version: 4,
		TTL:     64,
	}

	var transport gopacket.SerializableLayer
	switch strings.ToLower(ft.Protocol) {
	case "udp":
		ipLayer.Protocol = layers.IPProtocolUDP
		udpLayer := &layers.UDP{
			SrcPort: layers.UDPPort(ft.SrcPort),
			DstPort: layers.UDPPort(ft.DstPort),
		}
		udpLayer.SetNetworkLayerForChecksum(ipLayer)
		transport = udpLayer
	default:
		ipLayer.Protocol = layers.IPProtocolTCP
		tcpLayer := &layers.TCP{
			SrcPort: layers.TCPPort(ft.SrcPort),
			DstPort: layers.TCPPort(ft.DstPort),
			Seq:     1000,
			ACK:     true,
			PSH:     true,
			Window:  14600,
		}
		tcpLayer.SetNetworkLayerForChecksum(ipLayer)
		transport = tcpLayer
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		ComputeChecksums: true,
		FixLengths:       true,
	}
	if err := gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, transport, gopacket.Payload(payload)); err != nil {
		return model.Packet{}, fmt.Errorf("failed to serialize layers: %w", err)
	}

	data := buf.Bytes()
	return model.Packet{
		CaptureInfo: gopacket.CaptureInfo{
			Timestamp:     ts,
			CaptureLength: len(data),
			Length:        len(data),
		},
		Data: data,
	}, nil
}

// SessionFileName returns the SplitCap session file name for ft, e.g.
// "capture.TCP_10-0-0-1_443_10-0-0-2_51000.pcap".
func SessionFileName(prefix string, ft model.FiveTuple) string {
	addr := func(a string) string {
		return strings.NewReplacer(".", "-", ":", "-").Replace(a)
	}
	return fmt.Sprintf("%s.%s_%s_%d_%s_%d.pcap", prefix, strings.ToUpper(ft.Protocol),
		addr(ft.SrcIP.String()), ft.SrcPort, addr(ft.DstIP.String()), ft.DstPort)
}

// WriteSession writes numPackets packets of ft, alternating direction, into
// dir under the SplitCap name and returns the file path.
func WriteSession(dir, prefix string, ft model.FiveTuple, numPackets, payloadSize int) (string, error) {
	packets := make([]model.Packet, 0, numPackets)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < numPackets; i++ {
		pktTuple := ft
		if i%2 == 1 {
			pktTuple = ft.Reverse()
		}
		payload := make([]byte, payloadSize)
		for j := range payload {
			payload[j] = byte(i + j)
		}
		p, err := Packet(pktTuple, payload, start.Add(time.Duration(i)*time.Millisecond))
		if err != nil {
			return "", err
		}
		packets = append(packets, p)
	}

	path := filepath.Join(dir, SessionFileName(prefix, ft))
	if err := pcap.WriteFile(path, layers.LinkTypeEthernet, packets); err != nil {
		return "", err
	}
	return path, nil
}
