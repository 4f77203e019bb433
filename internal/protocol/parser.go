package protocol

import (
	"fmt"
	"net/netip"

	"Go2FlowText/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ParseFiveTuple decodes a raw packet and returns its session 5-tuple.
func ParseFiveTuple(data []byte, linkType layers.LinkType) (model.FiveTuple, error) {
	packet := gopacket.NewPacket(data, linkType, gopacket.Default)

	var ft model.FiveTuple
	var ok bool

	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		ft.SrcIP, _ = netip.AddrFromSlice(ip.SrcIP.To4())
		ft.DstIP, _ = netip.AddrFromSlice(ip.DstIP.To4())
		ok = true
	} else if l := packet.Layer(layers.LayerTypeIPv6); l != nil {
		ip := l.(*layers.IPv6)
		ft.SrcIP, _ = netip.AddrFromSlice(ip.SrcIP)
		ft.DstIP, _ = netip.AddrFromSlice(ip.DstIP)
		ok = true
	}
	if !ok {
		return ft, fmt.Errorf("not an IP packet")
	}

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		ft.Protocol = "tcp"
		ft.SrcPort = uint16(tcp.SrcPort)
		ft.DstPort = uint16(tcp.DstPort)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		ft.Protocol = "udp"
		ft.SrcPort = uint16(udp.SrcPort)
		ft.DstPort = uint16(udp.DstPort)
	} else {
		return ft, fmt.Errorf("not a TCP or UDP packet")
	}

	return ft, nil
}
