package session

import (
	"fmt"
	"net/netip"
	"path/filepath"
	"strconv"
	"strings"

	"Go2FlowText/internal/model"
	"Go2FlowText/internal/protocol"
	"Go2FlowText/pkg/pcap"
)

// ParseDescriptor extracts the session 5-tuple from a SplitCap session file
// name such as "capture.TCP_10-0-0-1_443_10-0-0-2_51000.pcap".
func ParseDescriptor(filename string) (model.FiveTuple, error) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	parts := strings.Split(base, ".")

	for i := len(parts) - 1; i >= 0; i-- {
		tokens := strings.Split(parts[i], "_")
		if len(tokens) != 5 {
			continue
		}
		proto := strings.ToLower(tokens[0])
		if proto != "tcp" && proto != "udp" {
			continue
		}
		srcIP, err := parseAddr(tokens[1])
		if err != nil {
			continue
		}
		srcPort, err := strconv.ParseUint(tokens[2], 10, 16)
		if err != nil {
			continue
		}
		dstIP, err := parseAddr(tokens[3])
		if err != nil {
			continue
		}
		dstPort, err := strconv.ParseUint(tokens[4], 10, 16)
		if err != nil {
			continue
		}
		return model.FiveTuple{
			Protocol: proto,
			SrcIP:    srcIP,
			SrcPort:  uint16(srcPort),
			DstIP:    dstIP,
			DstPort:  uint16(dstPort),
		}, nil
	}
	return model.FiveTuple{}, fmt.Errorf("no session descriptor in file name '%s'", filepath.Base(filename))
}

// parseAddr accepts IPv4 written with '-' instead of '.', and IPv6 written with
// '-' instead of ':'.
func parseAddr(s string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(strings.ReplaceAll(s, "-", ".")); err == nil {
		return addr, nil
	}
	return netip.ParseAddr(strings.ReplaceAll(s, "-", ":"))
}

// DescriptorFor returns the descriptor from the file name, falling back to the
// first packet of the capture.
func DescriptorFor(capturePath string) (model.FiveTuple, error) {
	if ft, err := ParseDescriptor(capturePath); err == nil {
		return ft, nil
	}
	packets, linkType, err := pcap.ReadPackets(capturePath, 1)
	if err != nil {
		return model.FiveTuple{}, err
	}
	if len(packets) == 0 {
		return model.FiveTuple{}, fmt.Errorf("capture '%s' has no packets", capturePath)
	}
	return protocol.ParseFiveTuple(packets[0].Data, linkType)
}
