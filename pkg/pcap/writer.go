package pcap

import (
	"fmt"
	"log"
	"os"

	"Go2FlowText/internal/model"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const defaultSnapLen = 65536

// WriteFile writes packets into a new pcap file with the given link type.
func WriteFile(filePath string, linkType layers.LinkType, packets []model.Packet) error {
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create pcap file '%s': %w", filePath, err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(defaultSnapLen, linkType); err != nil {
		return fmt.Errorf("failed to write pcap header: %w", err)
	}
	for i, p := range packets {
		ci := p.CaptureInfo
		if ci.CaptureLength != len(p.Data) {
			ci.CaptureLength = len(p.Data)
		}
		if ci.Length < ci.CaptureLength {
			ci.Length = ci.CaptureLength
		}
		if err := w.WritePacket(ci, p.Data); err != nil {
			return fmt.Errorf("failed to write packet %d: %w", i, err)
		}
	}
	return f.Close()
}

// WriteMerged writes the concatenated packets of a filter result. The file
// takes the link type of the first flow; flows captured with a different link
// type are still written, in place, so the packet order is unchanged.
func WriteMerged(filePath string, result *model.WorkerResult) error {
	linkType := layers.LinkTypeEthernet
	if len(result.LinkTypes) > 0 {
		linkType = layers.LinkType(result.LinkTypes[0])
		for i, lt := range result.LinkTypes {
			if lt != result.LinkTypes[0] {
				log.Printf("Warning: flow %d has link type %d, merged capture uses %d", i, lt, result.LinkTypes[0])
			}
		}
	}
	return WriteFile(filePath, linkType, result.Packets)
}
