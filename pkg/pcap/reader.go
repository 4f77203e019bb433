package pcap

import (
	"errors"
	"fmt"
	"io"
	"os"

	"Go2FlowText/internal/model"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Reader reads packets from a pcap file.
type Reader struct {
	file   *os.File
	reader *pcapgo.Reader
}

// NewReader opens a pcap file for sequential reading.
func NewReader(filePath string) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read pcap header of '%s': %w", filePath, err)
	}
	return &Reader{file: f, reader: r}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() {
	r.file.Close()
}

// LinkType returns the link type recorded in the file header.
func (r *Reader) LinkType() layers.LinkType {
	return r.reader.LinkType()
}

// Next returns the next packet, or io.EOF at the end of the file.
func (r *Reader) Next() (model.Packet, error) {
	data, ci, err := r.reader.ReadPacketData()
	if err != nil {
		return model.Packet{}, err
	}
	return model.Packet{CaptureInfo: ci, Data: data}, nil
}

// CountPackets counts the records of a capture, stopping as soon as limit is
// reached. A truncated trailing record ends the count without an error.
func CountPackets(filePath string, limit int) (int, error) {
	r, err := NewReader(filePath)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	count := 0
	for count < limit {
		if _, _, err := r.reader.ReadPacketData(); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return count, err
		}
		count++
	}
	return count, nil
}

// ReadPackets reads at most max packets from the start of a capture.
func ReadPackets(filePath string, max int) ([]model.Packet, layers.LinkType, error) {
	r, err := NewReader(filePath)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	packets := make([]model.Packet, 0, max)
	for len(packets) < max {
		p, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return packets, r.LinkType(), err
		}
		packets = append(packets, p)
	}
	return packets, r.LinkType(), nil
}
