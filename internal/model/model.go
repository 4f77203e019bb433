package model

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/google/gopacket"
)

// FiveTuple identifies a session. Protocol is lower case ("tcp", "udp").
type FiveTuple struct {
	Protocol string
	SrcIP    netip.Addr
	SrcPort  uint16
	DstIP    netip.Addr
	DstPort  uint16
}

// Reverse returns the tuple as seen from the other endpoint.
func (ft FiveTuple) Reverse() FiveTuple {
	return FiveTuple{
		Protocol: ft.Protocol,
		SrcIP:    ft.DstIP,
		SrcPort:  ft.DstPort,
		DstIP:    ft.SrcIP,
		DstPort:  ft.SrcPort,
	}
}

// Key returns a canonical string for map lookups, e.g. "tcp|1.2.3.4|443|5.6.7.8|5000".
func (ft FiveTuple) Key() string {
	return fmt.Sprintf("%s|%s|%d|%s|%d", strings.ToLower(ft.Protocol), ft.SrcIP.Unmap(), ft.SrcPort, ft.DstIP.Unmap(), ft.DstPort)
}

// IsValid reports whether both addresses are set.
func (ft FiveTuple) IsValid() bool {
	return ft.SrcIP.IsValid() && ft.DstIP.IsValid()
}

// Packet is one raw captured packet together with its capture metadata.
type Packet struct {
	CaptureInfo gopacket.CaptureInfo
	Data        []byte
}

// WorkerResult is the output of one flow filter worker. Entry i of PacketCounts
// and Features describes the i-th flow, whose packets are the next
// PacketCounts[i] entries of Packets.
type WorkerResult struct {
	Packets      []Packet
	PacketCounts []int
	Features     []string
	LinkTypes    []int
}

// Flows returns the number of flows held by the result.
func (r *WorkerResult) Flows() int {
	return len(r.PacketCounts)
}

// Append adds one accepted flow.
func (r *WorkerResult) Append(packets []Packet, linkType int, feature string) {
	r.Packets = append(r.Packets, packets...)
	r.PacketCounts = append(r.PacketCounts, len(packets))
	r.Features = append(r.Features, feature)
	r.LinkTypes = append(r.LinkTypes, linkType)
}

// Merge appends other after r, keeping other's internal order intact.
func (r *WorkerResult) Merge(other *WorkerResult) {
	r.Packets = append(r.Packets, other.Packets...)
	r.PacketCounts = append(r.PacketCounts, other.PacketCounts...)
	r.Features = append(r.Features, other.Features...)
	r.LinkTypes = append(r.LinkTypes, other.LinkTypes...)
}

// Validate checks that packets, counts and features still line up.
func (r *WorkerResult) Validate() error {
	if len(r.PacketCounts) != len(r.Features) || len(r.PacketCounts) != len(r.LinkTypes) {
		return fmt.Errorf("flow metadata out of step: %d counts, %d features, %d link types",
			len(r.PacketCounts), len(r.Features), len(r.LinkTypes))
	}
	total := 0
	for _, n := range r.PacketCounts {
		total += n
	}
	if total != len(r.Packets) {
		return fmt.Errorf("packet counts sum to %d but %d packets were collected", total, len(r.Packets))
	}
	return nil
}

// DatasetRow is one training example.
type DatasetRow struct {
	Inputs   string `json:"inputs"`
	Label    int    `json:"labels"`
	StrLabel string `json:"str_labels"`
}

// LabelEntry maps a class name to its integer id.
type LabelEntry struct {
	Str string `json:"str"`
	Int int    `json:"int"`
}

// Dataset is the complete output of a run.
type Dataset struct {
	Name   string
	All    []DatasetRow
	Train  []DatasetRow
	Val    []DatasetRow
	Test   []DatasetRow
	Labels []LabelEntry
}

// Splits returns the named row sets in output order.
func (d *Dataset) Splits() []NamedRows {
	return []NamedRows{
		{Name: "data", Rows: d.All},
		{Name: "train", Rows: d.Train},
		{Name: "val", Rows: d.Val},
		{Name: "test", Rows: d.Test},
	}
}

// NamedRows pairs a split name with its rows.
type NamedRows struct {
	Name string
	Rows []DatasetRow
}
