package session

import (
	"net/netip"
	"reflect"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Go2FlowText/internal/config"
	"Go2FlowText/internal/model"
	"Go2FlowText/internal/synth"
)

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
		wantErr  bool
	}{
		{"ipv4 tcp", "Botnet.pcap.TCP_147-32-84-165_1040_147-32-80-9_80.pcap", "tcp|147.32.84.165|1040|147.32.80.9|80", false},
		{"ipv4 udp", "/data/flow/Neris/cap.UDP_10-0-0-1_53_10-0-0-2_5353.pcap", "udp|10.0.0.1|53|10.0.0.2|5353", false},
		{"ipv6", "cap.TCP_2001-db8--1_443_2001-db8--2_51000.pcap", "tcp|2001:db8::1|443|2001:db8::2|51000", false},
		{"no descriptor", "capture.pcap", "", true},
		{"bad port", "cap.TCP_10-0-0-1_http_10-0-0-2_80.pcap", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft, err := ParseDescriptor(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDescriptor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && ft.Key() != tt.want {
				t.Errorf("ParseDescriptor() = %s, want %s", ft.Key(), tt.want)
			}
		})
	}
}

func TestDescriptorFor_FallsBackToFirstPacket(t *testing.T) {
	dir := t.TempDir()
	ft := model.FiveTuple{Protocol: "tcp", SrcIP: netip.MustParseAddr("10.1.1.1"), SrcPort: 4000, DstIP: netip.MustParseAddr("10.1.1.2"), DstPort: 80}
	path, err := synth.WriteSession(dir, "cap", ft, 3, 10)
	if err != nil {
		t.Fatalf("Failed to write session: %v", err)
	}
	renamed := filepath.Join(dir, "plain.pcap")
	if err := os.Rename(path, renamed); err != nil {
		t.Fatalf("Failed to rename: %v", err)
	}

	got, err := DescriptorFor(renamed)
	if err != nil {
		t.Fatalf("DescriptorFor failed: %v", err)
	}
	if got.Key() != ft.Key() {
		t.Errorf("Expected %s, got %s", ft.Key(), got.Key())
	}
}

const cicTable = `Flow ID, Src IP, Src Port, Dst IP, Dst Port, Protocol, Timestamp, Flow Duration, Total Fwd Packets, Flow Bytes/s, Label
10.0.0.1-10.0.0.2-51000-443-6,10.0.0.1,51000,10.0.0.2,443,6,01/01/2024 10:00,1000,12,345.5,Neris
10.0.0.3-10.0.0.4-53-5353-17,10.0.0.3,53,10.0.0.4,5353,17,01/01/2024 10:01,20,2,10.0,normal
`

const dohTable = `SourceIP,DestinationIP,SourcePort,DestinationPort,TimeStamp,Duration,FlowBytesSent,FlowSentRate,Label
192.168.20.191,176.103.130.131,50749,443,2020-01-14 15:44:31,95.08,62311,655.3,Malicious
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestTupleSource_BothOrientations(t *testing.T) {
	dir := t.TempDir()
	tablePath := writeFile(t, dir, "features.csv", cicTable)

	src, err := NewTupleSource(tablePath, nil)
	if err != nil {
		t.Fatalf("NewTupleSource failed: %v", err)
	}

	want := "Total Fwd Packets: 12, Flow Bytes/s: 345.5"
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"forward", "cap.TCP_10-0-0-1_51000_10-0-0-2_443.pcap", want},
		{"reverse", "cap.TCP_10-0-0-2_443_10-0-0-1_51000.pcap", want},
		{"udp", "cap.UDP_10-0-0-4_5353_10-0-0-3_53.pcap", "Total Fwd Packets: 2, Flow Bytes/s: 10.0"},
		{"wrong protocol", "cap.UDP_10-0-0-1_51000_10-0-0-2_443.pcap", ""},
		{"unknown", "cap.TCP_1-1-1-1_1_2-2-2-2_2.pcap", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := src.SessionFeature(filepath.Join(dir, "flow", "Neris", tt.filename))
			if err != nil {
				t.Fatalf("SessionFeature failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("SessionFeature() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTupleSource_NoProtocolColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tables/a.csv", dohTable)

	src, err := NewTupleSource(filepath.Join(dir, "tables"), nil)
	if err != nil {
		t.Fatalf("NewTupleSource failed: %v", err)
	}
	got, err := src.SessionFeature("cap.TCP_176-103-130-131_443_192-168-20-191_50749.pcap")
	if err != nil {
		t.Fatalf("SessionFeature failed: %v", err)
	}
	if got != "FlowBytesSent: 62311, FlowSentRate: 655.3" {
		t.Errorf("Unexpected feature string %q", got)
	}
	for _, excluded := range []string{"Duration", "TimeStamp", "Label", "SourceIP"} {
		if strings.Contains(got, excluded+":") {
			t.Errorf("Feature string should not contain %s: %q", excluded, got)
		}
	}
}

func TestTupleSource_ExtraExclusions(t *testing.T) {
	dir := t.TempDir()
	tablePath := writeFile(t, dir, "features.csv", cicTable)

	src, err := NewTupleSource(tablePath, []string{"flow_bytes/s"})
	if err != nil {
		t.Fatalf("NewTupleSource failed: %v", err)
	}
	got, _ := src.SessionFeature("cap.TCP_10-0-0-1_51000_10-0-0-2_443.pcap")
	if got != "Total Fwd Packets: 12" {
		t.Errorf("Unexpected feature string %q", got)
	}
}

func TestFlowIDSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Neris.csv", cicTable)

	src := NewFlowIDSource(dir, nil)

	got, err := src.SessionFeature(filepath.Join("flow", "Neris", "cap.TCP_10-0-0-2_443_10-0-0-1_51000.pcap"))
	if err != nil {
		t.Fatalf("SessionFeature failed: %v", err)
	}
	if got != "Total Fwd Packets: 12, Flow Bytes/s: 345.5" {
		t.Errorf("Unexpected feature string %q", got)
	}

	got, err = src.SessionFeature(filepath.Join("flow", "Virut", "cap.TCP_10-0-0-2_443_10-0-0-1_51000.pcap"))
	if err != nil {
		t.Fatalf("Missing class table should not be an error: %v", err)
	}
	if got != "" {
		t.Errorf("Expected empty feature for a class without a table, got %q", got)
	}
}

func TestFlowID(t *testing.T) {
	ft := model.FiveTuple{Protocol: "udp", SrcIP: netip.MustParseAddr("10.0.0.3"), SrcPort: 53, DstIP: netip.MustParseAddr("10.0.0.4"), DstPort: 5353}
	if got := FlowID(ft); got != "10.0.0.3-10.0.0.4-53-5353-17" {
		t.Errorf("FlowID() = %s", got)
	}
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(config.FeaturesConfig{Mode: "none"})
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	if got, _ := src.SessionFeature("anything.pcap"); got != "" {
		t.Errorf("Expected empty feature, got %q", got)
	}
	if _, err := NewSource(config.FeaturesConfig{Mode: "bogus"}); err == nil {
		t.Error("Expected an error for an unknown mode")
	}
}

func TestTupleSource_DuplicateColumns(t *testing.T) {
	dir := t.TempDir()
	table := `Src IP, Src Port, Dst IP, Dst Port, Protocol, Fwd Header Length, Fwd Header Length, Label
10.0.0.1,51000,10.0.0.2,443,6,40,32,Neris
`
	tablePath := writeFile(t, dir, "features.csv", table)

	src, err := NewTupleSource(tablePath, nil)
	if err != nil {
		t.Fatalf("NewTupleSource failed: %v", err)
	}
	got, err := src.SessionFeature("cap.TCP_10-0-0-1_51000_10-0-0-2_443.pcap")
	if err != nil {
		t.Fatalf("SessionFeature failed: %v", err)
	}
	if got != "Fwd Header Length: 40, Fwd Header Length.1: 32" {
		t.Errorf("Unexpected feature string %q", got)
	}
}

func TestDedupNames(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"a", "b"}, []string{"a", "b"}},
		{[]string{"a", "a", "a"}, []string{"a", "a.1", "a.2"}},
		{[]string{"a", "a.1", "a"}, []string{"a", "a.1", "a.1.1"}},
		{[]string{"x", ""}, []string{"x", "Unnamed: 1"}},
	}
	for _, tc := range tests {
		if got := dedupNames(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("dedupNames(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
