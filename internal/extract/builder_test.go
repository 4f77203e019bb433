package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

type fakeExtractor struct {
	lines  []string
	err    error
	path   string
	fields []string
}

func (f *fakeExtractor) Extract(ctx context.Context, capturePath string, fields []string) ([]string, error) {
	f.path = capturePath
	f.fields = fields
	return f.lines, f.err
}

func TestPacketText(t *testing.T) {
	fields := []string{"ip.src", "ip.dst", "tcp.srcport", "tcp.payload"}

	tests := []struct {
		name string
		line string
		want string
	}{
		{"all populated", "1.2.3.4\t5.6.7.8\t443\tabcd", "ip.src: 1.2.3.4, ip.dst: 5.6.7.8, tcp.srcport: 443, tcp.payload: abcd"},
		{"empty fields skipped", "1.2.3.4\t\t443\t", "ip.src: 1.2.3.4, tcp.srcport: 443"},
		{"leading empty keeps alignment", "\t5.6.7.8\t\t", "ip.dst: 5.6.7.8"},
		{"short line", "1.2.3.4", "ip.src: 1.2.3.4"},
		{"crlf", "1.2.3.4\t5.6.7.8\r\n", "ip.src: 1.2.3.4, ip.dst: 5.6.7.8"},
		{"all empty", "\t\t\t", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PacketText(tt.line, fields); got != tt.want {
				t.Errorf("PacketText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncatePayload(t *testing.T) {
	long := strings.Repeat("ab", 100)
	exact := strings.Repeat("c", MaxPayloadLength)
	short := "deadbeef"

	if got := TruncatePayload(long); len(got) != MaxPayloadLength || got != long[:MaxPayloadLength] {
		t.Errorf("Expected long payload cut to %d chars, got %d", MaxPayloadLength, len(got))
	}
	if got := TruncatePayload(exact); got != exact {
		t.Errorf("Payload of exactly %d chars should be unchanged", MaxPayloadLength)
	}
	if got := TruncatePayload(short); got != short {
		t.Errorf("Short payload should be unchanged, got %q", got)
	}

	fields := []string{"tcp.payload", "udp.payload", "data.data"}
	line := long + "\t" + long + "\t" + long
	got := PacketText(line, fields)
	want := "tcp.payload: " + long[:MaxPayloadLength] + ", udp.payload: " + long[:MaxPayloadLength] + ", data.data: " + long
	if got != want {
		t.Errorf("Only payload fields should be truncated, got %q", got)
	}
}

func TestBuildFlowTexts_Positional(t *testing.T) {
	fields := []string{"frame.len", "ip.src"}
	lines := []string{
		"60\t10.0.0.1",
		"61\t10.0.0.2",
		"62\t10.0.0.3",
		"63\t10.0.0.4",
		"64\t10.0.0.5",
		"65\t10.0.0.6",
	}
	counts := []int{2, 3, 1}
	features := []string{"a: 1", "", "c: 3"}

	texts, err := BuildFlowTexts(lines, fields, counts, features)
	if err != nil {
		t.Fatalf("BuildFlowTexts failed: %v", err)
	}

	want := []string{
		"<pck>frame.len: 60, ip.src: 10.0.0.1 <pck>frame.len: 61, ip.src: 10.0.0.2  <feature>a: 1",
		"<pck>frame.len: 62, ip.src: 10.0.0.3 <pck>frame.len: 63, ip.src: 10.0.0.4 <pck>frame.len: 64, ip.src: 10.0.0.5  <feature>",
		"<pck>frame.len: 65, ip.src: 10.0.0.6  <feature>c: 3",
	}
	if len(texts) != len(want) {
		t.Fatalf("Expected %d flows, got %d", len(want), len(texts))
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("Flow %d:\n got %q\nwant %q", i, texts[i], want[i])
		}
	}
}

func TestBuildFlowTexts_Mismatch(t *testing.T) {
	fields := []string{"frame.len"}
	tests := []struct {
		name     string
		lines    []string
		counts   []int
		features []string
	}{
		{"too few lines", []string{"1", "2"}, []int{2, 1}, []string{"", ""}},
		{"too many lines", []string{"1", "2", "3", "4"}, []int{2, 1}, []string{"", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildFlowTexts(tt.lines, fields, tt.counts, tt.features)
			if !errors.Is(err, ErrLineCountMismatch) {
				t.Errorf("Expected ErrLineCountMismatch, got %v", err)
			}
		})
	}

	if _, err := BuildFlowTexts([]string{"1"}, fields, []int{1}, nil); err == nil {
		t.Error("Expected an error when features and counts differ in length")
	}
}

func TestBuilder_Build(t *testing.T) {
	fake := &fakeExtractor{lines: []string{"60", "61", "62"}}
	b := NewBuilder(fake, []string{"frame.len"})

	texts, err := b.Build(context.Background(), "merged.pcap", []int{1, 2}, []string{"x: 1", "y: 2"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if fake.path != "merged.pcap" {
		t.Errorf("Extractor called with %q", fake.path)
	}
	if len(texts) != 2 || texts[1] != "<pck>frame.len: 61 <pck>frame.len: 62  <feature>y: 2" {
		t.Errorf("Unexpected flow texts: %q", texts)
	}

	fake.err = errors.New("boom")
	if _, err := b.Build(context.Background(), "merged.pcap", []int{1, 2}, []string{"", ""}); err == nil {
		t.Error("Expected extractor error to propagate")
	}
}

func TestNewBuilder_DefaultFields(t *testing.T) {
	fake := &fakeExtractor{}
	b := NewBuilder(fake, nil)
	if _, err := b.Build(context.Background(), "x.pcap", nil, nil); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(fake.fields) != len(DefaultFields) {
		t.Errorf("Expected default field list, got %d fields", len(fake.fields))
	}
	found := false
	for _, f := range fake.fields {
		if f == "tcp.payload" {
			found = true
		}
	}
	if !found {
		t.Error("Default fields must request tcp.payload")
	}
}

func TestTShark_Args(t *testing.T) {
	ts := NewTShark("")
	got := strings.Join(ts.Args("in.pcap", []string{"ip.src", "tcp.payload"}), " ")
	want := "-r in.pcap -T fields -e ip.src -e tcp.payload"
	if got != want {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

func TestTShark_Extract(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub requires a POSIX shell")
	}
	dir := t.TempDir()

	ok := filepath.Join(dir, "ok.sh")
	script := "#!/bin/sh\nprintf '60\\t1.2.3.4\\n61\\t\\n'\n"
	if err := os.WriteFile(ok, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write stub: %v", err)
	}
	lines, err := NewTShark(ok).Extract(context.Background(), "x.pcap", []string{"frame.len", "ip.src"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(lines) != 2 || lines[0] != "60\t1.2.3.4" || lines[1] != "61\t" {
		t.Errorf("Unexpected lines: %q", lines)
	}

	bad := filepath.Join(dir, "bad.sh")
	if err := os.WriteFile(bad, []byte("#!/bin/sh\necho 'cannot open' >&2\nexit 2\n"), 0755); err != nil {
		t.Fatalf("Failed to write stub: %v", err)
	}
	_, err = NewTShark(bad).Extract(context.Background(), "x.pcap", []string{"frame.len"})
	if err == nil {
		t.Fatal("Expected an error for a non-zero exit")
	}
	if !strings.Contains(err.Error(), "cannot open") {
		t.Errorf("Expected stderr in error, got %v", err)
	}
}
