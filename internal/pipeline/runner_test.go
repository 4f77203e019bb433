package pipeline

import (
	"Go2FlowText/internal/config"
	"Go2FlowText/internal/events"
	"Go2FlowText/internal/model"
	"Go2FlowText/internal/protocol"
	"Go2FlowText/internal/session"
	"Go2FlowText/internal/synth"
	"Go2FlowText/pkg/pcap"
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var testFields = []string{"ip.src", "tcp.srcport"}

// packetExtractor stands in for tshark: one "src<TAB>sport" line per packet.
type packetExtractor struct{}

func (packetExtractor) Extract(_ context.Context, path string, fields []string) ([]string, error) {
	packets, linkType, err := pcap.ReadPackets(path, 1<<20)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(packets))
	for _, p := range packets {
		ft, err := protocol.ParseFiveTuple(p.Data, linkType)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("%s\t%d", ft.SrcIP, ft.SrcPort))
	}
	return lines, nil
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string, []string) ([]string, error) {
	return nil, errors.New("tshark: exit status 2")
}

// portSource labels every flow with the client port from its file name.
type portSource struct{}

func (portSource) SessionFeature(path string) (string, error) {
	ft, err := session.ParseDescriptor(path)
	if err != nil {
		return "", nil
	}
	return fmt.Sprintf("port: %d", ft.SrcPort), nil
}

type recordingWriter struct{ got *model.Dataset }

func (w *recordingWriter) Write(ds *model.Dataset) error { w.got = ds; return nil }
func (w *recordingWriter) Name() string                  { return "recording" }

type recordingPublisher struct{ events []events.ClassEvent }

func (p *recordingPublisher) PublishClass(ev events.ClassEvent) error {
	p.events = append(p.events, ev)
	return nil
}

type recordingNotifier struct{ subjects []string }

func (n *recordingNotifier) Send(subject, _ string) error {
	n.subjects = append(n.subjects, subject)
	return nil
}

func writeClass(t *testing.T, root, class string, sessions, packets, payload int) {
	t.Helper()
	dir := filepath.Join(root, "flow", class)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < sessions; i++ {
		ft := model.FiveTuple{
			Protocol: "tcp",
			SrcIP:    netip.MustParseAddr("10.0.0.1"),
			SrcPort:  uint16(40000 + i),
			DstIP:    netip.MustParseAddr("10.0.0.2"),
			DstPort:  443,
		}
		if _, err := synth.WriteSession(dir, class, ft, packets, payload); err != nil {
			t.Fatalf("failed to write session: %v", err)
		}
	}
}

func testConfig(input string) *config.Config {
	cfg := &config.Config{Pipeline: config.PipelineConfig{
		InputDir:    input,
		OutputDir:   filepath.Join(input, "out"),
		NumWorkers:  3,
		DatasetName: "iscx-botnet",
	}}
	cfg.Extractor.Fields = testFields
	cfg.ApplyDefaults()
	return cfg
}

var firstPacketPort = regexp.MustCompile(`<pck>ip\.src: 10\.0\.0\.1, tcp\.srcport: (\d+) `)

func TestRunner_Run(t *testing.T) {
	input := t.TempDir()
	writeClass(t, input, "Neris", 3, 5, 600)
	writeClass(t, input, "Virut", 12, 6, 600)
	writeClass(t, input, "empty", 2, 5, 10)

	writer := &recordingWriter{}
	pub := &recordingPublisher{}
	notifier := &recordingNotifier{}
	runner, err := New(testConfig(input), Deps{
		Features:  portSource{},
		Extractor: packetExtractor{},
		Writers:   []model.Writer{writer},
		Publisher: pub,
		Notifier:  notifier,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if runner.Task() != "BND" {
		t.Errorf("expected task BND for iscx-botnet, got %s", runner.Task())
	}

	ds, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if writer.got != ds {
		t.Error("expected the writer to receive the dataset")
	}

	dirs, err := ClassDirs(input)
	if err != nil {
		t.Fatal(err)
	}
	var wantLabels []model.LabelEntry
	for _, d := range dirs {
		if name := filepath.Base(d); name != "empty" {
			wantLabels = append(wantLabels, model.LabelEntry{Str: name, Int: len(wantLabels)})
		}
	}
	if fmt.Sprint(ds.Labels) != fmt.Sprint(wantLabels) {
		t.Errorf("labels = %v, want %v", ds.Labels, wantLabels)
	}
	// Neris: 3 flows in every set. Virut: 12 flows split 9/1/2.
	if len(ds.All) != 15 || len(ds.Train) != 12 || len(ds.Val) != 4 || len(ds.Test) != 5 {
		t.Fatalf("unexpected sizes %d/%d/%d/%d", len(ds.All), len(ds.Train), len(ds.Val), len(ds.Test))
	}

	for _, row := range ds.All {
		if !strings.HasPrefix(row.Inputs, "BOTNET DETECTION TASK") {
			t.Fatalf("unexpected instruction in %q", row.Inputs)
		}
		m := firstPacketPort.FindStringSubmatch(row.Inputs)
		if m == nil {
			t.Fatalf("no first packet in %q", row.Inputs)
		}
		if !strings.HasSuffix(row.Inputs, " <feature>port: "+m[1]) {
			t.Errorf("feature does not belong to the flow's packets: %q", row.Inputs)
		}
		if strings.Count(row.Inputs, "<pck>") != 5 {
			t.Errorf("expected 5 packets per flow, got %d", strings.Count(row.Inputs, "<pck>"))
		}
	}

	for _, class := range []string{"Neris", "Virut"} {
		if _, err := os.Stat(filepath.Join(input, "filtered", class+".pcap")); err != nil {
			t.Errorf("expected merged capture for %s: %v", class, err)
		}
	}
	if _, err := os.Stat(filepath.Join(input, "filtered", "empty.pcap")); !os.IsNotExist(err) {
		t.Error("expected no merged capture for a class without flows")
	}

	if len(pub.events) != 2 {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
	for i, ev := range pub.events {
		if ev.Class != wantLabels[i].Str {
			t.Errorf("event %d is for %s, want %s", i, ev.Class, wantLabels[i].Str)
		}
		if ev.Class == "Virut" && (ev.Flows != 12 || ev.Packets != 60) {
			t.Errorf("unexpected Virut event: %+v", ev)
		}
	}
	if len(notifier.subjects) != 1 || !strings.HasSuffix(notifier.subjects[0], "completed") {
		t.Errorf("unexpected notifications: %v", notifier.subjects)
	}
}

func TestRunner_NoFlows(t *testing.T) {
	input := t.TempDir()
	writeClass(t, input, "tiny", 2, 5, 10)

	notifier := &recordingNotifier{}
	runner, err := New(testConfig(input), Deps{Features: portSource{}, Extractor: packetExtractor{}, Notifier: notifier})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Run(context.Background()); !errors.Is(err, ErrNoFlows) {
		t.Errorf("expected ErrNoFlows, got %v", err)
	}
	if len(notifier.subjects) != 1 || !strings.HasSuffix(notifier.subjects[0], "failed") {
		t.Errorf("expected a failure summary, got %v", notifier.subjects)
	}
}

func TestRunner_ExtractorFailureAborts(t *testing.T) {
	input := t.TempDir()
	writeClass(t, input, "Neris", 3, 5, 600)

	writer := &recordingWriter{}
	runner, err := New(testConfig(input), Deps{Features: portSource{}, Extractor: failingExtractor{}, Writers: []model.Writer{writer}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "Neris") {
		t.Errorf("expected class error, got %v", err)
	}
	if writer.got != nil {
		t.Error("writers must not run after a failed class")
	}
}

func TestRunner_ExplicitTask(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Pipeline.Task = "MDD"
	runner, err := New(cfg, Deps{Features: portSource{}, Extractor: packetExtractor{}})
	if err != nil {
		t.Fatal(err)
	}
	if runner.Task() != "MDD" {
		t.Errorf("expected explicit task to win, got %s", runner.Task())
	}

	if _, err := New(cfg, Deps{}); err == nil {
		t.Error("expected error without collaborators")
	}
}

func TestClassDirs(t *testing.T) {
	input := t.TempDir()
	for _, d := range []string{"b", "a", "c"} {
		if err := os.MkdirAll(filepath.Join(input, "flow", d), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(input, "flow", "stray.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(input, "flow"))
	if err != nil {
		t.Fatal(err)
	}
	entries, err := f.ReadDir(-1)
	f.Close()
	if err != nil {
		t.Fatal(err)
	}
	var want []string
	for _, e := range entries {
		if e.IsDir() {
			want = append(want, e.Name())
		}
	}

	dirs, err := ClassDirs(input)
	if err != nil {
		t.Fatalf("ClassDirs failed: %v", err)
	}
	var names []string
	for _, d := range dirs {
		names = append(names, filepath.Base(d))
	}
	if len(names) != 3 || strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("class order %v, want listing order %v", names, want)
	}

	if _, err := ClassDirs(filepath.Join(input, "missing")); err == nil {
		t.Error("expected error for missing flow directory")
	}
}
