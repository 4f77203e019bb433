package main

import (
	"Go2FlowText/internal/model"
	"Go2FlowText/internal/session"
	"Go2FlowText/internal/synth"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var featureColumns = []string{
	"Flow ID", "Src IP", "Src Port", "Dst IP", "Dst Port", "Protocol", "Timestamp",
	"Flow Duration", "Total Fwd Packets", "Total Backward Packets", "Flow Bytes/s", "Label",
}

func main() {
	root := flag.String("o", "testdata/raw", "Output root; sessions go to <root>/flow/<class>/")
	classes := flag.String("classes", "IRC,Neris,Virut,normal", "Comma separated class names")
	sessions := flag.Int("n", 20, "Sessions per class")
	maxPackets := flag.Int("c", 8, "Maximum packets per session")
	seed := flag.Int64("seed", 1, "Random seed")
	withFeatures := flag.Bool("features", true, "Also write <root>/features.csv in CICFlowMeter layout")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	records := [][]string{featureColumns}

	for _, class := range strings.Split(*classes, ",") {
		class = strings.TrimSpace(class)
		if class == "" {
			continue
		}
		dir := filepath.Join(*root, "flow", class)
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create class directory: %v", err)
		}

		for i := 0; i < *sessions; i++ {
			ft := randomTuple(rng)
			// Some sessions fall below the size or packet gates on purpose.
			numPackets := rng.Intn(*maxPackets) + 1
			payloadSize := rng.Intn(1400) + 50

			if _, err := synth.WriteSession(dir, class, ft, numPackets, payloadSize); err != nil {
				log.Fatalf("Failed to write session: %v", err)
			}
			records = append(records, featureRecord(rng, ft, class, numPackets, payloadSize))
		}
		log.Printf("Generated %d sessions for class '%s' in %s", *sessions, class, dir)
	}

	if *withFeatures {
		path := filepath.Join(*root, "features.csv")
		if err := writeFeatures(path, records); err != nil {
			log.Fatalf("Failed to write feature table: %v", err)
		}
		log.Printf("Wrote %d feature rows to %s", len(records)-1, path)
	}
}

func randomTuple(rng *rand.Rand) model.FiveTuple {
	proto := "tcp"
	if rng.Intn(4) == 0 {
		proto = "udp"
	}
	return model.FiveTuple{
		Protocol: proto,
		SrcIP:    netip.AddrFrom4([4]byte{10, byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(254) + 1)}),
		SrcPort:  uint16(rng.Intn(65535-1024) + 1024),
		DstIP:    netip.AddrFrom4([4]byte{172, 16, byte(rng.Intn(256)), byte(rng.Intn(254) + 1)}),
		DstPort:  []uint16{53, 80, 443, 6667}[rng.Intn(4)],
	}
}

func featureRecord(rng *rand.Rand, ft model.FiveTuple, class string, numPackets, payloadSize int) []string {
	protoNum := "6"
	if ft.Protocol == "udp" {
		protoNum = "17"
	}
	duration := rng.Intn(5_000_000) + 1
	fwd := (numPackets + 1) / 2
	bytesPerSec := float64(numPackets*payloadSize) / (float64(duration) / 1e6)
	return []string{
		session.FlowID(ft),
		ft.SrcIP.String(), strconv.Itoa(int(ft.SrcPort)),
		ft.DstIP.String(), strconv.Itoa(int(ft.DstPort)),
		protoNum,
		"01/01/2024 00:00:00",
		strconv.Itoa(duration),
		strconv.Itoa(fwd),
		strconv.Itoa(numPackets - fwd),
		fmt.Sprintf("%.2f", bytesPerSec),
		class,
	}
}

func writeFeatures(path string, records [][]string) error {
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return df.Err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return df.WriteCSV(f)
}
