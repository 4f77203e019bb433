package main

import (
	"Go2FlowText/internal/protocol"
	"Go2FlowText/internal/session"
	"Go2FlowText/pkg/pcap"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/pcapana/main.go <path_to_pcap_file> [max_packets]")
		os.Exit(1)
	}
	pcapFilePath := os.Args[1]
	limit := 5
	if len(os.Args) > 2 {
		if _, err := fmt.Sscanf(os.Args[2], "%d", &limit); err != nil {
			log.Fatalf("Invalid packet count: %v", err)
		}
	}

	if ft, err := session.ParseDescriptor(filepath.Base(pcapFilePath)); err == nil {
		fmt.Printf("Session from file name: %s (flow id %s)\n", ft.Key(), session.FlowID(ft))
	}

	reader, err := pcap.NewReader(pcapFilePath)
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	for i := 0; i < limit; i++ {
		p, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("Read error: %v", err)
		}
		ft, err := protocol.ParseFiveTuple(p.Data, reader.LinkType())
		if err != nil {
			fmt.Printf("[%s] unparsed (%v) len=%d\n", p.CaptureInfo.Timestamp.Format("15:04:05.000"), err, p.CaptureInfo.Length)
			continue
		}
		fmt.Printf("[%s] %s %s:%d -> %s:%d len=%d\n",
			p.CaptureInfo.Timestamp.Format("15:04:05.000"),
			ft.Protocol, ft.SrcIP, ft.SrcPort, ft.DstIP, ft.DstPort, p.CaptureInfo.Length,
		)
	}
}
