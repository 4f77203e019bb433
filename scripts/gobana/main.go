package main

import (
	"Go2FlowText/internal/model"
	"encoding/gob"
	"fmt"
	"log"
	"os"
	"sort"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <split.dat> [rows_to_print]")
		os.Exit(1)
	}
	gobFile := os.Args[1]
	show := 3
	if len(os.Args) > 2 {
		if _, err := fmt.Sscanf(os.Args[2], "%d", &show); err != nil {
			log.Fatalf("Invalid row count: %v", err)
		}
	}

	file, err := os.Open(gobFile)
	if err != nil {
		log.Fatalf("Unable to open file: %v", err)
	}
	defer file.Close()

	var rows []model.DatasetRow
	if err := gob.NewDecoder(file).Decode(&rows); err != nil {
		log.Fatalf("Failed to decode gob data: %v", err)
	}

	counts := make(map[string]int)
	for _, r := range rows {
		counts[fmt.Sprintf("%d %s", r.Label, r.StrLabel)]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("Decoded %d rows:\n", len(rows))
	for _, k := range keys {
		fmt.Printf("  %s: %d\n", k, counts[k])
	}
	for i := 0; i < show && i < len(rows); i++ {
		fmt.Printf("\n[%d] %s (%d)\n%s\n", i, rows[i].StrLabel, rows[i].Label, rows[i].Inputs)
	}
}
