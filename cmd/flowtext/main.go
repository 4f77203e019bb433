package main

import (
	"Go2FlowText/internal/config"
	"Go2FlowText/internal/dataset"
	"Go2FlowText/internal/model"
	"Go2FlowText/internal/pipeline"
	"Go2FlowText/internal/writer"
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

func main() {
	// --- Command-Line Flag Parsing ---
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	input := flag.String("input", "", "Raw dataset path holding flow/<class>/*.pcap.")
	datasetName := flag.String("dataset_name", "", "Dataset name, selects the task template.")
	outputPath := flag.String("output_path", "", "Output dataset path.")
	numWorkers := flag.Int("num_workers", 0, "Number of filter workers per class directory.")
	resplit := flag.Bool("resplit", false, "Re-split <output_path>/data.tsv into train/val/test and exit.")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Printf("No config file at '%s', using defaults.", *configPath)
		cfg = &config.Config{}
	}
	if *input != "" {
		cfg.SetInputDir(*input)
	}
	if *datasetName != "" {
		cfg.Pipeline.DatasetName = *datasetName
	}
	if *outputPath != "" {
		cfg.SetOutputDir(*outputPath)
	}
	if *numWorkers > 0 {
		cfg.Pipeline.NumWorkers = *numWorkers
	}
	cfg.ApplyDefaults()

	if *resplit {
		if err := runResplit(cfg.Pipeline.OutputDir); err != nil {
			log.Fatalf("Re-split failed: %v", err)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		flag.Usage()
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Wire the pipeline
	runner, err := pipeline.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Run it
	ds, err := runner.Run(ctx)
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
	log.Printf("Dataset '%s' done: %d rows, %d classes.", ds.Name, len(ds.All), len(ds.Labels))
}

// runResplit rebuilds train/val/test from an existing data.tsv.
func runResplit(dir string) error {
	if dir == "" {
		return errors.New("-output_path is required")
	}
	rows, err := writer.ReadRows(filepath.Join(dir, "data.tsv"))
	if err != nil {
		return err
	}
	labels, err := writer.ReadLabels(filepath.Join(dir, writer.LabelFile))
	if err != nil {
		return err
	}

	ds := &model.Dataset{All: rows, Labels: labels}
	ds.Train, ds.Val, ds.Test = dataset.ResplitByLabel(rows)
	return writer.NewCSVWriter(dir).Write(ds)
}
