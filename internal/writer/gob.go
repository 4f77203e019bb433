package writer

import (
	"Go2FlowText/internal/config"
	"Go2FlowText/internal/factory"
	"Go2FlowText/internal/model"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TimestampLayout names the per-run directories of the gob writer.
const TimestampLayout = "2006-01-02_15-04-05"

func init() {
	factory.RegisterWriter("gob", func(def config.WriterDef) (model.Writer, error) {
		if def.RootPath == "" {
			return nil, fmt.Errorf("gob writer requires a root_path")
		}
		return NewGobWriter(def.RootPath), nil
	})
}

// SummaryData holds the metadata of one gob snapshot of a dataset.
type SummaryData struct {
	DatasetName string         `json:"dataset_name"`
	TotalRows   int            `json:"total_rows"`
	SplitRows   map[string]int `json:"split_rows"`
	Labels      int            `json:"labels"`
	Timestamp   string         `json:"timestamp"`
}

// GobWriter snapshots a dataset to disk in gob format, one file per split.
type GobWriter struct {
	rootPath string
}

// NewGobWriter creates a new gob writer rooted at rootPath.
func NewGobWriter(rootPath string) *GobWriter {
	return &GobWriter{rootPath: rootPath}
}

// Name implements model.Writer.
func (w *GobWriter) Name() string { return "gob" }

// Write implements model.Writer using the current time for the directory name.
func (w *GobWriter) Write(ds *model.Dataset) error {
	return w.WriteAt(ds, time.Now().Format(TimestampLayout))
}

// WriteAt writes the dataset into <root>/<timestamp>/<dataset name>.
func (w *GobWriter) WriteAt(ds *model.Dataset, timestamp string) error {
	name := ds.Name
	if name == "" {
		name = "dataset"
	}
	dir := filepath.Join(w.rootPath, timestamp, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	splitRows := make(map[string]int)
	for _, split := range ds.Splits() {
		splitRows[split.Name] = len(split.Rows)
		if err := encodeFile(filepath.Join(dir, split.Name+".dat"), split.Rows); err != nil {
			return err
		}
	}
	if err := encodeFile(filepath.Join(dir, "labels.dat"), ds.Labels); err != nil {
		return err
	}

	summary := SummaryData{
		DatasetName: name,
		TotalRows:   len(ds.All),
		SplitRows:   splitRows,
		Labels:      len(ds.Labels),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	summaryFile, err := os.Create(filepath.Join(dir, "summary.json"))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}

func encodeFile(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", path, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(v); err != nil {
		return fmt.Errorf("failed to encode gob for file '%s': %w", path, err)
	}
	return nil
}
