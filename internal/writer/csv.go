package writer

import (
	"Go2FlowText/internal/config"
	"Go2FlowText/internal/factory"
	"Go2FlowText/internal/model"
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Column layout read by the training side.
var (
	RowColumns   = []string{"inputs", "labels", "str_labels"}
	LabelColumns = []string{"str", "int"}
)

// LabelFile is the name of the label index written next to the splits.
const LabelFile = "label.tsv"

func init() {
	factory.RegisterWriter("csv", func(def config.WriterDef) (model.Writer, error) {
		if def.RootPath == "" {
			return nil, fmt.Errorf("csv writer requires a root_path")
		}
		return NewCSVWriter(def.RootPath), nil
	})
}

// CSVWriter writes the dataset as comma separated files with a header row,
// one file per split plus the label index. The files keep the .tsv names the
// training reader expects.
type CSVWriter struct {
	rootPath string
}

// NewCSVWriter creates a writer that puts its files under rootPath.
func NewCSVWriter(rootPath string) *CSVWriter {
	return &CSVWriter{rootPath: rootPath}
}

// Name implements model.Writer.
func (w *CSVWriter) Name() string { return "csv" }

// Write implements model.Writer.
func (w *CSVWriter) Write(ds *model.Dataset) error {
	if err := os.MkdirAll(w.rootPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, split := range ds.Splits() {
		path := filepath.Join(w.rootPath, split.Name+".tsv")
		if err := writeRecords(path, rowRecords(split.Rows)); err != nil {
			return err
		}
	}
	if err := writeRecords(filepath.Join(w.rootPath, LabelFile), labelRecords(ds.Labels)); err != nil {
		return err
	}

	log.Printf("Wrote %d rows (%d train, %d val, %d test) and %d labels to %s",
		len(ds.All), len(ds.Train), len(ds.Val), len(ds.Test), len(ds.Labels), w.rootPath)
	return nil
}

func rowRecords(rows []model.DatasetRow) [][]string {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, RowColumns)
	for _, row := range rows {
		records = append(records, []string{row.Inputs, strconv.Itoa(row.Label), row.StrLabel})
	}
	return records
}

func labelRecords(labels []model.LabelEntry) [][]string {
	records := make([][]string, 0, len(labels)+1)
	records = append(records, LabelColumns)
	for _, l := range labels {
		records = append(records, []string{l.Str, strconv.Itoa(l.Int)})
	}
	return records
}

func writeRecords(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", path, err)
	}
	defer file.Close()

	if len(records) == 1 {
		// gota refuses a frame without rows; write the bare header instead.
		cw := csv.NewWriter(file)
		if err := cw.Write(records[0]); err != nil {
			return fmt.Errorf("failed to write header to '%s': %w", path, err)
		}
		cw.Flush()
		return cw.Error()
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return fmt.Errorf("failed to build frame for '%s': %w", path, df.Err)
	}
	if err := df.WriteCSV(file); err != nil {
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return nil
}

// readFrame parses a header-first CSV file with every column as string. A
// file holding only the header yields ok == false.
func readFrame(path string) (df dataframe.DataFrame, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return df, false, fmt.Errorf("failed to open '%s': %w", path, err)
	}
	if lines := bytes.Count(bytes.TrimRight(data, "\r\n"), []byte("\n")); lines == 0 {
		return df, false, nil
	}

	df = dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return df, false, fmt.Errorf("failed to parse '%s': %w", path, df.Err)
	}
	return df, true, nil
}

// ReadRows loads a split file written by CSVWriter.
func ReadRows(path string) ([]model.DatasetRow, error) {
	df, ok, err := readFrame(path)
	if err != nil || !ok {
		return nil, err
	}
	records := df.Select(RowColumns)
	if records.Err != nil {
		return nil, fmt.Errorf("'%s' lacks the dataset columns: %w", path, records.Err)
	}

	var rows []model.DatasetRow
	for i, rec := range records.Records()[1:] {
		label, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("bad label on row %d of '%s': %w", i+1, path, err)
		}
		rows = append(rows, model.DatasetRow{Inputs: rec[0], Label: label, StrLabel: rec[2]})
	}
	return rows, nil
}

// ReadLabels loads a label index written by CSVWriter.
func ReadLabels(path string) ([]model.LabelEntry, error) {
	df, ok, err := readFrame(path)
	if err != nil || !ok {
		return nil, err
	}
	records := df.Select(LabelColumns)
	if records.Err != nil {
		return nil, fmt.Errorf("'%s' lacks the label columns: %w", path, records.Err)
	}

	var labels []model.LabelEntry
	for i, rec := range records.Records()[1:] {
		id, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("bad id on row %d of '%s': %w", i+1, path, err)
		}
		labels = append(labels, model.LabelEntry{Str: rec[0], Int: id})
	}
	return labels, nil
}
