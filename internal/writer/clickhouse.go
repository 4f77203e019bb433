package writer

import (
	"Go2FlowText/internal/config"
	"Go2FlowText/internal/factory"
	"Go2FlowText/internal/model"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createRowsTableStatement = `
CREATE TABLE IF NOT EXISTS flow_text_dataset (
    CreatedAt   DateTime,
    DatasetName String,
    Split       LowCardinality(String),
    Inputs      String,
    Label       Int32,
    StrLabel    String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(CreatedAt)
ORDER BY (DatasetName, Split, Label);
`

const createLabelsTableStatement = `
CREATE TABLE IF NOT EXISTS flow_text_labels (
    CreatedAt   DateTime,
    DatasetName String,
    Str         String,
    Int         Int32
) ENGINE = MergeTree()
ORDER BY (DatasetName, Int);
`

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse)
	})
}

// ClickHouseWriter stores datasets in ClickHouse tables.
type ClickHouseWriter struct {
	conn driver.Conn
	now  func() time.Time
}

// NewClickHouseWriter connects to ClickHouse and ensures both tables exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	for _, stmt := range []string{createRowsTableStatement, createLabelsTableStatement} {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	log.Println("Successfully connected to ClickHouse and ensured tables exist.")

	return &ClickHouseWriter{conn: conn, now: time.Now}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Name implements model.Writer.
func (w *ClickHouseWriter) Name() string { return "clickhouse" }

// Write inserts every split and the label index in two batches.
func (w *ClickHouseWriter) Write(ds *model.Dataset) error {
	ctx := context.Background()
	createdAt := w.now().UTC()

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO flow_text_dataset")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	rowCount := 0
	for _, split := range ds.Splits() {
		for _, row := range split.Rows {
			if err := batch.Append(createdAt, ds.Name, split.Name, row.Inputs, int32(row.Label), row.StrLabel); err != nil {
				return fmt.Errorf("failed to append row to batch: %w", err)
			}
			rowCount++
		}
	}
	if rowCount > 0 {
		if err := batch.Send(); err != nil {
			return fmt.Errorf("failed to send batch: %w", err)
		}
	}

	labelBatch, err := w.conn.PrepareBatch(ctx, "INSERT INTO flow_text_labels")
	if err != nil {
		return fmt.Errorf("failed to prepare label batch: %w", err)
	}
	for _, l := range ds.Labels {
		if err := labelBatch.Append(createdAt, ds.Name, l.Str, int32(l.Int)); err != nil {
			return fmt.Errorf("failed to append label to batch: %w", err)
		}
	}
	if len(ds.Labels) > 0 {
		if err := labelBatch.Send(); err != nil {
			return fmt.Errorf("failed to send label batch: %w", err)
		}
	}

	log.Printf("Wrote %d rows and %d labels to ClickHouse for dataset '%s'", rowCount, len(ds.Labels), ds.Name)
	return nil
}

// Close releases the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
