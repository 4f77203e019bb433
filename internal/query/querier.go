package query

import (
	"Go2FlowText/internal/config"
	"Go2FlowText/internal/model"
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClassCount is the number of stored rows of one class in one split.
type ClassCount struct {
	Split    string `json:"split"`
	Label    int    `json:"label"`
	StrLabel string `json:"str_label"`
	Rows     uint64 `json:"rows"`
}

// Querier defines the interface for reading stored datasets.
type Querier interface {
	ClassCounts(ctx context.Context, dataset string) ([]ClassCount, error)
	Rows(ctx context.Context, dataset, split string, limit int) ([]model.DatasetRow, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
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

// ValidSplit reports whether split names a stored row set.
func ValidSplit(split string) bool {
	switch split {
	case "data", "train", "val", "test":
		return true
	}
	return false
}

// ClassCounts returns per split, per class row counts of the latest load of dataset.
func (q *clickhouseQuerier) ClassCounts(ctx context.Context, dataset string) ([]ClassCount, error) {
	query := `
		SELECT Split, Label, any(StrLabel), count() AS Rows
		FROM flow_text_dataset
		WHERE DatasetName = ? AND CreatedAt = (
			SELECT max(CreatedAt) FROM flow_text_dataset WHERE DatasetName = ?
		)
		GROUP BY Split, Label
		ORDER BY Split, Label`

	rows, err := q.conn.Query(ctx, query, dataset, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to execute count query: %w", err)
	}
	defer rows.Close()

	var counts []ClassCount
	for rows.Next() {
		var c ClassCount
		var label int32
		if err := rows.Scan(&c.Split, &label, &c.StrLabel, &c.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		c.Label = int(label)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Rows returns up to limit rows of one split of the latest load of dataset.
func (q *clickhouseQuerier) Rows(ctx context.Context, dataset, split string, limit int) ([]model.DatasetRow, error) {
	if !ValidSplit(split) {
		return nil, fmt.Errorf("unknown split '%s'", split)
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT Inputs, Label, StrLabel
		FROM flow_text_dataset
		WHERE DatasetName = ? AND Split = ? AND CreatedAt = (
			SELECT max(CreatedAt) FROM flow_text_dataset WHERE DatasetName = ?
		)`)
	args := []interface{}{dataset, split, dataset}
	if limit > 0 {
		queryBuilder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute rows query: %w", err)
	}
	defer rows.Close()

	var out []model.DatasetRow
	for rows.Next() {
		var r model.DatasetRow
		var label int32
		if err := rows.Scan(&r.Inputs, &label, &r.StrLabel); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Label = int(label)
		out = append(out, r)
	}
	return out, rows.Err()
}
