// Package catalog exposes a read model of the queryable tables: columns,
// types and row counts. It backs the /catalog route so clients can discover
// what the chatbot can be asked about.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/suppbot/server/internal/db"
)

type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

type Table struct {
	Name     string   `json:"name"`
	RowCount int64    `json:"row_count"`
	Columns  []Column `json:"columns"`
}

// Catalog reads table metadata for the allowed tables.
type Catalog struct {
	db     *sql.DB
	tables []string
}

func New(database *sql.DB, tables []string) *Catalog {
	if len(tables) == 0 {
		tables = db.DefaultTables
	}
	return &Catalog{db: database, tables: tables}
}

// Tables describes every allowed table. Row counts are exact; the allowed
// tables are small enough that COUNT(*) stays cheap.
func (c *Catalog) Tables(ctx context.Context) ([]Table, error) {
	result := make([]Table, 0, len(c.tables))
	for _, name := range c.tables {
		table, err := c.describe(ctx, name)
		if err != nil {
			return nil, err
		}
		result = append(result, table)
	}
	return result, nil
}

func (c *Catalog) describe(ctx context.Context, name string) (Table, error) {
	table := Table{Name: name}

	rows, err := c.db.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`, name)
	if err != nil {
		return table, fmt.Errorf("catalog describe %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return table, fmt.Errorf("catalog describe %s: %w", name, err)
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return table, fmt.Errorf("catalog describe %s: %w", name, err)
	}
	if len(table.Columns) == 0 {
		return table, fmt.Errorf("catalog: table %s not found", name)
	}

	// Table names come from the fixed allow-list, never from input.
	if err := c.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", name)).Scan(&table.RowCount); err != nil {
		return table, fmt.Errorf("catalog count %s: %w", name, err)
	}
	return table, nil
}
