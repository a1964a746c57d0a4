package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	logx "github.com/suppbot/server/pkg/logger"
)

// SchemaUnavailable is returned when introspection fails. The schema text is
// embedded directly into prompts, so a readable placeholder beats an error.
const SchemaUnavailable = "The database schema is currently unavailable."

// DefaultTables limits introspection to the tables the pipeline is allowed
// to query.
var DefaultTables = []string{"clientes", "operacoes_logisticas"}

// Introspector produces a compact textual description of the relevant
// tables, including the legal values of enumerated columns. The text is
// cached after the first successful generation and never invalidated.
type Introspector struct {
	db     *sql.DB
	tables []string

	mu     sync.Mutex
	cached string
}

func NewIntrospector(db *sql.DB, tables []string) *Introspector {
	if len(tables) == 0 {
		tables = DefaultTables
	}
	return &Introspector{db: db, tables: tables}
}

// SchemaText returns the cached schema description, generating it on first
// use. Failures yield the fixed placeholder and leave the cache empty so a
// later call can retry.
func (i *Introspector) SchemaText(ctx context.Context) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cached != "" {
		return i.cached
	}

	text, err := i.generate(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("failed to generate compact schema")
		return SchemaUnavailable
	}

	i.cached = text
	return i.cached
}

func (i *Introspector) generate(ctx context.Context) (string, error) {
	logx.Debug().Strs("tables", i.tables).Msg("generating compact database schema")

	var parts []string
	for _, table := range i.tables {
		columns, err := i.describeTable(ctx, table)
		if err != nil {
			return "", fmt.Errorf("describe table %s: %w", table, err)
		}
		parts = append(parts, fmt.Sprintf("Table: %s\nColumns: %s", table, strings.Join(columns, ", ")))
	}

	return strings.Join(parts, "\n\n"), nil
}

func (i *Introspector) describeTable(ctx context.Context, table string) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT column_name, data_type, udt_name
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	type column struct {
		name     string
		dataType string
		udtName  string
	}
	var cols []column
	for rows.Next() {
		var c column
		if err := rows.Scan(&c.name, &c.dataType, &c.udtName); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s has no columns", table)
	}

	var described []string
	for _, c := range cols {
		if c.dataType == "USER-DEFINED" {
			values, err := i.enumValues(ctx, c.udtName)
			if err != nil {
				return nil, err
			}
			described = append(described, fmt.Sprintf("%s (%s, allowed values: %s)", c.name, c.udtName, strings.Join(values, ", ")))
			continue
		}
		described = append(described, fmt.Sprintf("%s (%s)", c.name, c.dataType))
	}
	return described, nil
}

func (i *Introspector) enumValues(ctx context.Context, enumType string) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("SELECT unnest(enum_range(NULL::%s))::text", enumType))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, fmt.Sprintf("'%s'", v))
	}
	return values, rows.Err()
}
