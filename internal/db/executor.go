package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/suppbot/server/internal/observability"
	logx "github.com/suppbot/server/pkg/logger"
)

// Sentinel outcomes. The executor never returns Go errors to its caller;
// both failure and emptiness travel as distinguishable strings so the
// formatting stage can branch without an error channel.
const (
	// EmptyResult signals a structurally valid query that matched no rows.
	EmptyResult = "NO_RESULTS"
	// ErrorPrefix marks execution failures. The underlying cause follows.
	ErrorPrefix = "ERROR:"
)

// IsEmptyResult reports whether an executor outcome is the empty sentinel.
func IsEmptyResult(s string) bool {
	return strings.TrimSpace(s) == EmptyResult
}

// IsErrorResult reports whether an executor outcome is an error sentinel.
func IsErrorResult(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), ErrorPrefix)
}

const DefaultRowLimit = 100

var (
	selectRe = regexp.MustCompile(`(?is)^\s*select\b`)
	// limitRe is a token test, not a parse: it also matches "limit N" inside
	// a quoted string literal, in which case the cap is skipped. Accepted for
	// model-generated SELECTs; a false positive only means no extra LIMIT.
	limitRe         = regexp.MustCompile(`(?i)\blimit\s+\d+`)
	bareAggregateRe = regexp.MustCompile(`(?is)^\s*select\s+(count|sum|avg)\s*\(`)
	groupByRe       = regexp.MustCompile(`(?is)\bgroup\s+by\b`)
)

// Executor runs model-generated SQL with a row-count safety cap.
type Executor struct {
	db       *sql.DB
	rowLimit int
}

func NewExecutor(db *sql.DB, rowLimit int) *Executor {
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	return &Executor{db: db, rowLimit: rowLimit}
}

// Prepare applies the LIMIT safety policy: a SELECT without a LIMIT clause
// gets one appended, unless it is a bare aggregate (COUNT/SUM/AVG without
// GROUP BY), which already returns a single row. Anything else passes
// through untouched.
func (e *Executor) Prepare(query string) string {
	trimmed := strings.TrimSpace(query)
	if !selectRe.MatchString(trimmed) {
		return trimmed
	}
	if limitRe.MatchString(trimmed) {
		return trimmed
	}
	if bareAggregateRe.MatchString(trimmed) && !groupByRe.MatchString(trimmed) {
		return trimmed
	}

	hadSemicolon := strings.HasSuffix(trimmed, ";")
	trimmed = strings.TrimSuffix(trimmed, ";")
	trimmed = fmt.Sprintf("%s LIMIT %d", trimmed, e.rowLimit)
	if hadSemicolon {
		trimmed += ";"
	}
	logx.Warn().Str("query", trimmed).Msg("query modified to include LIMIT")
	return trimmed
}

// Execute runs the statement and serializes the rows as a JSON array of
// objects. Failures and empty result sets come back as sentinels, never as
// errors, so the caller's flow stays linear.
func (e *Executor) Execute(ctx context.Context, query string) string {
	prepared := e.Prepare(query)
	logx.Debug().Str("query", prepared).Msg("executing SQL query")

	rows, err := e.db.QueryContext(ctx, prepared)
	if err != nil {
		logx.Error().Err(err).Str("query", prepared).Msg("query execution failed")
		observability.ObserveSQLExecution("error")
		return fmt.Sprintf("%s the query failed. Cause: %v. Try rephrasing the question.", ErrorPrefix, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		observability.ObserveSQLExecution("error")
		return fmt.Sprintf("%s the query failed. Cause: %v. Try rephrasing the question.", ErrorPrefix, err)
	}

	var records []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			observability.ObserveSQLExecution("error")
			return fmt.Sprintf("%s the query failed. Cause: %v. Try rephrasing the question.", ErrorPrefix, err)
		}

		record := make(map[string]any, len(cols))
		for i, col := range cols {
			record[col] = normalizeValue(values[i])
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		observability.ObserveSQLExecution("error")
		return fmt.Sprintf("%s the query failed. Cause: %v. Try rephrasing the question.", ErrorPrefix, err)
	}

	if len(records) == 0 {
		observability.ObserveSQLExecution("empty")
		return EmptyResult
	}

	serialized, err := json.Marshal(records)
	if err != nil {
		observability.ObserveSQLExecution("error")
		return fmt.Sprintf("%s could not serialize the result. Cause: %v.", ErrorPrefix, err)
	}

	observability.ObserveSQLExecution("ok")
	return string(serialized)
}

// normalizeValue keeps the serialized result readable: byte slices arrive
// for most PostgreSQL text/numeric columns and would otherwise render as
// base64 in JSON.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
