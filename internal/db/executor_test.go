package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareLimitInjection(t *testing.T) {
	executor := NewExecutor(nil, 100)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			"plain select gets a limit",
			"SELECT codigo_rastreio FROM operacoes_logisticas",
			"SELECT codigo_rastreio FROM operacoes_logisticas LIMIT 100",
		},
		{
			"semicolon is preserved",
			"SELECT codigo_rastreio FROM operacoes_logisticas;",
			"SELECT codigo_rastreio FROM operacoes_logisticas LIMIT 100;",
		},
		{
			"existing limit untouched",
			"SELECT * FROM clientes LIMIT 5",
			"SELECT * FROM clientes LIMIT 5",
		},
		{
			"lowercase limit untouched",
			"select * from clientes limit 5",
			"select * from clientes limit 5",
		},
		{
			"bare count exempt",
			"SELECT COUNT(*) FROM operacoes_logisticas WHERE status = 'CANCELADO'",
			"SELECT COUNT(*) FROM operacoes_logisticas WHERE status = 'CANCELADO'",
		},
		{
			"bare sum exempt",
			"SELECT SUM(valor_frete) FROM operacoes_logisticas",
			"SELECT SUM(valor_frete) FROM operacoes_logisticas",
		},
		{
			"bare avg exempt",
			"select avg(valor_frete) from operacoes_logisticas",
			"select avg(valor_frete) from operacoes_logisticas",
		},
		{
			"aggregate with group by gets a limit",
			"SELECT status, COUNT(*) FROM operacoes_logisticas GROUP BY status",
			"SELECT status, COUNT(*) FROM operacoes_logisticas GROUP BY status LIMIT 100",
		},
		{
			"grouped count starting with count gets a limit",
			"SELECT COUNT(*) FROM operacoes_logisticas GROUP BY status",
			"SELECT COUNT(*) FROM operacoes_logisticas GROUP BY status LIMIT 100",
		},
		{
			// Known token-test caveat: "limit 10" inside a string literal
			// reads as an existing LIMIT clause and suppresses the cap.
			"limit inside a string literal suppresses the cap",
			"SELECT * FROM operacoes_logisticas WHERE observacoes = 'limit 10'",
			"SELECT * FROM operacoes_logisticas WHERE observacoes = 'limit 10'",
		},
		{
			"non-select passes through",
			"-- no query needed",
			"-- no query needed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, executor.Prepare(tt.query))
		})
	}
}

func TestExecuteSerializesRows(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	mock.ExpectQuery(`SELECT status, COUNT`).WillReturnRows(
		sqlmock.NewRows([]string{"status", "total"}).
			AddRow([]byte("ENTREGUE"), 12).
			AddRow([]byte("CANCELADO"), 3),
	)

	executor := NewExecutor(conn, 100)
	result := executor.Execute(context.Background(), "SELECT status, COUNT(*) AS total FROM operacoes_logisticas GROUP BY status LIMIT 100")

	assert.False(t, IsErrorResult(result))
	assert.False(t, IsEmptyResult(result))
	assert.JSONEq(t, `[{"status":"ENTREGUE","total":12},{"status":"CANCELADO","total":3}]`, result)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteEmptySentinel(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	mock.ExpectQuery(`SELECT codigo_rastreio`).WillReturnRows(
		sqlmock.NewRows([]string{"codigo_rastreio"}),
	)

	executor := NewExecutor(conn, 100)
	result := executor.Execute(context.Background(), "SELECT codigo_rastreio FROM operacoes_logisticas WHERE status = 'EXTRAVIADO' LIMIT 100")

	assert.Equal(t, EmptyResult, result)
	assert.True(t, IsEmptyResult(result))
	assert.False(t, IsErrorResult(result))
}

func TestExecuteErrorSentinel(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	mock.ExpectQuery(`SELECT nope`).WillReturnError(fmt.Errorf(`column "nope" does not exist`))

	executor := NewExecutor(conn, 100)
	result := executor.Execute(context.Background(), "SELECT nope FROM operacoes_logisticas LIMIT 100")

	assert.True(t, IsErrorResult(result))
	assert.Contains(t, result, `column "nope" does not exist`)
	assert.False(t, IsEmptyResult(result))
}
