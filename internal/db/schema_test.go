package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaTextWithEnumColumn(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	mock.ExpectQuery(`information_schema\.columns`).
		WithArgs("operacoes_logisticas").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "udt_name"}).
			AddRow("id", "integer", "int4").
			AddRow("status", "USER-DEFINED", "status_operacao").
			AddRow("valor_frete", "numeric", "numeric"))
	mock.ExpectQuery(`enum_range`).
		WillReturnRows(sqlmock.NewRows([]string{"unnest"}).
			AddRow("EM_TRANSITO").
			AddRow("ENTREGUE").
			AddRow("CANCELADO"))

	introspector := NewIntrospector(conn, []string{"operacoes_logisticas"})
	text := introspector.SchemaText(context.Background())

	assert.Contains(t, text, "Table: operacoes_logisticas")
	assert.Contains(t, text, "id (integer)")
	assert.Contains(t, text, "status (status_operacao, allowed values: 'EM_TRANSITO', 'ENTREGUE', 'CANCELADO')")
	require.NoError(t, mock.ExpectationsWereMet())

	// Second call serves the cache; no further queries expected.
	assert.Equal(t, text, introspector.SchemaText(context.Background()))
}

func TestSchemaTextMultipleTables(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	mock.ExpectQuery(`information_schema\.columns`).
		WithArgs("clientes").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "udt_name"}).
			AddRow("id", "integer", "int4").
			AddRow("nome_razao_social", "text", "text"))
	mock.ExpectQuery(`information_schema\.columns`).
		WithArgs("operacoes_logisticas").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "udt_name"}).
			AddRow("cliente_id", "integer", "int4"))

	introspector := NewIntrospector(conn, nil)
	text := introspector.SchemaText(context.Background())

	assert.Contains(t, text, "Table: clientes")
	assert.Contains(t, text, "Table: operacoes_logisticas")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaTextFailureIsNotCached(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	mock.ExpectQuery(`information_schema\.columns`).
		WithArgs("clientes").
		WillReturnError(assert.AnError)

	introspector := NewIntrospector(conn, nil)
	assert.Equal(t, SchemaUnavailable, introspector.SchemaText(context.Background()))

	// Retry succeeds and replaces the placeholder.
	mock.ExpectQuery(`information_schema\.columns`).
		WithArgs("clientes").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "udt_name"}).
			AddRow("id", "integer", "int4"))
	mock.ExpectQuery(`information_schema\.columns`).
		WithArgs("operacoes_logisticas").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "udt_name"}).
			AddRow("id", "integer", "int4"))

	text := introspector.SchemaText(context.Background())
	assert.Contains(t, text, "Table: clientes")
}
