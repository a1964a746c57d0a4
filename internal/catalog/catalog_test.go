package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTables(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	mock.ExpectQuery(`information_schema\.columns`).
		WithArgs("clientes").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("id", "integer").
			AddRow("nome_razao_social", "text"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM clientes`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	c := New(conn, []string{"clientes"})
	tables, err := c.Tables(context.Background())
	require.NoError(t, err)

	require.Len(t, tables, 1)
	assert.Equal(t, "clientes", tables[0].Name)
	assert.EqualValues(t, 25, tables[0].RowCount)
	require.Len(t, tables[0].Columns, 2)
	assert.Equal(t, "nome_razao_social", tables[0].Columns[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTablesUnknownTable(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	mock.ExpectQuery(`information_schema\.columns`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}))

	c := New(conn, []string{"missing"})
	_, err = c.Tables(context.Background())
	assert.ErrorContains(t, err, "not found")
}
