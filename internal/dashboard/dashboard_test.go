package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectSummaryQueries(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT COUNT\(\*\),`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "transit", "delivered", "cancelled", "freight", "avg"}).
			AddRow(100, 30, 60, 10, 50000.0, 500.0))
	mock.ExpectQuery(`GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("ENTREGUE", 60).
			AddRow("EM_TRANSITO", 30).
			AddRow("CANCELADO", 10))
	mock.ExpectQuery(`GROUP BY uf_destino`).
		WillReturnRows(sqlmock.NewRows([]string{"uf_destino", "sum"}).
			AddRow("SP", 20000.0).
			AddRow("RJ", 15000.0))
	mock.ExpectQuery(`GROUP BY data_emissao::date`).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).
			AddRow("2026-08-30", 4).
			AddRow("2026-08-31", 7))
	mock.ExpectQuery(`JOIN clientes`).
		WillReturnRows(sqlmock.NewRows([]string{"client", "total"}).
			AddRow("Acme Transportes", 12000.0))
}

func TestSummaryComputesAllSections(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	expectSummaryQueries(mock)

	service := NewService(conn, time.Minute)
	summary, err := service.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 100, summary.KPIs.TotalOperations)
	assert.Equal(t, 30, summary.KPIs.InTransit)
	assert.Equal(t, 60, summary.KPIs.Delivered)
	assert.Equal(t, 10, summary.KPIs.Cancelled)
	assert.InDelta(t, 50000.0, summary.KPIs.TotalFreightValue, 0.001)

	require.Len(t, summary.OperationsByStatus, 3)
	assert.Equal(t, "ENTREGUE", summary.OperationsByStatus[0].Status)
	require.Len(t, summary.FreightByState, 2)
	assert.Equal(t, "SP", summary.FreightByState[0].State)
	require.Len(t, summary.OperationsByDay, 2)
	require.Len(t, summary.TopClientsByValue, 1)
	assert.Equal(t, "Acme Transportes", summary.TopClientsByValue[0].Client)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryIsCachedWithinTTL(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	expectSummaryQueries(mock)

	service := NewService(conn, time.Minute)
	first, err := service.Summary(context.Background())
	require.NoError(t, err)

	// No further expectations: a second call must hit the cache.
	second, err := service.Summary(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryServesStaleOnRefreshFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	expectSummaryQueries(mock)

	service := NewService(conn, time.Nanosecond)
	first, err := service.Summary(context.Background())
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	mock.ExpectQuery(`SELECT COUNT\(\*\),`).WillReturnError(assert.AnError)

	second, err := service.Summary(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
}
