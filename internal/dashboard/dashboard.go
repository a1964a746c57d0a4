// Package dashboard serves the precomputed aggregate view of the logistics
// database. The queries are fixed; results are cached for a short TTL so the
// dashboard can be polled without hammering the database.
package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	logx "github.com/suppbot/server/pkg/logger"
)

const DefaultCacheTTL = 60 * time.Second

// KPIs are the headline numbers.
type KPIs struct {
	TotalOperations   int     `json:"total_operations"`
	InTransit         int     `json:"in_transit"`
	Delivered         int     `json:"delivered"`
	Cancelled         int     `json:"cancelled"`
	TotalFreightValue float64 `json:"total_freight_value"`
	AvgFreightValue   float64 `json:"avg_freight_value"`
}

type StatusCount struct {
	Status string `json:"status"`
	Total  int    `json:"total"`
}

type StateValue struct {
	State string  `json:"state"`
	Total float64 `json:"total"`
}

type DayCount struct {
	Day   string `json:"day"`
	Total int    `json:"total"`
}

type ClientValue struct {
	Client string  `json:"client"`
	Total  float64 `json:"total"`
}

// Summary is the full dashboard payload.
type Summary struct {
	KPIs               KPIs          `json:"kpis"`
	OperationsByStatus []StatusCount `json:"operations_by_status"`
	FreightByState     []StateValue  `json:"freight_by_state"`
	OperationsByDay    []DayCount    `json:"operations_by_day"`
	TopClientsByValue  []ClientValue `json:"top_clients_by_value"`
	GeneratedAt        time.Time     `json:"generated_at"`
}

// Service computes and caches the dashboard summary.
type Service struct {
	db  *sql.DB
	ttl time.Duration

	mu       sync.Mutex
	cached   *Summary
	cachedAt time.Time
}

func NewService(db *sql.DB, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{db: db, ttl: ttl}
}

// Summary returns the cached payload, recomputing it when stale. Concurrent
// callers during a refresh wait for the single computation.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Since(s.cachedAt) < s.ttl {
		return s.cached, nil
	}

	summary, err := s.compute(ctx)
	if err != nil {
		// Serve the stale copy over an error when one exists.
		if s.cached != nil {
			logx.Error().Err(err).Msg("dashboard refresh failed, serving stale summary")
			return s.cached, nil
		}
		return nil, err
	}

	s.cached = summary
	s.cachedAt = time.Now()
	return s.cached, nil
}

func (s *Service) compute(ctx context.Context) (*Summary, error) {
	summary := &Summary{GeneratedAt: time.Now().UTC()}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'EM_TRANSITO'),
		       COUNT(*) FILTER (WHERE status = 'ENTREGUE'),
		       COUNT(*) FILTER (WHERE status = 'CANCELADO'),
		       COALESCE(SUM(valor_frete), 0),
		       COALESCE(AVG(valor_frete), 0)
		FROM operacoes_logisticas`).Scan(
		&summary.KPIs.TotalOperations,
		&summary.KPIs.InTransit,
		&summary.KPIs.Delivered,
		&summary.KPIs.Cancelled,
		&summary.KPIs.TotalFreightValue,
		&summary.KPIs.AvgFreightValue,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard kpis: %w", err)
	}

	if err := s.operationsByStatus(ctx, summary); err != nil {
		return nil, err
	}
	if err := s.freightByState(ctx, summary); err != nil {
		return nil, err
	}
	if err := s.operationsByDay(ctx, summary); err != nil {
		return nil, err
	}
	if err := s.topClientsByValue(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) operationsByStatus(ctx context.Context, summary *Summary) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM operacoes_logisticas
		GROUP BY status
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return fmt.Errorf("dashboard operations by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item StatusCount
		if err := rows.Scan(&item.Status, &item.Total); err != nil {
			return fmt.Errorf("dashboard operations by status: %w", err)
		}
		summary.OperationsByStatus = append(summary.OperationsByStatus, item)
	}
	return rows.Err()
}

func (s *Service) freightByState(ctx context.Context, summary *Summary) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uf_destino, COALESCE(SUM(valor_frete), 0)
		FROM operacoes_logisticas
		GROUP BY uf_destino
		ORDER BY 2 DESC`)
	if err != nil {
		return fmt.Errorf("dashboard freight by state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item StateValue
		if err := rows.Scan(&item.State, &item.Total); err != nil {
			return fmt.Errorf("dashboard freight by state: %w", err)
		}
		summary.FreightByState = append(summary.FreightByState, item)
	}
	return rows.Err()
}

func (s *Service) operationsByDay(ctx context.Context, summary *Summary) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data_emissao::date::text, COUNT(*)
		FROM operacoes_logisticas
		WHERE data_emissao >= NOW() - INTERVAL '30 days'
		GROUP BY data_emissao::date
		ORDER BY data_emissao::date`)
	if err != nil {
		return fmt.Errorf("dashboard operations by day: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item DayCount
		if err := rows.Scan(&item.Day, &item.Total); err != nil {
			return fmt.Errorf("dashboard operations by day: %w", err)
		}
		summary.OperationsByDay = append(summary.OperationsByDay, item)
	}
	return rows.Err()
}

func (s *Service) topClientsByValue(ctx context.Context, summary *Summary) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.nome_razao_social, COALESCE(SUM(o.valor_mercadoria), 0) AS total
		FROM operacoes_logisticas o
		JOIN clientes c ON c.id = o.cliente_id
		GROUP BY c.nome_razao_social
		ORDER BY total DESC
		LIMIT 10`)
	if err != nil {
		return fmt.Errorf("dashboard top clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item ClientValue
		if err := rows.Scan(&item.Client, &item.Total); err != nil {
			return fmt.Errorf("dashboard top clients: %w", err)
		}
		summary.TopClientsByValue = append(summary.TopClientsByValue, item)
	}
	return rows.Err()
}
