package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// CountScalar runs a single-value COUNT query.
func (p *Pool) CountScalar(ctx context.Context, query string, args ...any) (int64, error) {
	var count int64
	if err := p.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count scalar: %w", err)
	}
	return count, nil
}

// InsertMonitorLog stores one metric sample.
func (p *Pool) InsertMonitorLog(ctx context.Context, ts time.Time, metric string, value float64, meta json.RawMessage) error {
	const q = `
INSERT INTO sport.monitor_logs (ts_utc, metric, value, meta)
VALUES ($1, $2, $3, $4)
`
	if _, err := p.Exec(ctx, q, ts.UTC(), metric, value, meta); err != nil {
		return fmt.Errorf("insert monitor log: %w", err)
	}
	return nil
}

// MonitorLogRow is one stored metric sample.
type MonitorLogRow struct {
	TsUTC  time.Time `json:"ts_utc"`
	Metric string    `json:"metric"`
	Value  float64   `json:"value"`
}

// ListMonitorLogs returns recent samples of one metric, newest first.
func (p *Pool) ListMonitorLogs(ctx context.Context, metric string, limit int) ([]MonitorLogRow, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT ts_utc, metric, value
FROM sport.monitor_logs
WHERE ($1 = '' OR metric = $1)
ORDER BY ts_utc DESC, monitor_log_id DESC
LIMIT $2
`
	rows, err := p.Query(ctx, q, metric, limit)
	if err != nil {
		return nil, fmt.Errorf("query monitor logs: %w", err)
	}
	defer rows.Close()

	items := make([]MonitorLogRow, 0, limit)
	for rows.Next() {
		var row MonitorLogRow
		if err := rows.Scan(&row.TsUTC, &row.Metric, &row.Value); err != nil {
			return nil, fmt.Errorf("scan monitor log row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monitor log rows: %w", err)
	}

	return items, nil
}
