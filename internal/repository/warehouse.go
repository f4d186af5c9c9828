package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	"SectorPulse/internal/service/resolver"
	pkgch "SectorPulse/pkg/clickhouse"
	applogger "SectorPulse/pkg/logger"
)

// insertChunk bounds the rows of one multi-row INSERT.
const insertChunk = 2000

// Warehouse reads and writes daily bars in a ClickHouse table. It serves
// as the last series fallback and keeps a copy of bars fetched upstream.
type Warehouse struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewWarehouse(ch *pkgch.Client, table string, l *applogger.Logger) *Warehouse {
	return NewWarehouseWithDB(ch.DB(), table, l)
}

func NewWarehouseWithDB(db *sql.DB, table string, l *applogger.Logger) *Warehouse {
	if table == "" {
		table = "daily_ohlcv"
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Warehouse{db: db, table: table, l: l.With(applogger.String("component", "warehouse"))}
}

func (w *Warehouse) Name() string { return resolver.SourceWarehouse }

// FetchSeries implements repository.SeriesSource.
func (w *Warehouse) FetchSeries(ctx context.Context, entity models.Entity, from, to time.Time) ([]models.TimeSeriesPoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT date, open, high, low, close, volume
        FROM %s
        WHERE entity_id = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `, w.table)
	id := entity.Alias(resolver.SourceWarehouse)
	rows, err := w.db.QueryContext(ctx, q, id, from, to)
	if err != nil {
		w.l.Error("warehouse series query error",
			applogger.String("table", w.table),
			applogger.String("entity", id),
			applogger.Error(err))
		return nil, domain.NewSourceError(resolver.SourceWarehouse, "series", entity.ID, domain.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	out := make([]models.TimeSeriesPoint, 0, 64)
	for rows.Next() {
		var p models.TimeSeriesPoint
		var vol sql.NullInt64
		if err := rows.Scan(&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &vol); err != nil {
			return nil, domain.NewSourceError(resolver.SourceWarehouse, "series", entity.ID, domain.ErrParseFailure, fmt.Errorf("scan bar: %w", err))
		}
		p.Volume, p.VolumeMissing = vol.Int64, !vol.Valid
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewSourceError(resolver.SourceWarehouse, "series", entity.ID, domain.ErrSourceUnavailable, fmt.Errorf("rows: %w", err))
	}
	w.l.Debug("warehouse series ok",
		applogger.String("entity", id),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))
	return models.NormalizeSeries(out), nil
}

// StoreSeries inserts bars for one entity, tagged with the source that
// produced them. The table is expected to deduplicate on (entity_id, date).
func (w *Warehouse) StoreSeries(ctx context.Context, entityID, source string, points []models.TimeSeriesPoint) error {
	if len(points) == 0 {
		return nil
	}
	for start := 0; start < len(points); start += insertChunk {
		end := start + insertChunk
		if end > len(points) {
			end = len(points)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, p := range points[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			var vol interface{} = p.Volume
			if p.VolumeMissing {
				vol = nil
			}
			args = append(args, p.Date, entityID, p.Open, p.High, p.Low, p.Close, vol, source)
		}
		q := fmt.Sprintf("INSERT INTO %s (date, entity_id, open, high, low, close, volume, source) VALUES %s",
			w.table, strings.Join(values, ","))
		if _, err := w.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store series %s: %w", entityID, err)
		}
	}
	return nil
}

// InitSchema creates the bar table when missing. ReplacingMergeTree keeps
// the latest insert per (entity_id, date).
func (w *Warehouse) InitSchema(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        date Date,
        entity_id String,
        open Float64,
        high Float64,
        low Float64,
        close Float64,
        volume Nullable(Int64),
        source LowCardinality(String),
        inserted_at DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(inserted_at) ORDER BY (entity_id, date)`, w.table)
	if _, err := w.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create %s: %w", w.table, err)
	}
	return nil
}

func (w *Warehouse) Health(ctx context.Context) error {
	return w.db.PingContext(ctx)
}
