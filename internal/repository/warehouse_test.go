package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	applogger "SectorPulse/pkg/logger"
)

func newMockWarehouse(t *testing.T) (*Warehouse, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWarehouseWithDB(db, "sp.daily_ohlcv", applogger.Nop()), mock
}

func d(day int) time.Time { return time.Date(2026, 10, day, 0, 0, 0, 0, time.UTC) }

func TestWarehouseFetchSeries(t *testing.T) {
	w, mock := newMockWarehouse(t)
	rows := sqlmock.NewRows([]string{"date", "open", "high", "low", "close", "volume"}).
		AddRow(d(15), 1.0, 2.0, 0.5, 1.5, int64(100)).
		AddRow(d(16), 1.5, 2.5, 1.0, 2.0, int64(200))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sp.daily_ohlcv")).
		WithArgs("005930", d(10), d(16)).
		WillReturnRows(rows)

	pts, err := w.FetchSeries(context.Background(), models.Entity{ID: "005930"}, d(10), d(16))

	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, 2.0, pts[1].Close)
	assert.Equal(t, int64(200), pts[1].Volume)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouseFetchSeriesQueryError(t *testing.T) {
	w, mock := newMockWarehouse(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	_, err := w.FetchSeries(context.Background(), models.Entity{ID: "005930"}, d(10), d(16))

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
}

func TestWarehouseStoreSeries(t *testing.T) {
	w, mock := newMockWarehouse(t)
	pts := []models.TimeSeriesPoint{
		{Date: d(15), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Date: d(16), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 200},
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sp.daily_ohlcv (date, entity_id, open, high, low, close, volume, source) VALUES (?, ?, ?, ?, ?, ?, ?, ?),(?, ?, ?, ?, ?, ?, ?, ?)")).
		WithArgs(d(15), "005930", 1.0, 2.0, 0.5, 1.5, int64(100), "yahoo",
			d(16), "005930", 1.5, 2.5, 1.0, 2.0, int64(200), "yahoo").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, w.StoreSeries(context.Background(), "005930", "yahoo", pts))
	require.NoError(t, w.StoreSeries(context.Background(), "005930", "yahoo", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouseNullVolumeRoundTrip(t *testing.T) {
	w, mock := newMockWarehouse(t)
	rows := sqlmock.NewRows([]string{"date", "open", "high", "low", "close", "volume"}).
		AddRow(d(16), 1.5, 2.5, 1.0, 2.0, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sp.daily_ohlcv")).WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sp.daily_ohlcv")).
		WithArgs(d(16), "005930", 1.5, 2.5, 1.0, 2.0, nil, "krx").
		WillReturnResult(sqlmock.NewResult(0, 1))

	pts, err := w.FetchSeries(context.Background(), models.Entity{ID: "005930"}, d(10), d(16))
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.True(t, pts[0].VolumeMissing)

	require.NoError(t, w.StoreSeries(context.Background(), "005930", "krx", pts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouseInitSchema(t *testing.T) {
	w, mock := newMockWarehouse(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS sp.daily_ohlcv")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, w.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
