package export_test

import (
	"bytes"
	"encoding/csv"
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/backscan/internal/adapters/export"
	"github.com/alejandrodnm/backscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTrades(t *testing.T) {
	entry := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	trades := []domain.Trade{{
		ID:         "t-1",
		Symbol:     "BTCUSDT",
		Side:       domain.SideLong,
		EntryPrice: 100,
		EntryTime:  entry,
		ExitPrice:  110,
		ExitTime:   entry.Add(4 * time.Hour),
		Quantity:   10,
		PnLAbs:     100,
		PnLPct:     10,
		Duration:   4 * time.Hour,
		Outcome:    domain.OutcomeWin,
		ExitReason: domain.ReasonSignal,
	}}

	var buf bytes.Buffer
	require.NoError(t, export.WriteTrades(&buf, trades))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, export.TradeHeader, records[0])

	row := records[1]
	assert.Equal(t, "BTCUSDT", row[0])
	assert.Equal(t, "LONG", row[1])
	assert.Equal(t, "2024-03-01T10:00:00Z", row[2], "fechas en ISO-8601 UTC")
	assert.Equal(t, "2024-03-01T14:00:00Z", row[3])
	assert.Equal(t, "10.000000", row[8])
	assert.Equal(t, "WIN", row[10])
	assert.Equal(t, domain.ReasonSignal, row[11])
}

func TestWriteReports_InfSentinel(t *testing.T) {
	reports := []domain.Report{{
		Symbol:       "BTCUSDT",
		Strategy:     "sma-cross-10-30",
		Timeframe:    "1h",
		ProfitFactor: math.Inf(1),
		SortinoRatio: math.Inf(1),
	}}

	var buf bytes.Buffer
	require.NoError(t, export.WriteReports(&buf, reports))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, export.ReportHeader, records[0])

	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.NotContains(t, out, "Inf")
	assert.NotContains(t, out, "NaN")
}

func TestWriteReports_ColumnsMatchHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteReports(&buf, []domain.Report{{Symbol: "BTCUSDT"}}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Len(t, records[1], len(export.ReportHeader))
}

func TestWriteTrades_EmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteTrades(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "solo el header")
}
