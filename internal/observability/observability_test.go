package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/coastal-loads-etl/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "text"})
	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))

	logger = NewLogger(&config.Config{LogLevel: "debug", LogFormat: "json"})
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.TablesWritten.WithLabelValues("csv").Inc()
	a.RunRunning.Set(1)

	assert.InDelta(t, 1, testutil.ToFloat64(a.TablesWritten.WithLabelValues("csv")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.TablesWritten.WithLabelValues("csv")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.RunRunning), 0)
}

func TestMetricsCollectorsRegistered(t *testing.T) {
	m := NewMetricsForTesting()
	assert.Len(t, m.collectors(), 13)
	assert.Equal(t, 1, testutil.CollectAndCount(m.YearLoadDuration))
}
