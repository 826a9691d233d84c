package jobmetrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	ok := m.Wrap("mail:welcome", func(context.Context, *asynq.Task) error { return nil })
	bad := m.Wrap("mail:welcome", func(context.Context, *asynq.Task) error { return errors.New("smtp down") })
	skip := m.Wrap("mail:welcome", func(context.Context, *asynq.Task) error {
		return fmt.Errorf("decode: %w", asynq.SkipRetry)
	})

	task := asynq.NewTask("mail:welcome", nil)
	require.NoError(t, ok(context.Background(), task))
	require.Error(t, bad(context.Background(), task))
	require.ErrorIs(t, skip(context.Background(), task), asynq.SkipRetry)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("mail:welcome", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("mail:welcome", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("mail:welcome", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("mail:welcome")))
}

func TestNilMetricsTrackerPassesErrorThrough(t *testing.T) {
	var m *Metrics
	want := errors.New("boom")
	assert.Equal(t, want, m.Track("x").End(want))
}
