package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

func TestNewChainMetrics(t *testing.T) {
	t.Parallel()

	meter := noopmetric.NewMeterProvider().Meter("test")

	cm, err := NewChainMetrics(meter)
	require.NoError(t, err)

	// Recording against no-op instruments must be safe.
	ctx := context.Background()
	cm.RecordMove(ctx, 0, "local", true, time.Microsecond)
	cm.RecordMove(ctx, 0, "global", false, time.Microsecond)
	cm.RecordEventCount(ctx, 0, 3)
	cm.RecordGeneration(ctx, 0)
}

func TestInit_NoMetricsAddr(t *testing.T) {
	t.Parallel()

	providers, err := Init(Config{Service: "bamm"})
	require.NoError(t, err)
	require.NotNil(t, providers.Logger)
	require.NotNil(t, providers.Meter)

	require.NoError(t, providers.Shutdown(context.Background()))
}
