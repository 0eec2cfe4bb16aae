package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricMovesTotal   = "bamm.chain.moves.total"
	metricMoveDuration = "bamm.chain.move.duration.seconds"
	metricEventsOnTree = "bamm.chain.events"
	metricGenerations  = "bamm.chain.generations.total"

	attrMove    = "move"
	attrOutcome = "outcome"
	attrChain   = "chain"

	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
)

// durationBucketBoundaries covers 1µs to 100ms; single proposals are cheap
// but propagation cost grows with tree depth.
var durationBucketBoundaries = []float64{
	0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1,
}

// ChainMetrics holds the OTel instruments for a sampler run.
type ChainMetrics struct {
	movesTotal   metric.Int64Counter
	moveDuration metric.Float64Histogram
	eventsOnTree metric.Int64Gauge
	generations  metric.Int64Counter
}

// NewChainMetrics creates the chain instruments from the given meter.
func NewChainMetrics(mt metric.Meter) (*ChainMetrics, error) {
	moves, err := mt.Int64Counter(metricMovesTotal,
		metric.WithDescription("Total number of proposed moves by type and outcome"),
		metric.WithUnit("{move}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMovesTotal, err)
	}

	duration, err := mt.Float64Histogram(metricMoveDuration,
		metric.WithDescription("Move duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMoveDuration, err)
	}

	events, err := mt.Int64Gauge(metricEventsOnTree,
		metric.WithDescription("Number of non-root events currently on the tree"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEventsOnTree, err)
	}

	gens, err := mt.Int64Counter(metricGenerations,
		metric.WithDescription("Total number of completed generations"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricGenerations, err)
	}

	return &ChainMetrics{
		movesTotal:   moves,
		moveDuration: duration,
		eventsOnTree: events,
		generations:  gens,
	}, nil
}

// RecordMove records one proposed move with its outcome and duration.
func (cm *ChainMetrics) RecordMove(ctx context.Context, chainID int, move string, accepted bool, elapsed time.Duration) {
	outcome := outcomeRejected
	if accepted {
		outcome = outcomeAccepted
	}

	set := metric.WithAttributeSet(attribute.NewSet(
		attribute.Int(attrChain, chainID),
		attribute.String(attrMove, move),
		attribute.String(attrOutcome, outcome),
	))

	cm.movesTotal.Add(ctx, 1, set)
	cm.moveDuration.Record(ctx, elapsed.Seconds(), set)
}

// RecordEventCount records the current number of events on the tree.
func (cm *ChainMetrics) RecordEventCount(ctx context.Context, chainID, count int) {
	cm.eventsOnTree.Record(ctx, int64(count),
		metric.WithAttributeSet(attribute.NewSet(attribute.Int(attrChain, chainID))))
}

// RecordGeneration counts one completed generation.
func (cm *ChainMetrics) RecordGeneration(ctx context.Context, chainID int) {
	cm.generations.Add(ctx, 1,
		metric.WithAttributeSet(attribute.NewSet(attribute.Int(attrChain, chainID))))
}
