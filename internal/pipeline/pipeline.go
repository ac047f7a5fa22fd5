// Package pipeline wires sources, processors and consumers together around a
// bounded queue. Sources push observations in; workers drain the queue, run
// the processor chain and fan the result out to every registered consumer
// (the sink dispatcher and the aggregation engine).
package pipeline

import (
	"context"
	"fmt"

	"github.com/okairos/weatherd/pkg/types"
)

// ErrQueueSaturated is returned by Offer when the queue stayed full past the
// bounded wait. The caller drops the observation; the drop is counted.
var ErrQueueSaturated = fmt.Errorf("ingest queue saturated")

// Source produces observations and pushes them through Offer until its
// context is canceled. Restartability depends on the underlying transport.
type Source interface {
	Name() string
	Run(ctx context.Context, rt *Runtime) error
}

// Processor consumes one observation and produces zero or one transformed
// observation. Returning (nil, nil) filters the record out. Processors run
// in registration order on a worker goroutine and must not retain the
// observation after returning.
type Processor interface {
	Name() string
	Process(obs *types.Observation) (*types.Observation, error)
}

// Consumer receives fully processed observations. Implementations report
// expected failures through their own counters; an error return here is
// logged and never stops the pipeline.
type Consumer interface {
	Name() string
	Consume(ctx context.Context, obs *types.Observation) error
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc struct {
	ConsumerName string
	Fn           func(ctx context.Context, obs *types.Observation) error
}

func (c ConsumerFunc) Name() string { return c.ConsumerName }

func (c ConsumerFunc) Consume(ctx context.Context, obs *types.Observation) error {
	return c.Fn(ctx, obs)
}
