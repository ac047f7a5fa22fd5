// Package aggregate rolls observations up into fixed-interval archive
// records and daily summaries. All window and rain-counter state lives here,
// owned by the Engine and touched by exactly one goroutine at a time.
package aggregate

import (
	"math"

	"github.com/okairos/weatherd/internal/units"
	"github.com/okairos/weatherd/pkg/types"
)

// scalarAcc accumulates min/max/sum/count for one linear metric. Empty
// accumulators produce no aggregate at all: a metric nobody reported is
// absent from the record, never zero.
type scalarAcc struct {
	min, max, sum float64
	count         int
}

func (a *scalarAcc) add(v float64) {
	if a.count == 0 || v < a.min {
		a.min = v
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.count++
}

func (a *scalarAcc) aggregate() (types.Aggregate, bool) {
	if a.count == 0 {
		return types.Aggregate{}, false
	}
	avg := a.sum / float64(a.count)
	return types.Aggregate{
		Min:   types.Float(a.min),
		Max:   types.Float(a.max),
		Avg:   types.Float(avg),
		Count: a.count,
	}, true
}

// circularAcc accumulates a vector mean for angular metrics. Samples may be
// weighted (wind direction weighted by simultaneous wind speed) so calm-air
// readings do not skew the resultant.
type circularAcc struct {
	sinSum, cosSum float64
	count          int
}

func (a *circularAcc) add(deg, weight float64) {
	if weight <= 0 {
		weight = 1
	}
	rad := deg * math.Pi / 180.0
	a.sinSum += weight * math.Sin(rad)
	a.cosSum += weight * math.Cos(rad)
	a.count++
}

func (a *circularAcc) aggregate() (types.Aggregate, bool) {
	if a.count == 0 {
		return types.Aggregate{}, false
	}
	mean := math.Atan2(a.sinSum, a.cosSum) * 180.0 / math.Pi
	return types.Aggregate{
		Avg:   types.Float(units.NormalizeDirection(mean)),
		Count: a.count,
	}, true
}

// maxAcc keeps only the maximum, for gusts.
type maxAcc struct {
	max   float64
	count int
}

func (a *maxAcc) add(v float64) {
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.count++
}

func (a *maxAcc) aggregate() (types.Aggregate, bool) {
	if a.count == 0 {
		return types.Aggregate{}, false
	}
	return types.Aggregate{
		Max:   types.Float(a.max),
		Count: a.count,
	}, true
}

// sumAcc accumulates a total, for rain deltas.
type sumAcc struct {
	sum   float64
	count int
}

func (a *sumAcc) add(v float64) {
	a.sum += v
	a.count++
}

func (a *sumAcc) aggregate() (types.Aggregate, bool) {
	if a.count == 0 {
		return types.Aggregate{}, false
	}
	return types.Aggregate{
		Sum:   types.Float(a.sum),
		Count: a.count,
	}, true
}
