package factor

import (
	"context"
	"fmt"
	"math"

	"github.com/tickerfactor/factorctl/pkg/collections"
	"github.com/tickerfactor/factorctl/pkg/parallel"
)

// Replay drives a fixed set of factors across a sequence of batches,
// evaluating every still-healthy factor in parallel on each Step. A
// factor that returns an error is marked failed and permanently
// excluded from all subsequent steps, so one bad expression never takes
// down the rest of the run.
type Replay struct {
	factors []*Factor
	dead    *collections.Bitset
	errs    map[int]error
	pool    *parallel.WorkerPool[int, replayOutcome]
}

type replayOutcome struct {
	index  int
	values []float64
}

// NewReplay builds a driver over factors, using config to size the
// underlying worker pool (parallel.DefaultPoolConfig() is a reasonable
// default). config.MaxWorkers of 0 picks the pool's own default; a
// negative value is a genuine construction failure, not "use the
// default", and is rejected here rather than silently coerced.
func NewReplay(factors []*Factor, config parallel.PoolConfig) (*Replay, error) {
	if config.MaxWorkers < 0 {
		return nil, &DriverError{Msg: fmt.Sprintf("invalid worker pool size %d", config.MaxWorkers)}
	}
	return &Replay{
		factors: factors,
		dead:    collections.NewBitset(len(factors)),
		errs:    make(map[int]error),
		pool:    parallel.NewWorkerPool[int, replayOutcome](config),
	}, nil
}

// Step evaluates every factor that hasn't already failed against batch,
// returning the per-index output for factors that succeeded this step
// and the full accumulated set of permanently failed factors. Every
// factor index from NewReplay appears in exactly one of the two maps.
func (r *Replay) Step(ctx context.Context, batch Batch) (succeeded map[int][]float64, failed map[int]error) {
	indices := make([]int, 0, len(r.factors))
	for i := range r.factors {
		if !r.dead.Test(i) {
			indices = append(indices, i)
		}
	}

	results := r.pool.ExecuteFunc(ctx, indices, func(ctx context.Context, idx int) (replayOutcome, error) {
		values, err := r.factors[idx].Update(batch)
		if err != nil {
			return replayOutcome{}, err
		}
		return replayOutcome{index: idx, values: values}, nil
	})

	succeeded = make(map[int][]float64, len(results))
	for _, res := range results {
		if res.Error != nil {
			r.dead.Set(res.Input)
			r.errs[res.Input] = res.Error
			continue
		}
		succeeded[res.Result.index] = res.Result.values
	}

	failed = make(map[int]error, len(r.errs))
	for idx, err := range r.errs {
		failed[idx] = err
	}
	return succeeded, failed
}

// NullMask builds the null bitmap for a factor's output series: bit i
// is set wherever values[i] is NaN. A caller archiving or transporting
// output off-process should mask by this rather than carry the raw
// float NaN, since most serialization formats (JSON included) reject
// it outright.
func NullMask(values []float64) *collections.Bitset {
	mask := collections.NewBitset(len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			mask.Set(i)
		}
	}
	return mask
}

// Failed reports the error a factor failed with, if it has failed.
func (r *Replay) Failed(index int) (error, bool) {
	err, ok := r.errs[index]
	return err, ok
}

// Alive reports whether a factor is still being evaluated (has not
// yet failed).
func (r *Replay) Alive(index int) bool {
	return !r.dead.Test(index)
}

// Len returns the number of factors the driver was constructed with.
func (r *Replay) Len() int { return len(r.factors) }
