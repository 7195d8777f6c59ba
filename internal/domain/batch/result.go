package batch

import (
	"sort"

	"github.com/kailas-cloud/personarec/internal/domain"
)

// Status is the processing outcome of a single batch.
type Status string

// Batch status values.
const (
	StatusCommitted Status = "committed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Result is the outcome of one batch: a committed count or a typed failure.
type Result struct {
	index  int
	size   int
	count  int
	status Status
	err    error
}

// NewCommitted creates a successful batch result.
func NewCommitted(index, size, count int) Result {
	return Result{index: index, size: size, count: count, status: StatusCommitted}
}

// NewFailed creates a failed batch result. The cause is wrapped into a *domain.BatchError.
func NewFailed(index, size int, cause error) Result {
	return Result{index: index, size: size, status: StatusFailed, err: domain.NewBatchError(index, cause)}
}

// NewSkipped marks a batch committed by an earlier run.
func NewSkipped(index, size int) Result {
	return Result{index: index, size: size, status: StatusSkipped}
}

// Index returns the batch position within the run.
func (r Result) Index() int { return r.index }

// Size returns the number of records attempted in the batch.
func (r Result) Size() int { return r.size }

// Count returns the number of records committed by the batch.
func (r Result) Count() int { return r.count }

// Status returns the processing outcome.
func (r Result) Status() Status { return r.status }

// Err returns the failure, if any.
func (r Result) Err() error { return r.err }

// Report aggregates the batch results of one run.
type Report struct {
	results []Result
}

// NewReport builds a report ordered by batch index.
func NewReport(results []Result) Report {
	out := make([]Result, len(results))
	copy(out, results)
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return Report{results: out}
}

// Results returns every batch result in index order.
func (r Report) Results() []Result { return r.results }

// Batches returns the number of batches in the run.
func (r Report) Batches() int { return len(r.results) }

// Attempted returns the number of records handed to the run.
func (r Report) Attempted() int {
	n := 0
	for _, res := range r.results {
		n += res.size
	}
	return n
}

// Committed returns the sum of per-batch committed counts.
func (r Report) Committed() int {
	n := 0
	for _, res := range r.results {
		n += res.count
	}
	return n
}

// Skipped returns the number of records in batches skipped as already committed.
func (r Report) Skipped() int {
	n := 0
	for _, res := range r.results {
		if res.status == StatusSkipped {
			n += res.size
		}
	}
	return n
}

// Failures returns the failed batches in index order.
func (r Report) Failures() []Result {
	var out []Result
	for _, res := range r.results {
		if res.status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether no batch failed.
func (r Report) OK() bool { return len(r.Failures()) == 0 }
