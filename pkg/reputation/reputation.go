package reputation

import (
	"context"
	"fmt"
)

const (
	// BlockMinimumTasks is the number of reviewed tasks a worker is allowed
	// before the success rate is enforced.
	BlockMinimumTasks = 3
	// BlockSuccessRate is the minimum success rate, in percent.
	BlockSuccessRate = 75.0
)

type Reputation struct {
	Worker   string
	Approved int64
	Rejected int64
}

// Total is the number of reviewed tasks, floored at 1.
func (r Reputation) Total() int64 {
	total := r.Approved + r.Rejected
	if total == 0 {
		return 1
	}
	return total
}

func (r Reputation) SuccessRate() float64 {
	return (1.0 - float64(r.Rejected)/float64(r.Total())) * 100
}

// ShouldBlock reports whether a worker has done enough work to be judged and
// falls below the success rate.
func ShouldBlock(r Reputation) bool {
	return r.Total() > BlockMinimumTasks && r.SuccessRate() < BlockSuccessRate
}

// WorkerKey namespaces a worker id by marketplace, e.g. "MTurk:A1B2C3".
func WorkerKey(marketplace, workerID string) string {
	return fmt.Sprintf("%s:%s", marketplace, workerID)
}

// Store keeps per-worker approve/reject counters. Increments create the entry
// when missing and return the counters after the increment.
type Store interface {
	Approve(ctx context.Context, worker string, amount int64) (Reputation, error)
	Reject(ctx context.Context, worker string, amount int64) (Reputation, error)
	Get(ctx context.Context, worker string) (Reputation, error)
}
