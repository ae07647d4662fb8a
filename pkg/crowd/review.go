package crowd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kaytu-io/crowdsh/pkg/mturk"
	"github.com/kaytu-io/crowdsh/pkg/reputation"
	"go.uber.org/zap"
)

const (
	Marketplace = "MTurk"
	BlockReason = "Bad Work Quality"
)

// approve credits the worker of the task's submission with an approval.
func (d *Driver) approve(ctx context.Context, taskID string, logger *zap.Logger) error {
	sub, err := mturk.FirstSubmission(ctx, d.market, taskID, mturk.StatusSubmitted, mturk.StatusApproved)
	if err != nil {
		return err
	}

	key := reputation.WorkerKey(Marketplace, sub.WorkerID)
	r, err := d.reputation.Approve(ctx, key, 1)
	if err != nil {
		return fmt.Errorf("credit approval to %s: %w", key, err)
	}
	logger.Info("approved submission",
		zap.String("worker", key),
		zap.Int64("approved", r.Approved),
		zap.Int64("rejected", r.Rejected),
	)

	if d.cnf.MTurk.ApproveAssignments && sub.Status == mturk.StatusSubmitted {
		// the reputation is already credited, a failure here is left to
		// the marketplace's auto approval
		if err := d.market.ApproveSubmission(ctx, sub.ID, ""); err != nil {
			logger.Warn("failed to approve assignment", zap.String("assignment_id", sub.ID), zap.Error(err))
			FailuresCount.WithLabelValues("approve_assignment").Inc()
		}
	}
	return nil
}

// reject charges the worker of the task's submission with a rejection and
// blocks them when their success rate drops too low. Failures are logged.
func (d *Driver) reject(ctx context.Context, taskID string, logger *zap.Logger) {
	sub, err := mturk.FirstSubmission(ctx, d.market, taskID, mturk.StatusSubmitted, mturk.StatusApproved)
	if errors.Is(err, mturk.ErrNoSubmission) {
		logger.Info("no submission to reject")
		return
	}
	if err != nil {
		logger.Error("failed to find submission to reject", zap.Error(err))
		FailuresCount.WithLabelValues("list_submissions").Inc()
		return
	}

	key := reputation.WorkerKey(Marketplace, sub.WorkerID)
	r, err := d.reputation.Reject(ctx, key, 1)
	if err != nil {
		logger.Error("failed to credit rejection", zap.String("worker", key), zap.Error(err))
		FailuresCount.WithLabelValues("reputation").Inc()
		return
	}
	logger.Info("rejected submission",
		zap.String("worker", key),
		zap.Int64("approved", r.Approved),
		zap.Int64("rejected", r.Rejected),
	)

	d.blockBadWorker(ctx, r, sub, logger)
}

// blockBadWorker blocks the worker and rejects the submission that tipped
// them over. Both calls are attempted independently.
func (d *Driver) blockBadWorker(ctx context.Context, r reputation.Reputation, sub mturk.Submission, logger *zap.Logger) bool {
	if !reputation.ShouldBlock(r) {
		return false
	}

	logger = logger.With(zap.String("worker_id", sub.WorkerID), zap.Float64("success_rate", r.SuccessRate()))
	logger.Warn("blocking worker")
	if err := d.market.BlockWorker(ctx, sub.WorkerID, BlockReason); err != nil {
		logger.Error("failed to block worker", zap.Error(err))
		FailuresCount.WithLabelValues("block_worker").Inc()
	} else {
		WorkersBlockedCount.Inc()
	}

	if err := d.market.RejectSubmission(ctx, sub.ID, BlockReason); err != nil {
		logger.Error("failed to reject assignment", zap.String("assignment_id", sub.ID), zap.Error(err))
		FailuresCount.WithLabelValues("reject_assignment").Inc()
	}
	return true
}
