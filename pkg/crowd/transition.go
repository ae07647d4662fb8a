package crowd

import (
	"context"
	"time"

	"github.com/kaytu-io/crowdsh/pkg/airtable"
	"github.com/kaytu-io/crowdsh/pkg/form"
	"github.com/kaytu-io/crowdsh/pkg/mturk"
	"go.uber.org/zap"
)

const (
	AutoApproveDelay   = 24 * time.Hour
	AssignmentDuration = 10 * time.Minute
	TaskLifetime       = 24 * time.Hour
	MaxAssignments     = 1

	// ExpirationExtension is added to "now" every run a task is still open.
	ExpirationExtension = 18 * time.Hour
)

// Transition is the outcome of handling one record: the fields to persist.
// A nil value clears the field.
type Transition struct {
	Updates map[string]any
}

func (t Transition) Changed() bool {
	return len(t.Updates) > 0
}

// state is one case of the record state machine. Records in states with
// yieldFirst are handed to the caller before they are acted on; the others
// are acted on first and handed over with the persisted changes applied.
type state struct {
	yieldFirst bool
	handle     func(ctx context.Context, rec airtable.Record, logger *zap.Logger) Transition
}

func passthrough(context.Context, airtable.Record, *zap.Logger) Transition {
	return Transition{}
}

func (d *Driver) buildStates() map[Status]state {
	idle := state{yieldFirst: true, handle: passthrough}
	working := state{yieldFirst: true, handle: d.handleWorking}
	return map[Status]state{
		StatusEmpty:    idle,
		StatusDraft:    working,
		StatusWorking:  working,
		StatusFinished: idle,
		StatusManual:   idle,
		StatusApproved: {handle: d.handleApproved},
		StatusRejected: {handle: d.handleRejected},
	}
}

func (d *Driver) stateOf(status Status) state {
	if st, ok := d.states[status]; ok {
		return st
	}
	return state{yieldFirst: true, handle: passthrough}
}

func (d *Driver) handleWorking(ctx context.Context, rec airtable.Record, logger *zap.Logger) Transition {
	taskID := rec.String(d.cnf.TaskIDField)
	if taskID == "" {
		return d.publish(ctx, rec, logger)
	}
	return d.poll(ctx, rec, taskID, logger.With(zap.String("hit_id", taskID)))
}

func (d *Driver) publish(ctx context.Context, rec airtable.Record, logger *zap.Logger) Transition {
	question, err := form.Render(d.cnf.MTurk.Title, d.cnf.MTurk.Description, d.cnf.Fields, d.values(rec))
	if err != nil {
		logger.Error("failed to render question", zap.Error(err))
		FailuresCount.WithLabelValues("render").Inc()
		return Transition{}
	}

	taskID, err := d.market.CreateTask(ctx, mturk.TaskSpec{
		Reward:           d.cnf.MTurk.Reward,
		Title:            d.cnf.MTurk.Title,
		Keywords:         d.cnf.MTurk.Keywords,
		Description:      d.cnf.MTurk.Description,
		AutoApproveDelay: AutoApproveDelay,
		Duration:         AssignmentDuration,
		MaxAssignments:   MaxAssignments,
		Lifetime:         TaskLifetime,
		Question:         question,
	})
	if err != nil {
		FailuresCount.WithLabelValues("create_task").Inc()
		if mturk.IsParameterValidation(err) {
			logger.Error("task parameters rejected, marking record as errored", zap.Error(err))
			return Transition{Updates: map[string]any{
				d.cnf.StatusField: string(StatusError),
			}}
		}
		logger.Error("failed to create task", zap.Error(err))
		return Transition{}
	}

	logger.Info("published task", zap.String("hit_id", taskID))
	return Transition{Updates: map[string]any{
		d.cnf.TaskIDField: taskID,
		d.cnf.StatusField: string(StatusWorking),
	}}
}

func (d *Driver) poll(ctx context.Context, rec airtable.Record, taskID string, logger *zap.Logger) Transition {
	submissions, err := d.market.ListSubmissions(ctx, taskID)
	if err != nil {
		logger.Error("failed to list submissions", zap.Error(err))
		FailuresCount.WithLabelValues("list_submissions").Inc()
		return Transition{}
	}
	if len(submissions) > 0 {
		logger.Info("task finished", zap.String("assignment_id", submissions[0].ID))
		return finished(d.cnf.Fields, d.cnf.StatusField, submissions[0])
	}

	status, err := d.market.GetTaskStatus(ctx, taskID)
	if err != nil {
		logger.Error("failed to get task", zap.Error(err))
		FailuresCount.WithLabelValues("get_task").Inc()
		return Transition{}
	}
	if status == mturk.TaskStatusDisposed {
		logger.Info("task disposed, resetting record")
		return Transition{Updates: map[string]any{
			d.cnf.TaskIDField: "",
			d.cnf.StatusField: nil,
		}}
	}

	expireAt := d.clock.Now().UTC().Add(ExpirationExtension)
	if err := d.market.ExtendExpiration(ctx, taskID, expireAt); err != nil {
		logger.Error("failed to extend task expiration", zap.Error(err))
		FailuresCount.WithLabelValues("extend_expiration").Inc()
		return Transition{}
	}
	logger.Info("extended task expiration", zap.Time("expire_at", expireAt))
	return Transition{}
}

// finished copies the answers of a submission into the configured fields
// they answer and marks the record as finished.
func finished(fields []form.Field, statusField string, sub mturk.Submission) Transition {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
	}

	updates := map[string]any{}
	for _, a := range sub.Answers {
		if known[a.QuestionIdentifier] {
			updates[a.QuestionIdentifier] = a.FreeText
		}
	}
	updates[statusField] = string(StatusFinished)
	return Transition{Updates: updates}
}

func (d *Driver) handleApproved(ctx context.Context, rec airtable.Record, logger *zap.Logger) Transition {
	taskID := rec.String(d.cnf.TaskIDField)
	if taskID == "" {
		return Transition{}
	}
	if err := d.approve(ctx, taskID, logger.With(zap.String("hit_id", taskID))); err != nil {
		logger.Error("failed to approve task", zap.String("hit_id", taskID), zap.Error(err))
		FailuresCount.WithLabelValues("approve").Inc()
		return Transition{}
	}
	return Transition{Updates: map[string]any{
		d.cnf.TaskIDField: "",
	}}
}

func (d *Driver) handleRejected(ctx context.Context, rec airtable.Record, logger *zap.Logger) Transition {
	if taskID := rec.String(d.cnf.TaskIDField); taskID != "" {
		d.reject(ctx, taskID, logger.With(zap.String("hit_id", taskID)))
	}
	return reset(d.cnf.Fields, d.cnf.StatusField, d.cnf.TaskIDField)
}

// reset clears the task, the status and every field a worker fills in, so
// the record is ready to be drafted again.
func reset(fields []form.Field, statusField, taskIDField string) Transition {
	updates := map[string]any{
		taskIDField: "",
		statusField: nil,
	}
	for _, f := range fields {
		if f.Editable() {
			updates[f.Name] = ""
		}
	}
	return Transition{Updates: updates}
}

func (d *Driver) values(rec airtable.Record) map[string]string {
	values := make(map[string]string, len(d.cnf.Fields))
	for _, f := range d.cnf.Fields {
		values[f.Name] = rec.String(f.Name)
	}
	return values
}
