package crowd

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/go-errors/errors"
	"github.com/kaytu-io/crowdsh/pkg/airtable"
	"github.com/kaytu-io/crowdsh/pkg/crowd/config"
	"github.com/kaytu-io/crowdsh/pkg/mturk"
	"github.com/kaytu-io/crowdsh/pkg/reputation"
	"go.uber.org/zap"
)

// Dataset is the spreadsheet holding one record per task.
type Dataset interface {
	FetchAll(ctx context.Context, view string) ([]airtable.Record, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

type Option func(*Driver)

func WithClock(c Clock) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// Driver moves every record of the dataset one step through its lifecycle.
// Records are fetched once when the driver is created.
type Driver struct {
	cnf        config.CrowdConfig
	dataset    Dataset
	market     mturk.Marketplace
	reputation reputation.Store
	clock      Clock
	logger     *zap.Logger

	states   map[Status]state
	records  []airtable.Record
	consumed bool
}

func NewDriver(
	ctx context.Context,
	cnf config.CrowdConfig,
	dataset Dataset,
	market mturk.Marketplace,
	store reputation.Store,
	logger *zap.Logger,
	opts ...Option,
) (*Driver, error) {
	d := &Driver{
		cnf:        cnf,
		dataset:    dataset,
		market:     market,
		reputation: store,
		clock:      systemClock{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.states = d.buildStates()

	records, err := dataset.FetchAll(ctx, cnf.Airtable.View)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	d.records = records
	logger.Info("fetched records", zap.Int("count", len(records)), zap.String("view", cnf.Airtable.View))
	return d, nil
}

func (d *Driver) Len() int {
	return len(d.records)
}

// Records yields every fetched record once, in dataset order, after or
// before moving it one step. The sequence can only be ranged over once.
func (d *Driver) Records(ctx context.Context) iter.Seq[airtable.Record] {
	return func(yield func(airtable.Record) bool) {
		if d.consumed {
			d.logger.Warn("records were already iterated")
			return
		}
		d.consumed = true

		total := len(d.records)
		for i, rec := range d.records {
			if err := ctx.Err(); err != nil {
				d.logger.Warn("stopping iteration", zap.Int("processed", i), zap.Error(err))
				return
			}
			d.logger.Info(fmt.Sprintf("Record %d / %d", i+1, total), zap.String("record_id", rec.ID))
			if !d.process(ctx, rec, yield) {
				return
			}
		}
	}
}

func (d *Driver) status(rec airtable.Record) Status {
	return Status(rec.String(d.cnf.StatusField))
}

func (d *Driver) process(ctx context.Context, rec airtable.Record, yield func(airtable.Record) bool) bool {
	status := d.status(rec)
	logger := d.logger.With(zap.String("record_id", rec.ID), zap.Stringer("status", status))
	RecordsProcessedCount.WithLabelValues(status.String()).Inc()

	st := d.stateOf(status)
	if st.yieldFirst && !yield(rec.Clone()) {
		return false
	}

	t := d.handle(ctx, st, rec, logger)
	persisted := d.persist(ctx, rec, status, t, logger)

	if st.yieldFirst {
		return true
	}
	out := rec.Clone()
	if persisted {
		for k, v := range t.Updates {
			if v == nil {
				delete(out.Fields, k)
				continue
			}
			out.Fields[k] = v
		}
	}
	return yield(out)
}

// handle runs a state handler, turning a panic into an empty transition so
// one bad record does not stop the run.
func (d *Driver) handle(ctx context.Context, st state, rec airtable.Record, logger *zap.Logger) (t Transition) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("paniced while handling record",
				zap.Any("panic", r),
				zap.String("stack", errors.Wrap(r, 2).ErrorStack()),
			)
			FailuresCount.WithLabelValues("panic").Inc()
			t = Transition{}
		}
	}()
	return st.handle(ctx, rec, logger)
}

func (d *Driver) persist(ctx context.Context, rec airtable.Record, from Status, t Transition, logger *zap.Logger) bool {
	if !t.Changed() {
		return false
	}
	if err := d.dataset.Update(ctx, rec.ID, t.Updates); err != nil {
		logger.Error("failed to update record", zap.Error(err))
		FailuresCount.WithLabelValues("update_record").Inc()
		return false
	}

	if v, ok := t.Updates[d.cnf.StatusField]; ok {
		to := StatusEmpty
		if s, ok := v.(string); ok {
			to = Status(s)
		}
		TransitionsCount.WithLabelValues(from.String(), to.String()).Inc()
		logger.Info("record transitioned", zap.Stringer("to", to))
	}
	return true
}
