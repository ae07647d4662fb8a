package crowd

import (
	"context"
	"errors"
	"time"

	"github.com/kaytu-io/crowdsh/pkg/airtable"
	"github.com/kaytu-io/crowdsh/pkg/crowd/config"
	"github.com/kaytu-io/crowdsh/pkg/form"
	"github.com/kaytu-io/crowdsh/pkg/mturk"
)

type update struct {
	id     string
	fields map[string]any
}

type fakeDataset struct {
	records   []airtable.Record
	updates   []update
	fetchErr  error
	updateErr error
}

func (f *fakeDataset) FetchAll(_ context.Context, _ string) ([]airtable.Record, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.records, nil
}

func (f *fakeDataset) Update(_ context.Context, id string, fields map[string]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, update{id: id, fields: fields})
	return nil
}

type extension struct {
	taskID   string
	expireAt time.Time
}

type fakeMarket struct {
	createErr    error
	created      []mturk.TaskSpec
	submissions  map[string][]mturk.Submission
	listErr      error
	listStatuses [][]string
	taskStatus   string
	getErr       error
	extended     []extension
	extendErr    error
	approved     []string
	rejected     map[string]string
	rejectErr    error
	blocked      map[string]string
	blockErr     error
	panicOnList  bool
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		submissions: map[string][]mturk.Submission{},
		taskStatus:  "Assignable",
		rejected:    map[string]string{},
		blocked:     map[string]string{},
	}
}

func (f *fakeMarket) CreateTask(_ context.Context, spec mturk.TaskSpec) (string, error) {
	f.created = append(f.created, spec)
	if f.createErr != nil {
		return "", f.createErr
	}
	return "HIT-NEW", nil
}

func (f *fakeMarket) ListSubmissions(_ context.Context, taskID string, statuses ...string) ([]mturk.Submission, error) {
	if f.panicOnList {
		panic("boom")
	}
	f.listStatuses = append(f.listStatuses, statuses)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.submissions[taskID], nil
}

func (f *fakeMarket) GetTaskStatus(_ context.Context, _ string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.taskStatus, nil
}

func (f *fakeMarket) ExtendExpiration(_ context.Context, taskID string, expireAt time.Time) error {
	if f.extendErr != nil {
		return f.extendErr
	}
	f.extended = append(f.extended, extension{taskID: taskID, expireAt: expireAt})
	return nil
}

func (f *fakeMarket) ApproveSubmission(_ context.Context, submissionID, _ string) error {
	f.approved = append(f.approved, submissionID)
	return nil
}

func (f *fakeMarket) RejectSubmission(_ context.Context, submissionID, feedback string) error {
	if f.rejectErr != nil {
		return f.rejectErr
	}
	f.rejected[submissionID] = feedback
	return nil
}

func (f *fakeMarket) BlockWorker(_ context.Context, workerID, reason string) error {
	if f.blockErr != nil {
		return f.blockErr
	}
	f.blocked[workerID] = reason
	return nil
}

func (f *fakeMarket) Balance(context.Context) (string, error) {
	return "100.00", nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

var errBoom = errors.New("boom")

func testConfig() config.CrowdConfig {
	c := config.Default()
	c.MTurk = config.MTurk{
		Reward:      "0.05",
		Title:       "Tag stories",
		Keywords:    "tag, story",
		Description: "Read the story and tag it",
	}
	c.Airtable = config.Airtable{AppKey: "app1", APIKey: "key", Table: "Stories", View: "Grid view"}
	c.Fields = []form.Field{
		{Name: "Story", Type: form.FieldLabel},
		{Name: "RowKey", Type: form.FieldHidden},
		{Name: "Mood", Type: form.FieldRadio, Options: []string{"Happy", "Sad"}},
		{Name: "Summary", Type: form.FieldLongText},
	}
	return c
}

func record(id string, fields map[string]any) airtable.Record {
	return airtable.Record{ID: id, Fields: fields}
}
