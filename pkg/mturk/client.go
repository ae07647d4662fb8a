package mturk

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/mturk"
	"github.com/aws/aws-sdk-go/service/mturk/mturkiface"
	"go.uber.org/zap"
)

const (
	LiveEndpoint    = "https://mturk-requester.us-east-1.amazonaws.com"
	SandboxEndpoint = "https://mturk-requester-sandbox.us-east-1.amazonaws.com"
	Region          = "us-east-1"

	StatusSubmitted = mturk.AssignmentStatusSubmitted
	StatusApproved  = mturk.AssignmentStatusApproved
	StatusRejected  = mturk.AssignmentStatusRejected

	TaskStatusDisposed = mturk.HITStatusDisposed
)

// TaskSpec holds the parameters of a HIT to publish.
type TaskSpec struct {
	Reward           string
	Title            string
	Keywords         string
	Description      string
	AutoApproveDelay time.Duration
	Duration         time.Duration
	MaxAssignments   int64
	Lifetime         time.Duration
	Question         string
}

// Submission is an assignment submitted by a worker.
type Submission struct {
	ID       string
	WorkerID string
	Status   string
	Answers  []Answer
}

// Marketplace is the subset of the crowd marketplace used by the driver.
type Marketplace interface {
	CreateTask(ctx context.Context, spec TaskSpec) (string, error)
	ListSubmissions(ctx context.Context, taskID string, statuses ...string) ([]Submission, error)
	GetTaskStatus(ctx context.Context, taskID string) (string, error)
	ExtendExpiration(ctx context.Context, taskID string, expireAt time.Time) error
	ApproveSubmission(ctx context.Context, submissionID, feedback string) error
	RejectSubmission(ctx context.Context, submissionID, feedback string) error
	BlockWorker(ctx context.Context, workerID, reason string) error
	Balance(ctx context.Context) (string, error)
}

type Client struct {
	api    mturkiface.MTurkAPI
	logger *zap.Logger
}

// Endpoint returns the requester endpoint for the live or the sandbox marketplace.
func Endpoint(live bool) string {
	if live {
		return LiveEndpoint
	}
	return SandboxEndpoint
}

func New(live bool, accessKeyID, secretAccessKey string, logger *zap.Logger) (*Client, error) {
	cfg := aws.NewConfig().
		WithRegion(Region).
		WithEndpoint(Endpoint(live))
	if accessKeyID != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(accessKeyID, secretAccessKey, ""))
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return NewWithAPI(mturk.New(sess), logger), nil
}

func NewWithAPI(api mturkiface.MTurkAPI, logger *zap.Logger) *Client {
	return &Client{
		api:    api,
		logger: logger.Named("mturk"),
	}
}

func (c *Client) CreateTask(ctx context.Context, spec TaskSpec) (string, error) {
	out, err := c.api.CreateHITWithContext(ctx, &mturk.CreateHITInput{
		Reward:                      aws.String(spec.Reward),
		Title:                       aws.String(spec.Title),
		Keywords:                    aws.String(spec.Keywords),
		Description:                 aws.String(spec.Description),
		AutoApprovalDelayInSeconds:  aws.Int64(int64(spec.AutoApproveDelay.Seconds())),
		AssignmentDurationInSeconds: aws.Int64(int64(spec.Duration.Seconds())),
		MaxAssignments:              aws.Int64(spec.MaxAssignments),
		LifetimeInSeconds:           aws.Int64(int64(spec.Lifetime.Seconds())),
		Question:                    aws.String(spec.Question),
	})
	if err != nil {
		return "", err
	}
	if out.HIT == nil {
		return "", fmt.Errorf("create hit: empty response")
	}
	hitID := aws.StringValue(out.HIT.HITId)
	c.logger.Info("created hit", zap.String("hit_id", hitID))
	return hitID, nil
}

func (c *Client) ListSubmissions(ctx context.Context, taskID string, statuses ...string) ([]Submission, error) {
	in := &mturk.ListAssignmentsForHITInput{
		HITId: aws.String(taskID),
	}
	if len(statuses) > 0 {
		in.AssignmentStatuses = aws.StringSlice(statuses)
	}

	var submissions []Submission
	var parseErr error
	err := c.api.ListAssignmentsForHITPagesWithContext(ctx, in, func(page *mturk.ListAssignmentsForHITOutput, lastPage bool) bool {
		for _, a := range page.Assignments {
			sub := Submission{
				ID:       aws.StringValue(a.AssignmentId),
				WorkerID: aws.StringValue(a.WorkerId),
				Status:   aws.StringValue(a.AssignmentStatus),
			}
			if payload := aws.StringValue(a.Answer); payload != "" {
				sub.Answers, parseErr = ParseAnswers(payload)
				if parseErr != nil {
					return false
				}
			}
			submissions = append(submissions, sub)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return submissions, nil
}

// FirstSubmission returns the first listed submission of a task or
// ErrNoSubmission.
func FirstSubmission(ctx context.Context, m Marketplace, taskID string, statuses ...string) (Submission, error) {
	submissions, err := m.ListSubmissions(ctx, taskID, statuses...)
	if err != nil {
		return Submission{}, err
	}
	if len(submissions) == 0 {
		return Submission{}, fmt.Errorf("%w: %s", ErrNoSubmission, taskID)
	}
	return submissions[0], nil
}

func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (string, error) {
	out, err := c.api.GetHITWithContext(ctx, &mturk.GetHITInput{
		HITId: aws.String(taskID),
	})
	if err != nil {
		return "", err
	}
	if out.HIT == nil {
		return "", fmt.Errorf("get hit %s: empty response", taskID)
	}
	return aws.StringValue(out.HIT.HITStatus), nil
}

func (c *Client) ExtendExpiration(ctx context.Context, taskID string, expireAt time.Time) error {
	_, err := c.api.UpdateExpirationForHITWithContext(ctx, &mturk.UpdateExpirationForHITInput{
		HITId:    aws.String(taskID),
		ExpireAt: aws.Time(expireAt),
	})
	return err
}

func (c *Client) ApproveSubmission(ctx context.Context, submissionID, feedback string) error {
	in := &mturk.ApproveAssignmentInput{
		AssignmentId: aws.String(submissionID),
	}
	if feedback != "" {
		in.RequesterFeedback = aws.String(feedback)
	}
	_, err := c.api.ApproveAssignmentWithContext(ctx, in)
	return err
}

func (c *Client) RejectSubmission(ctx context.Context, submissionID, feedback string) error {
	_, err := c.api.RejectAssignmentWithContext(ctx, &mturk.RejectAssignmentInput{
		AssignmentId:      aws.String(submissionID),
		RequesterFeedback: aws.String(feedback),
	})
	return err
}

func (c *Client) BlockWorker(ctx context.Context, workerID, reason string) error {
	_, err := c.api.CreateWorkerBlockWithContext(ctx, &mturk.CreateWorkerBlockInput{
		WorkerId: aws.String(workerID),
		Reason:   aws.String(reason),
	})
	return err
}

func (c *Client) Balance(ctx context.Context) (string, error) {
	out, err := c.api.GetAccountBalanceWithContext(ctx, &mturk.GetAccountBalanceInput{})
	if err != nil {
		return "", err
	}
	return aws.StringValue(out.AvailableBalance), nil
}
