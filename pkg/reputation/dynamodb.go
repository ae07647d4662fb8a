package reputation

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	DefaultTable  = "OpsZero-CrowdReputation-prod"
	DefaultRegion = "us-west-2"

	attrWorker   = "pk"
	attrApproved = "approved"
	attrRejected = "rejected"
)

type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

type DynamoConfig struct {
	Table           string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type DynamoStore struct {
	api    DynamoAPI
	table  string
	logger *zap.Logger
}

func NewDynamoStore(ctx context.Context, cnf DynamoConfig, logger *zap.Logger) (*DynamoStore, error) {
	region := cnf.Region
	if region == "" {
		region = DefaultRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cnf.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cnf.AccessKeyID, cnf.SecretAccessKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if cnf.Endpoint != "" {
			o.BaseEndpoint = aws.String(cnf.Endpoint)
		}
	})
	return NewDynamoStoreWithAPI(client, cnf.Table, logger), nil
}

func NewDynamoStoreWithAPI(api DynamoAPI, table string, logger *zap.Logger) *DynamoStore {
	if table == "" {
		table = DefaultTable
	}
	return &DynamoStore{
		api:    api,
		table:  table,
		logger: logger.Named("reputation"),
	}
}

func (s *DynamoStore) Approve(ctx context.Context, worker string, amount int64) (Reputation, error) {
	return s.increment(ctx, worker, attrApproved, amount)
}

func (s *DynamoStore) Reject(ctx context.Context, worker string, amount int64) (Reputation, error) {
	return s.increment(ctx, worker, attrRejected, amount)
}

// increment adds amount to a counter with a single UpdateItem call. ADD
// creates the item and the attribute when missing, so concurrent callers
// never lose an update.
func (s *DynamoStore) increment(ctx context.Context, worker, attr string, amount int64) (Reputation, error) {
	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			attrWorker: &types.AttributeValueMemberS{Value: worker},
		},
		UpdateExpression: aws.String("ADD #counter :amount"),
		ExpressionAttributeNames: map[string]string{
			"#counter": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amount": &types.AttributeValueMemberN{Value: strconv.FormatInt(amount, 10)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return Reputation{}, wrapError(fmt.Sprintf("increment %s of %s", attr, worker), err)
	}

	r, err := decode(worker, out.Attributes)
	if err != nil {
		return Reputation{}, err
	}
	s.logger.Debug("reputation updated",
		zap.String("worker", worker),
		zap.Int64("approved", r.Approved),
		zap.Int64("rejected", r.Rejected),
	)
	return r, nil
}

func (s *DynamoStore) Get(ctx context.Context, worker string) (Reputation, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			attrWorker: &types.AttributeValueMemberS{Value: worker},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Reputation{}, wrapError(fmt.Sprintf("get %s", worker), err)
	}
	return decode(worker, out.Item)
}

func decode(worker string, item map[string]types.AttributeValue) (Reputation, error) {
	r := Reputation{Worker: worker}
	var err error
	if r.Approved, err = number(item, attrApproved); err != nil {
		return Reputation{}, err
	}
	if r.Rejected, err = number(item, attrRejected); err != nil {
		return Reputation{}, err
	}
	return r, nil
}

func number(item map[string]types.AttributeValue, attr string) (int64, error) {
	v, ok := item[attr]
	if !ok {
		return 0, nil
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute %s is not a number", attr)
	}
	// counters are written as integers but older items may carry decimals
	f, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("attribute %s: %w", attr, err)
	}
	return int64(f), nil
}

func wrapError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("dynamodb %s: %s: %w", op, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("dynamodb %s: %w", op, err)
}
