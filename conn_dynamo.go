package cachectl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI captures the subset of DynamoDB client methods used by the conn.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

const (
	// dynamoBatchLimit is the BatchWriteItem request cap.
	dynamoBatchLimit = 25

	dynamoReadyMaxAttempts = 20
	dynamoReadyRetryDelay  = 150 * time.Millisecond
)

type dynamoConn struct {
	client DynamoAPI
	table  string
}

func newDynamoConn(ctx context.Context, cfg Config) (Conn, error) {
	if cfg.DynamoClient == nil {
		client, err := newDynamoClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		cfg.DynamoClient = client
	}
	return &dynamoConn{client: cfg.DynamoClient, table: cfg.DynamoTable}, nil
}

func newDynamoClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.DynamoRegion)}
	if cfg.Username != "" && cfg.Password != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Username, cfg.Password, ""),
		))
	} else if cfg.DynamoEndpoint != "" {
		// dynamodb-local accepts any signature but still requires one.
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("dummy", "dummy", ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	if cfg.DynamoEndpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.DynamoEndpoint, HostnameImmutable: true}, nil
		})
		awsCfg.EndpointResolverWithOptions = resolver
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

func (c *dynamoConn) Driver() Driver { return DriverDynamo }

// Ready describes the table, retrying while a local endpoint is still starting.
func (c *dynamoConn) Ready(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= dynamoReadyMaxAttempts; attempt++ {
		_, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(c.table)})
		if err == nil {
			return nil
		}
		if !isDynamoStartupRetryable(err) {
			return err
		}
		lastErr = err
		if attempt == dynamoReadyMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dynamoReadyRetryDelay):
		}
	}
	return fmt.Errorf("describe dynamo table %q: %w", c.table, lastErr)
}

func (c *dynamoConn) Flush(ctx context.Context) error {
	keys, err := c.scanKeys(ctx, nil)
	if err != nil {
		return err
	}
	_, err = c.DeleteMany(ctx, keys...)
	return err
}

func (c *dynamoConn) Keys(ctx context.Context, pattern string) ([]string, error) {
	matcher, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return c.scanKeys(ctx, &matcher)
}

func (c *dynamoConn) scanKeys(ctx context.Context, matcher *keyMatcher) ([]string, error) {
	var (
		keys             []string
		lastEvaluatedKey map[string]types.AttributeValue
	)
	for {
		out, err := c.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(c.table),
			ProjectionExpression: aws.String("k"),
			ExclusiveStartKey:    lastEvaluatedKey,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			kv, ok := item["k"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if matcher == nil || matcher.Match(kv.Value) {
				keys = append(keys, kv.Value)
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return keys, nil
		}
		lastEvaluatedKey = out.LastEvaluatedKey
	}
}

// Exists treats an item past its ea timestamp as absent.
func (c *dynamoConn) Exists(ctx context.Context, key string) (bool, error) {
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.table),
		Key:            map[string]types.AttributeValue{"k": &types.AttributeValueMemberS{Value: key}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, err
	}
	if out.Item == nil {
		return false, nil
	}
	return !expired(out.Item), nil
}

// DeleteMany batches deletes in groups of 25. DynamoDB does not report which
// keys existed, so the count is the number of processed delete requests.
func (c *dynamoConn) DeleteMany(ctx context.Context, keys ...string) (int64, error) {
	var removed int64
	for start := 0; start < len(keys); start += dynamoBatchLimit {
		end := start + dynamoBatchLimit
		if end > len(keys) {
			end = len(keys)
		}
		writes := make([]types.WriteRequest, 0, end-start)
		for _, k := range keys[start:end] {
			writes = append(writes, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{"k": &types.AttributeValueMemberS{Value: k}},
				},
			})
		}
		out, err := c.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{c.table: writes},
		})
		if err != nil {
			return removed, err
		}
		unprocessed := 0
		if out != nil {
			unprocessed = len(out.UnprocessedItems[c.table])
		}
		removed += int64(len(writes) - unprocessed)
		if unprocessed > 0 {
			return removed, fmt.Errorf("dynamo batch delete left %d unprocessed items", unprocessed)
		}
	}
	return removed, nil
}

func (c *dynamoConn) Close() error { return nil }

func expired(item map[string]types.AttributeValue) bool {
	av, ok := item["ea"].(*types.AttributeValueMemberN)
	if !ok {
		return false
	}
	exp, err := strconv.ParseInt(av.Value, 10, 64)
	if err != nil || exp <= 0 {
		return false
	}
	return time.Now().UnixMilli() > exp
}

func isDynamoStartupRetryable(err error) bool {
	if err == nil {
		return false
	}
	var rnfe *types.ResourceNotFoundException
	if errors.As(err, &rnfe) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "request send failed") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "eof")
}
