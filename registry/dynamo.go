package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the subset of the DynamoDB API used by DynamoRegistry.
type DDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoRegistry is a Registry backed by a DynamoDB table keyed by name.
//
// Item attributes:
//   - name (S): partition key
//   - bucket (S)
//   - prefix (S)
//   - size_bytes (N)
type DynamoRegistry struct {
	client DDBClient
	table  string
}

// NewDynamoRegistry creates a registry reading table.
func NewDynamoRegistry(client DDBClient, table string) *DynamoRegistry {
	return &DynamoRegistry{client: client, table: table}
}

func (r *DynamoRegistry) Get(ctx context.Context, name string) (Dataset, error) {
	resp, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to get dataset %s: %w", name, err)
	}
	if len(resp.Item) == 0 {
		return Dataset{}, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	return decodeDataset(resp.Item)
}

// List scans the whole table. Results are sorted by name.
func (r *DynamoRegistry) List(ctx context.Context) ([]Dataset, error) {
	var out []Dataset
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: aws.String(r.table)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registry: %w", err)
		}
		for _, item := range page.Items {
			d, err := decodeDataset(item)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *DynamoRegistry) Put(ctx context.Context, d Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      encodeDataset(d),
	})
	if err != nil {
		return fmt.Errorf("failed to put dataset %s: %w", d.Name, err)
	}
	return nil
}

func encodeDataset(d Dataset) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"name":       &types.AttributeValueMemberS{Value: d.Name},
		"bucket":     &types.AttributeValueMemberS{Value: d.Bucket},
		"prefix":     &types.AttributeValueMemberS{Value: d.Prefix},
		"size_bytes": &types.AttributeValueMemberN{Value: strconv.FormatInt(d.SizeBytes, 10)},
	}
}

func decodeDataset(item map[string]types.AttributeValue) (Dataset, error) {
	var d Dataset
	name, ok := item["name"].(*types.AttributeValueMemberS)
	if !ok {
		return d, errors.New("invalid name attribute in DynamoDB")
	}
	d.Name = name.Value

	if v, ok := item["bucket"].(*types.AttributeValueMemberS); ok {
		d.Bucket = v.Value
	}
	prefix, ok := item["prefix"].(*types.AttributeValueMemberS)
	if !ok {
		return d, fmt.Errorf("invalid prefix attribute for dataset %s", d.Name)
	}
	d.Prefix = prefix.Value

	if v, ok := item["size_bytes"].(*types.AttributeValueMemberN); ok {
		n, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return d, fmt.Errorf("failed to parse size_bytes for dataset %s: %w", d.Name, err)
		}
		d.SizeBytes = n
	}
	return d, nil
}
