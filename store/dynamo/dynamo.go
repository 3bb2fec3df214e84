// Package dynamo provides a DynamoDB implementation of store.Durable.
// Snapshots are stored one item per match with the match id as partition
// key; Recent scans completed items and sorts client side, which is fine at
// ladder scale.
package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/agentarena/match"
	"github.com/hupe1980/agentarena/store"
)

// DefaultTable is the table name used unless configured otherwise.
const DefaultTable = "arena_matches"

// Compile time check to ensure Store satisfies the store.Durable interface.
var _ store.Durable = (*Store)(nil)

// Options configures the Store.
type Options struct {
	Table string
}

// Store persists match snapshots in a DynamoDB table.
type Store struct {
	client *dynamodb.Client
	table  string
}

// New loads the default AWS config for the given region and returns a Store.
func New(ctx context.Context, region string, optFns ...func(*Options)) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("dynamo: load aws config: %w", err)
	}
	return NewFromClient(dynamodb.NewFromConfig(cfg), optFns...), nil
}

// NewFromClient wraps an existing DynamoDB client.
func NewFromClient(client *dynamodb.Client, optFns ...func(*Options)) *Store {
	opts := Options{Table: DefaultTable}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{client: client, table: opts.Table}
}

// WithTable overrides the table name.
func WithTable(name string) func(*Options) {
	return func(o *Options) { o.Table = name }
}

// Save implements store.Durable.
func (s *Store) Save(ctx context.Context, snap match.Snapshot) error {
	item, err := attributevalue.MarshalMap(snap)
	if err != nil {
		return fmt.Errorf("dynamo: marshal match %s: %w", snap.ID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamo: put match %s: %w", snap.ID, err)
	}
	return nil
}

// Get implements store.Durable.
func (s *Store) Get(ctx context.Context, id string) (match.Snapshot, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return match.Snapshot{}, fmt.Errorf("dynamo: get match %s: %w", id, err)
	}
	if out.Item == nil {
		return match.Snapshot{}, store.ErrNotFound
	}
	var snap match.Snapshot
	if err := attributevalue.UnmarshalMap(out.Item, &snap); err != nil {
		return match.Snapshot{}, fmt.Errorf("dynamo: unmarshal match %s: %w", id, err)
	}
	return snap, nil
}

// Recent implements store.Durable. Pagination is followed to the end; the
// result is sorted newest first and truncated to limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]match.Snapshot, error) {
	var snaps []match.Snapshot
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamo: scan matches: %w", err)
		}
		var page []match.Snapshot
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("dynamo: unmarshal matches: %w", err)
		}
		snaps = append(snaps, page...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CompletedAt.After(snaps[j].CompletedAt)
	})
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}
