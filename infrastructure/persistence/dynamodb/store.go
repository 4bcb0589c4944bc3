// Package dynamodb persists project snapshots in a DynamoDB table, for
// installations that sync projects through AWS instead of local disk.
package dynamodb

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"fabula-backend/application/ports"
	pkgerrors "fabula-backend/pkg/errors"
)

// item is the stored shape of one project snapshot
type item struct {
	ProjectID string `dynamodbav:"project_id"`
	Name      string `dynamodbav:"name"`
	Snapshot  []byte `dynamodbav:"snapshot"`
	UpdatedAt int64  `dynamodbav:"updated_at"`
}

// Store is a DynamoDB-backed ports.SnapshotStore
type Store struct {
	client *dynamodb.Client
	table  string
}

// NewStore creates a store against the given table, loading AWS
// configuration from the environment.
func NewStore(ctx context.Context, region, table string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, pkgerrors.NewStorageError("load aws config", err)
	}
	return &Store{client: dynamodb.NewFromConfig(cfg), table: table}, nil
}

// NewStoreWithClient creates a store with an injected client, for tests
func NewStoreWithClient(client *dynamodb.Client, table string) *Store {
	return &Store{client: client, table: table}
}

// Save implements ports.SnapshotStore
func (s *Store) Save(ctx context.Context, projectID, name string, data []byte) error {
	av, err := attributevalue.MarshalMap(item{
		ProjectID: projectID,
		Name:      name,
		Snapshot:  data,
		UpdatedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return pkgerrors.NewStorageError("marshal snapshot item", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return pkgerrors.NewStorageError("save snapshot", err)
	}
	return nil
}

// Load implements ports.SnapshotStore
func (s *Store) Load(ctx context.Context, projectID string) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"project_id": &types.AttributeValueMemberS{Value: projectID},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewStorageError("load snapshot", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError("project " + projectID)
	}
	var rec item
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, pkgerrors.NewStorageError("unmarshal snapshot item", err)
	}
	return rec.Snapshot, nil
}

// List implements ports.SnapshotStore. The table holds one item per
// project, so a scan projecting everything but the blob stays small.
func (s *Store) List(ctx context.Context) ([]ports.SnapshotInfo, error) {
	var out []ports.SnapshotInfo
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:            aws.String(s.table),
		ProjectionExpression: aws.String("project_id, #n, updated_at"),
		ExpressionAttributeNames: map[string]string{
			"#n": "name",
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.NewStorageError("list snapshots", err)
		}
		for _, raw := range page.Items {
			var rec item
			if err := attributevalue.UnmarshalMap(raw, &rec); err != nil {
				continue
			}
			out = append(out, ports.SnapshotInfo{
				ProjectID: rec.ProjectID,
				Name:      rec.Name,
				UpdatedAt: time.UnixMilli(rec.UpdatedAt),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Delete implements ports.SnapshotStore
func (s *Store) Delete(ctx context.Context, projectID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"project_id": &types.AttributeValueMemberS{Value: projectID},
		},
		ConditionExpression: aws.String("attribute_exists(project_id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return pkgerrors.NewNotFoundError("project " + projectID)
		}
		return pkgerrors.NewStorageError("delete snapshot", err)
	}
	return nil
}
